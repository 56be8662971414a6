package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------
// SQLiteSnapshotStore
// ---------------------------------------------------------

// SQLiteSnapshotStore implements SnapshotStore for one save slot.
type SQLiteSnapshotStore struct {
	db     *sql.DB
	slotID string
}

func NewSQLiteSnapshotStore(db *sql.DB, slotID string) *SQLiteSnapshotStore {
	return &SQLiteSnapshotStore{db: db, slotID: slotID}
}

// Save replaces the slot's rows in a single transaction.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO save_slots (slot_id, signal, intel, shards, total_generated, manual_power, global_bonus, saved_at_wall)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot_id) DO UPDATE SET
			signal=excluded.signal,
			intel=excluded.intel,
			shards=excluded.shards,
			total_generated=excluded.total_generated,
			manual_power=excluded.manual_power,
			global_bonus=excluded.global_bonus,
			saved_at_wall=excluded.saved_at_wall
	`
	if _, err := tx.ExecContext(ctx, query,
		s.slotID, snap.Signal, snap.Intel, snap.Shards, snap.TotalGenerated,
		snap.ManualPower, snap.GlobalBonus, snap.SavedAtWallClock,
	); err != nil {
		return fmt.Errorf("failed to upsert save slot: %w", err)
	}

	if err := deleteSlotChildren(ctx, tx, s.slotID); err != nil {
		return err
	}

	for key, g := range snap.Generators {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slot_generators (slot_id, generator_key, owned_count, bonus) VALUES (?, ?, ?, ?)`,
			s.slotID, key, g.OwnedCount, g.Bonus,
		); err != nil {
			return fmt.Errorf("failed to save generator %s: %w", key, err)
		}
	}
	for key, u := range snap.Upgrades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slot_upgrades (slot_id, upgrade_key, purchased) VALUES (?, ?, ?)`,
			s.slotID, key, u.Purchased,
		); err != nil {
			return fmt.Errorf("failed to save upgrade %s: %w", key, err)
		}
	}
	for i, m := range snap.MomentumEffects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slot_momentum (slot_id, position, bonus, expiry_wall) VALUES (?, ?, ?, ?)`,
			s.slotID, i, m.Bonus, m.Expiry,
		); err != nil {
			return fmt.Errorf("failed to save momentum effect %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

func deleteSlotChildren(ctx context.Context, tx *sql.Tx, slotID string) error {
	for _, table := range []string{"slot_generators", "slot_upgrades", "slot_momentum"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE slot_id = ?`, slotID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteSnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	query := `SELECT signal, intel, shards, total_generated, manual_power, global_bonus, saved_at_wall FROM save_slots WHERE slot_id = ?`
	err := s.db.QueryRowContext(ctx, query, s.slotID).Scan(
		&snap.Signal, &snap.Intel, &snap.Shards, &snap.TotalGenerated,
		&snap.ManualPower, &snap.GlobalBonus, &snap.SavedAtWallClock,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSnapshot, err)
	}

	snap.Generators = make(map[string]GeneratorRecord)
	rows, err := s.db.QueryContext(ctx, `SELECT generator_key, owned_count, bonus FROM slot_generators WHERE slot_id = ?`, s.slotID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSnapshot, err)
	}
	for rows.Next() {
		var key string
		var g GeneratorRecord
		if err := rows.Scan(&key, &g.OwnedCount, &g.Bonus); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		snap.Generators[key] = g
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	snap.Upgrades = make(map[string]UpgradeRecord)
	rows, err = s.db.QueryContext(ctx, `SELECT upgrade_key, purchased FROM slot_upgrades WHERE slot_id = ?`, s.slotID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSnapshot, err)
	}
	for rows.Next() {
		var key string
		var u UpgradeRecord
		if err := rows.Scan(&key, &u.Purchased); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		snap.Upgrades[key] = u
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT bonus, expiry_wall FROM slot_momentum WHERE slot_id = ? ORDER BY position ASC`, s.slotID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSnapshot, err)
	}
	for rows.Next() {
		var m MomentumRecord
		if err := rows.Scan(&m.Bonus, &m.Expiry); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		snap.MomentumEffects = append(snap.MomentumEffects, m)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableSnapshot, err)
	}
	return nil
}

func (s *SQLiteSnapshotStore) Delete(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSlotChildren(ctx, tx, s.slotID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM save_slots WHERE slot_id = ?`, s.slotID); err != nil {
		return fmt.Errorf("failed to delete save slot: %w", err)
	}
	return tx.Commit()
}

// Quarantine moves the slot and its children to a new slot id.
func (s *SQLiteSnapshotStore) Quarantine(ctx context.Context) (string, error) {
	target := s.slotID + quarantineSuffix(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin quarantine: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO save_slots (slot_id, signal, intel, shards, total_generated, manual_power, global_bonus, saved_at_wall)
		SELECT ?, signal, intel, shards, total_generated, manual_power, global_bonus, saved_at_wall
		FROM save_slots WHERE slot_id = ?`, target, s.slotID)
	if err != nil {
		return "", fmt.Errorf("failed to copy save slot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrNoSnapshot
	}
	for _, table := range []string{"slot_generators", "slot_upgrades", "slot_momentum"} {
		if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET slot_id = ? WHERE slot_id = ?`, target, s.slotID); err != nil {
			return "", fmt.Errorf("failed to move %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM save_slots WHERE slot_id = ?`, s.slotID); err != nil {
		return "", fmt.Errorf("failed to clear save slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit quarantine: %w", err)
	}
	return target, nil
}

// ---------------------------------------------------------
// SQLiteEventRepository
// ---------------------------------------------------------

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, seq, slot_id, timestamp, event_type, actor_id, message, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, int64(event.Seq), event.SlotID, event.Timestamp.UnixNano(), event.EventType,
		event.ActorID, event.Message, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var seq, nanos int64
		var payloadStr string
		err := rows.Scan(
			&e.ID, &seq, &e.SlotID, &nanos, &e.EventType, &e.ActorID,
			&e.Message, &payloadStr,
		)
		if err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.Unix(0, nanos)
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Queries select newest first so LIMIT keeps the tail.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, slotID string, limit int) ([]GameEvent, error) {
	query := `SELECT id, seq, slot_id, timestamp, event_type, actor_id, message, payload FROM events WHERE slot_id = ? ORDER BY timestamp DESC, seq DESC LIMIT ?`
	return r.getMany(ctx, query, slotID, sqlLimit(limit))
}

func (r *SQLiteEventRepository) ByType(ctx context.Context, slotID, eventType string, limit int) ([]GameEvent, error) {
	query := `SELECT id, seq, slot_id, timestamp, event_type, actor_id, message, payload FROM events WHERE slot_id = ? AND event_type = ? ORDER BY timestamp DESC, seq DESC LIMIT ?`
	return r.getMany(ctx, query, slotID, eventType, sqlLimit(limit))
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
