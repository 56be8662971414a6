// Package network exposes the engine over a WebSocket command channel and a
// small read-only HTTP API.
package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/HyprPixl/signalfoundry/internal/domain/economy"
	"github.com/HyprPixl/signalfoundry/internal/domain/rules"
	"github.com/HyprPixl/signalfoundry/internal/engine"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
)

// Command types accepted from clients.
const (
	CommandStatus  = "status"
	CommandPing    = "ping"
	CommandBuy     = "buy"
	CommandBuyMax  = "buy_max"
	CommandUpgrade = "upgrade"
	CommandVenture = "venture"
	CommandIgnite  = "ignite"
	CommandSave    = "save"
	CommandLoad    = "load"
	CommandReset   = "reset"

	// FrameEvent marks a broadcast economy event rather than a reply.
	FrameEvent = "event"
)

// Command is an incoming request from a client. A missing amount means 1.
type Command struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type"`
	Key    string `json:"key,omitempty"`
	Amount int    `json:"amount,omitempty"`
}

// Reply answers a single Command. Broadcast events reuse the shape with
// Type set to FrameEvent.
type Reply struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Dispatcher maps commands onto engine operations.
type Dispatcher struct {
	engine *engine.Engine
	logger *logger.Logger
}

func NewDispatcher(eng *engine.Engine, log *logger.Logger) *Dispatcher {
	return &Dispatcher{engine: eng, logger: log}
}

// Handle runs one command. Engine errors become failed replies; they never
// end the connection.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) Reply {
	reply := Reply{ID: cmd.ID, Type: cmd.Type}
	amount := cmd.Amount
	if amount == 0 {
		amount = 1
	}

	var (
		data    interface{}
		message string
		err     error
	)
	switch cmd.Type {
	case CommandStatus:
		s := d.engine.Status()
		data = s
		message = fmt.Sprintf("Signal: %s | Rate: %s /s", economy.FormatNumber(s.Signal), economy.FormatNumber(s.Rate))
	case CommandPing:
		var gained float64
		gained, err = d.engine.Ping(amount)
		data = map[string]float64{"gained": gained}
		message = fmt.Sprintf("Pulsed the lattice for %s signal.", economy.FormatNumber(gained))
	case CommandBuy:
		var p engine.Purchase
		p, err = d.engine.BuyGenerator(cmd.Key, amount)
		data, message = p, p.Message
	case CommandBuyMax:
		var p engine.Purchase
		p, err = d.engine.BuyMaxGenerator(cmd.Key)
		data, message = p, p.Message
	case CommandUpgrade:
		var p engine.Purchase
		p, err = d.engine.BuyUpgrade(cmd.Key)
		data, message = p, p.Message
	case CommandVenture:
		var out engine.VentureOutcome
		out, err = d.engine.Venture()
		data, message = out, out.Message
	case CommandIgnite:
		var out engine.IgniteOutcome
		out, err = d.engine.Ignite()
		data, message = out, out.Message
	case CommandSave:
		var receipt engine.SaveReceipt
		receipt, err = d.engine.Save(ctx)
		data, message = receipt, receipt.Message
	case CommandLoad:
		var report engine.LoadReport
		report, err = d.engine.Load(ctx)
		data, message = report, report.Message
	case CommandReset:
		err = d.engine.Reset(ctx)
		message = "Save wiped. Fresh beacon awaits."
	default:
		err = fmt.Errorf("unknown command %q", cmd.Type)
	}

	if err != nil {
		reply.Error = err.Error()
		reply.Code = errorCode(err)
		return reply
	}
	reply.OK = true
	reply.Message = message
	reply.Data = data
	return reply
}

// errorCode gives clients a stable identifier for each error kind.
func errorCode(err error) string {
	switch {
	case errors.Is(err, rules.ErrUnknownGenerator):
		return "unknown_generator"
	case errors.Is(err, rules.ErrUnknownUpgrade):
		return "unknown_upgrade"
	case errors.Is(err, rules.ErrGeneratorLocked):
		return "generator_locked"
	case errors.Is(err, rules.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, rules.ErrAlreadyPurchased):
		return "already_purchased"
	case errors.Is(err, rules.ErrPrestigeNotReady):
		return "prestige_not_ready"
	case errors.Is(err, rules.ErrPersistence):
		return "persistence"
	case errors.Is(err, rules.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "bad_request"
	}
}
