// Package main is a WebSocket probe for the foundry server. It sends
// commands given on the command line and prints each reply, or keeps many
// clients cycling the same commands to measure round-trip latency.
//
//	foundry-probe ping ping buy:drone status
//	foundry-probe -clients 20 -duration 30s ping buy:drone
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HyprPixl/signalfoundry/internal/network"
)

// Config for the probe.
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Commands       []network.Command
}

// Stats tracks round trips across all clients.
type Stats struct {
	Sent      int64
	Replies   int64
	Failed    int64
	Broadcast int64
	Errors    int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 1, "Number of concurrent clients in load mode")
	interval := flag.Duration("interval", 250*time.Millisecond, "Command interval per client in load mode")
	duration := flag.Duration("duration", 0, "Load mode duration; zero sends each command once")
	flag.Parse()

	commands, err := parseCommands(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Commands:       commands,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if config.TestDuration <= 0 {
		if err := runOnce(ctx, config); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := context.WithTimeout(ctx, config.TestDuration)
	defer stop()
	printResults(runLoad(ctx, config), config)
}

// parseCommands reads arguments of the form type[:key[:amount]].
func parseCommands(args []string) ([]network.Command, error) {
	if len(args) == 0 {
		args = []string{network.CommandStatus}
	}
	commands := make([]network.Command, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 3)
		cmd := network.Command{Type: parts[0]}
		if len(parts) > 1 {
			cmd.Key = parts[1]
		}
		if len(parts) > 2 {
			n, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("bad amount in %q: %w", arg, err)
			}
			cmd.Amount = n
		}
		if cmd.Type == network.CommandPing && cmd.Key != "" {
			// ping:5 is shorthand for a ping of amount 5.
			n, err := strconv.Atoi(cmd.Key)
			if err != nil {
				return nil, fmt.Errorf("bad ping amount in %q: %w", arg, err)
			}
			cmd.Key, cmd.Amount = "", n
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}

// send writes cmd with a fresh id and waits for the matching reply,
// skipping broadcast frames.
func send(conn *websocket.Conn, cmd network.Command) (network.Reply, error) {
	cmd.ID = uuid.NewString()
	if err := conn.WriteJSON(cmd); err != nil {
		return network.Reply{}, err
	}
	for {
		var reply network.Reply
		if err := conn.ReadJSON(&reply); err != nil {
			return network.Reply{}, err
		}
		if reply.ID == cmd.ID {
			return reply, nil
		}
	}
}

func runOnce(ctx context.Context, config Config) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", config.ServerURL, err)
	}
	defer conn.Close()

	failed := 0
	for _, cmd := range config.Commands {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		reply, err := send(conn, cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Type, err)
		}
		if !reply.OK {
			failed++
			fmt.Printf("%-8s FAIL [%s] %s\n", cmd.Type, reply.Code, reply.Error)
			continue
		}
		fmt.Printf("%-8s ok   %s\n", cmd.Type, reply.Message)
		if cmd.Type == network.CommandStatus {
			data, _ := json.MarshalIndent(reply.Data, "", "  ")
			fmt.Println(string(data))
		}
	}
	if failed > 0 {
		return errors.New(strconv.Itoa(failed) + " command(s) rejected")
	}
	return nil
}

func runLoad(ctx context.Context, config Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}
	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)
		// Stagger client starts.
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("%d client(s) started against %s\n", config.NumClients, config.ServerURL)
	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client %d: connection failed: %v\n", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Closing the connection unblocks a pending read once the run ends.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cmd := config.Commands[i%len(config.Commands)]
		cmd.ID = uuid.NewString()
		start := time.Now()
		if err := conn.WriteJSON(cmd); err != nil {
			if ctx.Err() == nil {
				atomic.AddInt64(&stats.Errors, 1)
			}
			return
		}
		atomic.AddInt64(&stats.Sent, 1)

		for {
			var reply network.Reply
			if err := conn.ReadJSON(&reply); err != nil {
				if ctx.Err() == nil {
					atomic.AddInt64(&stats.Errors, 1)
				}
				return
			}
			if reply.Type == network.FrameEvent {
				atomic.AddInt64(&stats.Broadcast, 1)
				continue
			}
			if reply.ID != cmd.ID {
				continue
			}
			atomic.AddInt64(&stats.Replies, 1)
			if !reply.OK {
				atomic.AddInt64(&stats.Failed, 1)
			}
			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, time.Since(start))
			stats.mu.Unlock()
			break
		}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("probe results")
	fmt.Printf("  sent:       %d\n", stats.Sent)
	fmt.Printf("  replies:    %d (%d rejected)\n", stats.Replies, stats.Failed)
	fmt.Printf("  broadcasts: %d\n", stats.Broadcast)
	fmt.Printf("  errors:     %d\n", stats.Errors)
	fmt.Printf("  throughput: %.2f cmd/sec\n", float64(stats.Sent)/config.TestDuration.Seconds())

	if len(stats.Latencies) == 0 {
		return
	}
	sort.Slice(stats.Latencies, func(i, j int) bool { return stats.Latencies[i] < stats.Latencies[j] })
	var total time.Duration
	for _, l := range stats.Latencies {
		total += l
	}
	n := len(stats.Latencies)
	fmt.Printf("  latency:    min %v  avg %v  p95 %v  max %v\n",
		stats.Latencies[0], total/time.Duration(n), stats.Latencies[n*95/100], stats.Latencies[n-1])
}
