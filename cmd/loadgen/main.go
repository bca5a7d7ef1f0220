// Package main - loadgen
// Load generator for the settlement server: many players sending actions over WebSocket
// and timing each ACK/ERROR round trip.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config for the load generator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	PlayerPrefix   string
}

// Stats tracks performance metrics
type Stats struct {
	Sent      int64
	Acked     int64
	Rejected  int64
	Events    int64
	Errors    int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (s *Stats) observe(d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.mu.Unlock()
}

// action mirrors network.PlayerAction on the wire.
type action struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Payload   any    `json:"payload,omitempty"`
}

type reply struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

// Weighted toward reads; writes exercise the session lock against the tick.
var actionMix = []func() (string, any){
	func() (string, any) { return "GET_STATE", nil },
	func() (string, any) { return "GET_STATE", nil },
	func() (string, any) { return "LIST_RESUMES", nil },
	func() (string, any) { return "CLEAR_DATA", map[string]float64{"gb": 0.1} },
	func() (string, any) { return "START_JOB", map[string]string{"job_id": "data-entry"} },
	func() (string, any) { return "PURCHASE_SKILL", map[string]string{"skill_id": "web-dev"} },
	func() (string, any) {
		return "SET_SKILL_IN_USE", map[string]any{"skill_id": "web-dev", "in_use": rand.Intn(2) == 0}
	},
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent players")
	interval := flag.Duration("interval", 200*time.Millisecond, "Action interval per player")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	prefix := flag.String("prefix", "load", "Player id prefix")
	out := flag.String("out", "loadgen_results.json", "Where to write the JSON summary")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		PlayerPrefix:   *prefix,
	}
	fmt.Printf("server=%s clients=%d interval=%v duration=%v\n",
		config.ServerURL, config.NumClients, config.ActionInterval, config.TestDuration)

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	stats := runLoad(ctx, config)
	printResults(stats, config, *out)
}

func runLoad(ctx context.Context, config Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}
	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runClient(ctx, fmt.Sprintf("%s-%03d", config.PlayerPrefix, n), config, stats)
		}(i)
		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("sent=%d acked=%d rejected=%d events=%d errors=%d\n",
					atomic.LoadInt64(&stats.Sent), atomic.LoadInt64(&stats.Acked), atomic.LoadInt64(&stats.Rejected),
					atomic.LoadInt64(&stats.Events), atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, playerID string, config Config, stats *Stats) {
	u, err := url.Parse(config.ServerURL)
	if err != nil {
		log.Printf("%s: url parse error: %v", playerID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	q := u.Query()
	q.Set("player_id", playerID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("%s: connection failed: %v", playerID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	var pending sync.Map // request id -> send time
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var r reply
			if err := json.Unmarshal(data, &r); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				continue
			}
			switch r.Type {
			case "EVENT":
				atomic.AddInt64(&stats.Events, 1)
				continue
			case "ACK":
				atomic.AddInt64(&stats.Acked, 1)
			default:
				atomic.AddInt64(&stats.Rejected, 1)
			}
			if sent, ok := pending.LoadAndDelete(r.RequestID); ok {
				stats.observe(time.Since(sent.(time.Time)))
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			typ, payload := actionMix[rand.Intn(len(actionMix))]()
			a := action{Type: typ, RequestID: uuid.NewString(), Payload: payload}
			pending.Store(a.RequestID, time.Now())
			if err := conn.WriteJSON(a); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.Sent, 1)
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)-1) * p)
	return sorted[i]
}

func printResults(stats *Stats, config Config, outPath string) {
	sent := atomic.LoadInt64(&stats.Sent)
	errs := atomic.LoadInt64(&stats.Errors)
	throughput := float64(sent) / config.TestDuration.Seconds()

	stats.mu.Lock()
	lat := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })

	fmt.Printf("\nsent=%d acked=%d rejected=%d events=%d errors=%d throughput=%.2f/s\n",
		sent, atomic.LoadInt64(&stats.Acked), atomic.LoadInt64(&stats.Rejected), atomic.LoadInt64(&stats.Events), errs, throughput)
	fmt.Printf("round trip p50=%v p95=%v p99=%v\n", percentile(lat, 0.50), percentile(lat, 0.95), percentile(lat, 0.99))

	results := map[string]interface{}{
		"sent":               sent,
		"acked":              atomic.LoadInt64(&stats.Acked),
		"rejected":           atomic.LoadInt64(&stats.Rejected),
		"events":             atomic.LoadInt64(&stats.Events),
		"errors":             errs,
		"throughput_per_sec": throughput,
		"p95_ms":             float64(percentile(lat, 0.95)) / float64(time.Millisecond),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(outPath, jsonData, 0644); err != nil {
		log.Printf("failed to write %s: %v", outPath, err)
		return
	}
	fmt.Printf("results saved to %s\n", outPath)
}
