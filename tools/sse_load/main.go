// Command sse_load opens many concurrent connections to the decision stream and
// reports how many decision events each second the server delivers.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type stats struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	decisions   atomic.Int64
	pings       atomic.Int64
}

func (s *stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("connected", s.connected.Load()),
		zap.Int64("connect_errs", s.connectErrs.Load()),
		zap.Int64("stream_errs", s.streamErrs.Load()),
		zap.Int64("decisions", s.decisions.Load()),
		zap.Int64("pings", s.pings.Load()),
	}
}

func main() {
	var (
		targetURL    string
		connections  int
		testDuration time.Duration
		rampUp       time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8080/decisions/stream", "decision stream URL")
	flag.IntVar(&connections, "conns", 1000, "number of concurrent connections to open")
	flag.DurationVar(&testDuration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "spread connection starts across this window")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", connections))
	}
	if rampUp == 0 && connections > 100 {
		// 1 second per 500 connections
		rampUp = max(time.Duration(connections/500)*time.Second, time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting decision stream load",
		zap.String("url", targetURL), zap.Int("conns", connections),
		zap.Duration("duration", testDuration), zap.Duration("ramp", rampUp))

	st := &stats{}
	start := time.Now()
	go report(ctx, logger, st)

	var g errgroup.Group
	interval := rampUp / time.Duration(connections)
	for i := 0; i < connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		g.Go(func() error {
			consume(ctx, client, targetURL, st)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := max(time.Since(start), time.Millisecond)
	fmt.Fprintf(os.Stdout, "done: connected=%d connect_errs=%d stream_errs=%d decisions=%d elapsed=%s decisions/s=%.2f\n",
		st.connected.Load(), st.connectErrs.Load(), st.streamErrs.Load(), st.decisions.Load(),
		elapsed.Truncate(time.Millisecond), float64(st.decisions.Load())/elapsed.Seconds())
}

// consume reads one stream until ctx is done, counting decision events and heartbeats.
func consume(ctx context.Context, client *http.Client, url string, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}
	st.connected.Add(1)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "event: decision":
			st.decisions.Add(1)
		case strings.HasPrefix(line, ": ping"):
			st.pings.Add(1)
		}
	}
	if ctx.Err() == nil {
		st.streamErrs.Add(1)
	}
}

func report(ctx context.Context, logger *zap.Logger, st *stats) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("status", st.fields()...)
		}
	}
}
