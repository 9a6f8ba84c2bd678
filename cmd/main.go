// Command trendsignal decides long/short/none for ETH from the trend of the last
// three closed hourly candles of ETH, BTC and SOL.
//
// Usage:
//
//	trendsignal run --config config.yaml       decide every hour, serve /decide and the SSE stream
//	trendsignal decide --config config.yaml    decide once and print the result
//	trendsignal backtest --config config.yaml  score the engine or the LLM on recent history
//	trendsignal setup                          generate a config file interactively
//
// Environment variables:
//
//	LLM_API_KEY (or OPENAI_API_KEY) when the LLM advisor is enabled
//	BINANCE_API_KEY, BINANCE_API_SECRET, BYBIT_API_KEY, BYBIT_API_SECRET (optional)
//	HYPERLIQUID_PRIVATE_KEY (optional, an ephemeral key is generated otherwise)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/trendsignal/config"
	"github.com/vadiminshakov/trendsignal/internal"
	"github.com/vadiminshakov/trendsignal/internal/report"
	"github.com/vadiminshakov/trendsignal/internal/services/backtest"
	"github.com/vadiminshakov/trendsignal/internal/setup"
	"github.com/vadiminshakov/trendsignal/internal/storage/decisions"
	"github.com/vadiminshakov/trendsignal/internal/web"
)

func main() {
	if err := execute(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "trendsignal:", err)
		os.Exit(1)
	}
}

// execute runs one command. Every store it opens is closed before it returns.
func execute(args []string, stderr io.Writer) error {
	cmd, err := config.ParseArgs(args, stderr)
	if err != nil {
		return err
	}

	if cmd.Name == config.CommandSetup {
		return setup.RunTUI(cmd.Out)
	}

	conf, err := cmd.Resolve()
	if err != nil {
		return err
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd.Name {
	case config.CommandDecide:
		err = decide(ctx, conf, logger, cmd.JSON)
	case config.CommandBacktest:
		err = runBacktest(ctx, conf, logger, cmd.Loop)
	default:
		err = run(ctx, conf, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", zap.String("command", cmd.Name), zap.Error(err))
		return err
	}
	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func decide(ctx context.Context, conf config.Config, logger *zap.Logger, asJSON bool) error {
	bot, err := internal.NewBot(ctx, conf, logger, nil)
	if err != nil {
		return err
	}

	cycle, err := bot.DecideOnce(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(cycle.Engine.Decision()); err != nil {
			return err
		}
		if cycle.LLM != nil {
			return enc.Encode(cycle.LLM.Decision())
		}
		return nil
	}

	fmt.Println(report.DecisionCard(cycle.Engine))
	if cycle.LLM != nil {
		fmt.Println(report.DecisionCard(*cycle.LLM))
	}
	return nil
}

func run(ctx context.Context, conf config.Config, logger *zap.Logger) error {
	store, err := decisions.NewWALStore(conf.WALDir)
	if err != nil {
		return err
	}
	defer store.Close()

	bot, err := internal.NewBot(ctx, conf, logger, store)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(gctx)
	})

	if conf.WebAddr != "" {
		srv := web.NewServer(conf.WebAddr, conf.Quote, internal.NewEngine(conf), store, logger.Named("web"))
		g.Go(func() error {
			if len(conf.TLSDomains) > 0 {
				return srv.StartWithAutoTLS(gctx, conf.TLSDomains, conf.TLSCacheDir)
			}
			return srv.Start(gctx)
		})
	}

	return g.Wait()
}

func runBacktest(ctx context.Context, conf config.Config, logger *zap.Logger, loop bool) error {
	bt, recorder, err := internal.NewBacktester(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	if !loop {
		res, err := bt.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Println(report.BacktestSummary([]*backtest.Result{res}))
		return nil
	}

	results, err := bt.Loop(ctx)
	if len(results) > 0 {
		fmt.Println(report.BacktestSummary(results))
	}
	return err
}
