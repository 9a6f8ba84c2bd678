package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendsignal/config"
	"github.com/vadiminshakov/trendsignal/internal/clients"
	"github.com/vadiminshakov/trendsignal/internal/services/advisor"
	"github.com/vadiminshakov/trendsignal/internal/services/backtest"
	"github.com/vadiminshakov/trendsignal/internal/services/market/collector"
	"github.com/vadiminshakov/trendsignal/internal/services/promptbuilder"
	"github.com/vadiminshakov/trendsignal/internal/services/trend"
	"github.com/vadiminshakov/trendsignal/internal/storage/history"
	"github.com/vadiminshakov/trendsignal/internal/storage/prompts"
)

const coinbaseHTTPTimeout = 30 * time.Second

// NewClient creates the market data client of the configured platform.
func NewClient(ctx context.Context, conf config.Config) (any, error) {
	switch conf.Platform {
	case config.PlatformBinance:
		return clients.NewBinanceClient(conf.Secrets.BinanceAPIKey, conf.Secrets.BinanceAPISecret), nil
	case config.PlatformBybit:
		return clients.NewBybitClient(conf.Secrets.BybitAPIKey, conf.Secrets.BybitAPISecret), nil
	case config.PlatformHyperliquid:
		c, err := clients.NewHyperliquidClient(ctx, conf.Secrets.HyperliquidPrivateKey, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create hyperliquid client")
		}
		return c, nil
	case config.PlatformCoinbase:
		return &http.Client{Timeout: coinbaseHTTPTimeout}, nil
	default:
		return nil, errors.Errorf("unsupported platform %q", conf.Platform)
	}
}

// NewCollector builds the candle collector for the configured platform. With
// cached set, klines go through the on-disk cache used by backtests.
func NewCollector(ctx context.Context, conf config.Config, logger *zap.Logger, cached bool) (*collector.MarketDataCollector, error) {
	client, err := NewClient(ctx, conf)
	if err != nil {
		return nil, err
	}

	sp, err := newServiceProvider(client)
	if err != nil {
		return nil, err
	}

	provider := sp.KlineProvider()
	if cached {
		provider, err = collector.NewCachedKlineProvider(provider, conf.Backtest.CacheDir, conf.Backtest.CacheMaxAge, logger)
		if err != nil {
			return nil, err
		}
	}

	return collector.NewMarketDataCollector(provider, conf.Quote, logger.With(zap.String("platform", conf.Platform))), nil
}

// NewEngine creates the trend engine with the configured margin.
func NewEngine(conf config.Config) *trend.Engine {
	return trend.NewEngine(trend.WithMargin(conf.Margin))
}

// NewAdvisor creates the LLM advisor. A nil prompt source uses the built-in prompt.
func NewAdvisor(conf config.Config, logger *zap.Logger, source advisor.PromptSource) *advisor.Advisor {
	llm := clients.NewOpenAICompatibleClient(conf.LLM.APIURL, conf.LLM.APIKey, conf.LLM.Model)
	builder := promptbuilder.NewPromptBuilder(logger, true)
	return advisor.NewAdvisor(llm, builder, source, logger.With(zap.String("model", conf.LLM.Model)))
}

// NewBot wires the signal bot. Decisions go to store when it is not nil.
func NewBot(ctx context.Context, conf config.Config, logger *zap.Logger, store decisionStore) (*SignalBot, error) {
	source, err := NewCollector(ctx, conf, logger, false)
	if err != nil {
		return nil, err
	}

	opts := []BotOption{WithSchedule(conf.Schedule)}
	if store != nil {
		opts = append(opts, WithDecisionStore(store))
	}
	if conf.LLM.Enabled {
		if err := conf.Validate(true); err != nil {
			return nil, err
		}
		promptStore := prompts.NewStore(conf.Backtest.PromptFile, promptbuilder.SystemPrompt)
		opts = append(opts, WithAdvisor(NewAdvisor(conf, logger, promptStore)), WithCandles(conf.Backtest.Window))
	}

	return NewSignalBot(source, NewEngine(conf), conf.Interval, logger, opts...), nil
}

// NewBacktester wires a backtester for the configured mode. The returned recorder
// must be closed by the caller.
func NewBacktester(ctx context.Context, conf config.Config, logger *zap.Logger) (*backtest.Backtester, history.Recorder, error) {
	source, err := NewCollector(ctx, conf, logger, true)
	if err != nil {
		return nil, nil, err
	}

	var recorder history.Recorder = history.NewMemoryRecorder()
	if conf.Backtest.HistoryDB != "" {
		recorder, err = history.NewSQLiteRecorder(conf.Backtest.HistoryDB, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	cfg := backtest.Config{
		Interval:       conf.Interval,
		Window:         conf.Backtest.Window,
		Candles:        conf.Backtest.Candles,
		Concurrency:    conf.Backtest.Concurrency,
		TargetAccuracy: conf.Backtest.TargetAccuracy,
		MaxIterations:  conf.Backtest.MaxIterations,
		HistoryWindow:  history.DefaultWindow,
	}
	btLogger := logger.With(zap.String("mode", conf.Backtest.Mode))

	if conf.Backtest.Mode != config.BacktestModeLLM {
		evaluator := backtest.NewEngineEvaluator(NewEngine(conf))
		return backtest.NewBacktester(source, evaluator, recorder, cfg, btLogger), recorder, nil
	}

	if err := conf.Validate(true); err != nil {
		_ = recorder.Close()
		return nil, nil, err
	}
	promptStore := prompts.NewStore(conf.Backtest.PromptFile, promptbuilder.SystemPrompt)
	adv := NewAdvisor(conf, logger, promptStore)

	bt := backtest.NewBacktester(source, backtest.NewLLMEvaluator(adv), recorder, cfg, btLogger,
		backtest.WithPromptImprovement(promptStore, adv))
	return bt, recorder, nil
}
