// Package backtest replays labeled candle history through a decision source and
// scores it; for the LLM source it also rewrites the prompt after each run.
package backtest

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/labeler"
	"github.com/vadiminshakov/trendsignal/internal/services/promptbuilder"
	"github.com/vadiminshakov/trendsignal/internal/storage/history"
)

// ErrNotEnoughHistory returned when fewer candles than one window are available.
var ErrNotEnoughHistory = errors.New("not enough candles to perform backtesting")

// CandleSource provides aligned candle history of the three assets.
type CandleSource interface {
	Window(ctx context.Context, interval string, count int) (domain.MarketWindow, error)
}

// PromptStore holds the prompt being improved.
type PromptStore interface {
	Load() (string, error)
	Save(prompt string) error
}

// Improver rewrites a prompt from its failures.
type Improver interface {
	Improve(ctx context.Context, base string, failures []promptbuilder.Failure, history []promptbuilder.PromptScore) (string, error)
}

// Config tunes a backtest run.
type Config struct {
	Interval string
	// Window candles handed to the evaluator per prediction.
	Window int
	// Candles total history fetched per asset.
	Candles        int
	Concurrency    int
	TargetAccuracy float64
	MaxIterations  int
	HistoryWindow  int
}

// DefaultConfig mirrors the hourly setup: 24-candle windows over 96 hours of history.
func DefaultConfig() Config {
	return Config{
		Interval:       "1h",
		Window:         24,
		Candles:        96,
		Concurrency:    20,
		TargetAccuracy: 0.7,
		MaxIterations:  10,
		HistoryWindow:  history.DefaultWindow,
	}
}

// Result outcome of one run.
type Result struct {
	RunID    int64
	Total    int
	Correct  int
	Accuracy float64
	// Failures mismatching windows in window order.
	Failures []promptbuilder.Failure
	Improved bool
}

// Backtester runs backtests.
type Backtester struct {
	source    CandleSource
	evaluator Evaluator
	labeler   *labeler.Labeler
	recorder  history.Recorder
	prompts   PromptStore
	improver  Improver
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures the Backtester.
type Option func(*Backtester)

// WithPromptImprovement enables prompt rewriting after runs with failures.
func WithPromptImprovement(prompts PromptStore, improver Improver) Option {
	return func(b *Backtester) {
		b.prompts = prompts
		b.improver = improver
	}
}

// WithLabeler overrides the default ±0.3% labeler.
func WithLabeler(l *labeler.Labeler) Option {
	return func(b *Backtester) {
		b.labeler = l
	}
}

// NewBacktester creates a Backtester.
func NewBacktester(source CandleSource, evaluator Evaluator, recorder history.Recorder, cfg Config, logger *zap.Logger, opts ...Option) *Backtester {
	if recorder == nil {
		recorder = history.NewMemoryRecorder()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = history.DefaultWindow
	}

	b := &Backtester{
		source:    source,
		evaluator: evaluator,
		labeler:   labeler.New(labeler.DefaultThreshold),
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type prediction struct {
	decision domain.Decision
	expected domain.Action
}

// Run evaluates every window [i-Window, i) against the label of candle i-1,
// records the score and, when enabled, improves the prompt.
func (b *Backtester) Run(ctx context.Context) (*Result, error) {
	startedAt := b.now()

	w, err := b.source.Window(ctx, b.cfg.Interval, b.cfg.Candles)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load candle history")
	}
	w = w.Align()

	n := w.Len()
	if n < b.cfg.Window || b.cfg.Window < domain.SeriesLength {
		return nil, errors.Wrapf(ErrNotEnoughHistory, "have %d candles, window is %d", n, b.cfg.Window)
	}

	labels := b.labeler.Label(w.ETH.Candles)

	var prompt string
	if b.prompts != nil {
		if prompt, err = b.prompts.Load(); err != nil {
			return nil, errors.Wrap(err, "failed to load prompt")
		}
	}

	predictions := make([]prediction, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i := b.cfg.Window; i < n; i++ {
		g.Go(func() error {
			decision, err := b.evaluator.Evaluate(gctx, w.Slice(i-b.cfg.Window, i))
			if err != nil {
				return errors.Wrapf(err, "window %d", i)
			}
			predictions[i] = prediction{decision: decision, expected: labels[i-1]}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i := b.cfg.Window; i < n; i++ {
		p := predictions[i]
		res.Total++
		if p.decision.Action == p.expected {
			res.Correct++
			continue
		}
		res.Failures = append(res.Failures, promptbuilder.Failure{
			Window:    i,
			Predicted: p.decision.Action,
			Expected:  p.expected,
			Rationale: p.decision.Rationale,
		})
	}
	if res.Total > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Total)
	}

	b.logger.Info("backtesting complete",
		zap.String("mode", b.evaluator.Mode()),
		zap.Int("windows", res.Total),
		zap.Int("correct", res.Correct),
		zap.Float64("accuracy", res.Accuracy))

	res.RunID, err = b.recorder.RecordRun(ctx, history.Run{
		StartedAt: startedAt,
		Mode:      b.evaluator.Mode(),
		Model:     b.evaluator.Model(),
		Prompt:    prompt,
		Total:     res.Total,
		Correct:   res.Correct,
		Score:     res.Accuracy,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record backtest run")
	}

	if b.improver != nil && b.prompts != nil && len(res.Failures) > 0 {
		if err := b.improve(ctx, prompt, res.Failures); err != nil {
			return nil, err
		}
		res.Improved = true
	}

	return res, nil
}

func (b *Backtester) improve(ctx context.Context, prompt string, failures []promptbuilder.Failure) error {
	runs, err := b.recorder.RecentRuns(ctx, b.cfg.HistoryWindow)
	if err != nil {
		return errors.Wrap(err, "failed to load prompt history")
	}

	scores := make([]promptbuilder.PromptScore, 0, len(runs))
	for _, r := range runs {
		if r.Mode != b.evaluator.Mode() {
			continue
		}
		scores = append(scores, promptbuilder.PromptScore{Prompt: r.Prompt, Score: r.Score})
	}

	improved, err := b.improver.Improve(ctx, prompt, failures, scores)
	if err != nil {
		return err
	}
	if err := b.prompts.Save(improved); err != nil {
		return errors.Wrap(err, "failed to save improved prompt")
	}

	b.logger.Info("prompt improved", zap.Int("failures", len(failures)))
	return nil
}

// Loop repeats Run until the accuracy reaches the target, the iteration limit is hit,
// or there is no prompt left to improve.
func (b *Backtester) Loop(ctx context.Context) ([]*Result, error) {
	var results []*Result
	for iteration := 1; ; iteration++ {
		res, err := b.Run(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		b.logger.Info("backtest iteration finished",
			zap.Int("iteration", iteration),
			zap.Float64("score", res.Accuracy))

		if res.Accuracy >= b.cfg.TargetAccuracy || iteration >= b.cfg.MaxIterations || !res.Improved {
			return results, nil
		}
	}
}
