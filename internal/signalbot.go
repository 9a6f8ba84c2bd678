package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/trend"
)

const (
	defaultSchedule = "30 0 * * * *"
	cycleTimeout    = 5 * time.Minute
)

type windowSource interface {
	Window(ctx context.Context, interval string, count int) (domain.MarketWindow, error)
}

type decisionStore interface {
	Save(event domain.DecisionEvent) (uint64, error)
}

type decisionAdvisor interface {
	Advise(ctx context.Context, w domain.MarketWindow) (domain.Decision, error)
	Model() string
}

// Cycle result of one decision run.
type Cycle struct {
	Window     domain.MarketWindow
	Evaluation *trend.Evaluation
	Engine     domain.DecisionEvent
	// LLM is set when an advisor is configured and answered.
	LLM    *domain.DecisionEvent
	LLMErr error
}

// SignalBot produces a decision for every closed candle on a cron schedule.
type SignalBot struct {
	source   windowSource
	engine   *trend.Engine
	store    decisionStore
	advisor  decisionAdvisor
	logger   *zap.Logger
	interval string
	schedule string
	// candles fetched per cycle; the engine uses the last three, the advisor all of them
	candles int
	now     func() time.Time
}

// BotOption configures the SignalBot.
type BotOption func(*SignalBot)

// WithDecisionStore persists every decision.
func WithDecisionStore(s decisionStore) BotOption {
	return func(b *SignalBot) {
		b.store = s
	}
}

// WithAdvisor asks the advisor alongside the engine.
func WithAdvisor(a decisionAdvisor) BotOption {
	return func(b *SignalBot) {
		b.advisor = a
	}
}

// WithSchedule overrides the cron spec (seconds field included).
func WithSchedule(spec string) BotOption {
	return func(b *SignalBot) {
		b.schedule = spec
	}
}

// WithCandles sets how many closed candles each cycle fetches.
func WithCandles(n int) BotOption {
	return func(b *SignalBot) {
		b.candles = n
	}
}

// WithBotClock overrides the event timestamp source.
func WithBotClock(now func() time.Time) BotOption {
	return func(b *SignalBot) {
		b.now = now
	}
}

// NewSignalBot creates a bot deciding on candles of the given interval.
func NewSignalBot(source windowSource, engine *trend.Engine, interval string, logger *zap.Logger, opts ...BotOption) *SignalBot {
	b := &SignalBot{
		source:   source,
		engine:   engine,
		logger:   logger,
		interval: interval,
		schedule: defaultSchedule,
		candles:  domain.SeriesLength,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.candles < domain.SeriesLength {
		b.candles = domain.SeriesLength
	}
	return b
}

// DecideOnce fetches the latest closed candles, decides and stores the result.
// An advisor failure is reported in Cycle.LLMErr and does not fail the cycle.
func (b *SignalBot) DecideOnce(ctx context.Context) (*Cycle, error) {
	w, err := b.source.Window(ctx, b.interval, b.candles)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch market window")
	}

	snapshot, err := w.Snapshot()
	if err != nil {
		return nil, err
	}

	ev, err := b.engine.Evaluate(snapshot.ETH, snapshot.BTC, snapshot.SOL)
	if err != nil {
		return nil, err
	}

	event := domain.NewDecisionEvent(b.now(), domain.DecisionSourceEngine, "", ev.Decision, snapshot)
	event.ETHTrend = ev.ETH.Trend
	if ev.Secondary() {
		event.BTCTrend = ev.BTC.Trend
		event.SOLTrend = ev.SOL.Trend
	}
	if err := b.save(event); err != nil {
		return nil, err
	}

	b.logger.Info("decision",
		zap.String("source", string(event.Source)),
		zap.String("action", event.Action.String()),
		zap.String("eth_trend", string(event.ETHTrend)),
		zap.String("eth_close", event.ETHClose),
		zap.String("rationale", event.Rationale))

	cycle := &Cycle{Window: w, Evaluation: ev, Engine: event}

	if b.advisor == nil {
		return cycle, nil
	}

	decision, err := b.advisor.Advise(ctx, w)
	if err != nil {
		b.logger.Warn("advisor failed", zap.Error(err))
		cycle.LLMErr = err
		return cycle, nil
	}

	llmEvent := domain.NewDecisionEvent(b.now(), domain.DecisionSourceLLM, b.advisor.Model(), decision, snapshot)
	if err := b.save(llmEvent); err != nil {
		return nil, err
	}
	b.logger.Info("decision",
		zap.String("source", string(llmEvent.Source)),
		zap.String("model", llmEvent.Model),
		zap.String("action", llmEvent.Action.String()),
		zap.String("rationale", llmEvent.Rationale))
	cycle.LLM = &llmEvent

	return cycle, nil
}

func (b *SignalBot) save(event domain.DecisionEvent) error {
	if b.store == nil {
		return nil
	}
	if _, err := b.store.Save(event); err != nil {
		return errors.Wrapf(err, "failed to store %s decision", event.Source)
	}
	return nil
}

// Run schedules DecideOnce and blocks until ctx is cancelled. A tick that is still
// running when the next one fires makes the next one skip.
func (b *SignalBot) Run(ctx context.Context) error {
	cl := cronLogger{b.logger.Sugar()}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(b.schedule, func() { b.tick(ctx) }); err != nil {
		return errors.Wrapf(err, "invalid schedule %q", b.schedule)
	}

	c.Start()
	b.logger.Info("signal bot started", zap.String("schedule", b.schedule), zap.String("interval", b.interval))

	<-ctx.Done()
	<-c.Stop().Done()
	b.logger.Info("signal bot stopped")

	return ctx.Err()
}

func (b *SignalBot) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	if _, err := b.DecideOnce(ctx); err != nil {
		b.logger.Error("decision cycle failed", zap.Error(err))
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
