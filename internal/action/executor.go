// Package action turns dispatched events into plugin invocations. A bounded
// queue decouples the frame loop from slow OS actions.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

var (
	// ErrQueueFull is returned by OnConfirmed when the job queue is full.
	ErrQueueFull = errors.New("action queue full")
	// ErrNotRunning is returned by OnConfirmed before Start or after Stop.
	ErrNotRunning = errors.New("action executor not running")
)

// Bindings looks up the binding for a confirmed event.
type Bindings interface {
	GetByKey(ch event.Channel, label string) (*store.Binding, error)
}

// Results stores action results.
type Results interface {
	Append(res *store.ActionResult) error
}

// Plugins resolves a plugin that declares an action.
type Plugins interface {
	Resolve(name, action string) (*plugin.Plugin, error)
}

// Runner executes one plugin request.
type Runner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// Config configures an Executor.
type Config struct {
	Bindings Bindings
	Plugins  Plugins
	Runner   Runner

	// Results is optional.
	Results Results

	QueueSize int

	// Expression events below this confidence are not acted on.
	MinExpressionConfidence float64

	// OnResult is called from the worker after every executed action.
	OnResult func(store.ActionResult)

	Logger *zap.Logger
	Now    func() time.Time
}

// DefaultQueueSize is used when Config.QueueSize is zero.
const DefaultQueueSize = 16

// Validate checks that the collaborators are set.
func (c Config) Validate() error {
	var errs []error
	if c.Bindings == nil {
		errs = append(errs, errors.New("action: bindings are required"))
	}
	if c.Plugins == nil {
		errs = append(errs, errors.New("action: plugin resolver is required"))
	}
	if c.Runner == nil {
		errs = append(errs, errors.New("action: runner is required"))
	}
	if c.QueueSize < 0 {
		errs = append(errs, errors.New("action: queue size must not be negative"))
	}
	if c.MinExpressionConfidence < 0 || c.MinExpressionConfidence > 1 {
		errs = append(errs, errors.New("action: min expression confidence must be in [0, 1]"))
	}
	return errors.Join(errs...)
}

// Job is one dispatched event waiting for its action.
type Job struct {
	Channel    event.Channel
	Label      string
	Confidence float64
	Timestamp  time.Time
	FrameIndex int64
}

// Executor runs bound actions on a single worker goroutine.
type Executor struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
	jobs   chan Job

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Executor after validating cfg.
func New(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	e := &Executor{
		cfg:    cfg,
		logger: cfg.Logger,
		now:    cfg.Now,
		jobs:   make(chan Job, cfg.QueueSize),
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Start launches the worker. It is a no-op when already running.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
}

// Stop cancels the worker and waits for the job in flight. Queued jobs are
// discarded.
func (e *Executor) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	for {
		select {
		case <-e.jobs:
		default:
			return
		}
	}
}

// Running reports whether the worker is started.
func (e *Executor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// OnConfirmed is a dispatch.Callback. It never blocks: the job is queued or
// rejected with ErrQueueFull.
func (e *Executor) OnConfirmed(label string, p dispatch.Payload) error {
	if p.Channel == event.Expression && p.Confidence < e.cfg.MinExpressionConfidence {
		e.logger.Debug("expression below action threshold",
			zap.String("label", label),
			zap.Float64("confidence", p.Confidence),
			zap.Float64("min", e.cfg.MinExpressionConfidence),
		)
		return nil
	}
	if !e.Running() {
		return ErrNotRunning
	}

	job := Job{
		Channel:    p.Channel,
		Label:      label,
		Confidence: p.Confidence,
		Timestamp:  p.Timestamp,
		FrameIndex: p.FrameIndex,
	}
	select {
	case e.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%s/%s: %w", p.Channel, label, ErrQueueFull)
	}
}

// Register adds OnConfirmed as a callback for every channel.
func (e *Executor) Register(d *dispatch.Dispatcher) {
	for ch := event.Channel(0); ch < event.NumChannels; ch++ {
		d.Register(ch, e.OnConfirmed)
	}
}

func (e *Executor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.jobs:
			jobCtx := logging.WithContext(ctx, e.logger.With(
				zap.Stringer("channel", job.Channel),
				zap.String("label", job.Label),
			))
			e.Execute(jobCtx, job)
		}
	}
}

// Execute runs the action bound to job synchronously and returns its result,
// or nil when nothing is bound.
func (e *Executor) Execute(ctx context.Context, job Job) *store.ActionResult {
	log := logging.FromContextOr(ctx, e.logger)

	b, err := e.cfg.Bindings.GetByKey(job.Channel, job.Label)
	if err != nil {
		log.Error("lookup binding", zap.Error(err))
		return e.finish(log, job, nil, fmt.Errorf("lookup binding: %w", err), "")
	}
	if b == nil || !b.Enabled {
		log.Debug("no binding")
		return nil
	}

	p, err := e.cfg.Plugins.Resolve(b.PluginName, b.ActionName)
	if err != nil {
		return e.finish(log, job, b, err, "")
	}

	req := &plugin.Request{
		Action:     b.ActionName,
		Channel:    job.Channel.String(),
		Label:      job.Label,
		Confidence: job.Confidence,
		Config:     b.Config,
	}
	resp, err := e.cfg.Runner.Execute(ctx, p, req)
	switch {
	case err != nil:
		return e.finish(log, job, b, err, "")
	case !resp.Success:
		return e.finish(log, job, b, errors.New(resp.Error), "")
	}
	return e.finish(log, job, b, nil, string(resp.Data))
}

func (e *Executor) finish(log *zap.Logger, job Job, b *store.Binding, runErr error, detail string) *store.ActionResult {
	res := store.ActionResult{
		Timestamp: e.now(),
		Channel:   job.Channel,
		Label:     job.Label,
		Status:    store.StatusSuccess,
		Detail:    detail,
	}
	if b != nil {
		res.PluginName = b.PluginName
		res.ActionName = b.ActionName
	}

	fields := []zap.Field{
		zap.String("plugin", res.PluginName),
		zap.String("action", res.ActionName),
	}
	if runErr != nil {
		res.Status = store.StatusFailure
		res.Detail = runErr.Error()
		log.Warn("action failed", append(fields, zap.Error(runErr))...)
	} else {
		log.Info("action executed", fields...)
	}

	if e.cfg.Results != nil {
		if err := e.cfg.Results.Append(&res); err != nil {
			log.Error("store action result", zap.Error(err))
		}
	}
	if e.cfg.OnResult != nil {
		e.cfg.OnResult(res)
	}
	return &res
}
