package action

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

type fakeBindings map[string]*store.Binding

func (f fakeBindings) GetByKey(ch event.Channel, label string) (*store.Binding, error) {
	if label == "broken" {
		return nil, errors.New("disk on fire")
	}
	return f[ch.String()+"/"+label], nil
}

type fakePlugins struct{}

func (fakePlugins) Resolve(name, action string) (*plugin.Plugin, error) {
	if name != "desktop" {
		return nil, plugin.ErrPluginNotFound
	}
	return &plugin.Plugin{Manifest: plugin.Manifest{Name: name, Actions: []string{action}}}, nil
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []plugin.Request
	resp     *plugin.Response
	err      error
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeRunner) Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &plugin.Response{Success: true, Data: json.RawMessage(`{"ok":true}`)}, nil
}

func (f *fakeRunner) calls() []plugin.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]plugin.Request(nil), f.requests...)
}

type fakeResults struct {
	mu      sync.Mutex
	results []store.ActionResult
}

func (f *fakeResults) Append(res *store.ActionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, *res)
	return nil
}

func testBindings() fakeBindings {
	return fakeBindings{
		"blink/double_blink": {PluginName: "desktop", ActionName: "screenshot", Enabled: true},
		"expression/sad":     {PluginName: "desktop", ActionName: "log-mood", Enabled: true, Config: json.RawMessage(`{"dir":"/tmp"}`)},
		"gesture/fist":       {PluginName: "desktop", ActionName: "notify", Enabled: false},
		"gesture/wave":       {PluginName: "keyboard", ActionName: "press", Enabled: true},
	}
}

func newExecutor(t *testing.T, runner *fakeRunner, mutate func(*Config)) (*Executor, *fakeResults) {
	t.Helper()
	results := &fakeResults{}
	cfg := Config{
		Bindings:                testBindings(),
		Plugins:                 fakePlugins{},
		Runner:                  runner,
		Results:                 results,
		MinExpressionConfidence: 0.6,
		Logger:                  zap.NewNop(),
		Now:                     func() time.Time { return time.Unix(100, 0) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	return e, results
}

func TestExecute_Success(t *testing.T) {
	runner := &fakeRunner{}
	var hooked []store.ActionResult
	e, results := newExecutor(t, runner, func(c *Config) {
		c.OnResult = func(r store.ActionResult) { hooked = append(hooked, r) }
	})

	res := e.Execute(context.Background(), Job{Channel: event.Expression, Label: event.Sad, Confidence: 0.8})
	require.NotNil(t, res)
	assert.Equal(t, store.StatusSuccess, res.Status)
	assert.Equal(t, "log-mood", res.ActionName)
	assert.Equal(t, `{"ok":true}`, res.Detail)
	assert.Equal(t, time.Unix(100, 0), res.Timestamp)

	calls := runner.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "log-mood", calls[0].Action)
	assert.Equal(t, "expression", calls[0].Channel)
	assert.Equal(t, "sad", calls[0].Label)
	assert.InDelta(t, 0.8, calls[0].Confidence, 1e-9)
	assert.JSONEq(t, `{"dir":"/tmp"}`, string(calls[0].Config))

	assert.Len(t, results.results, 1)
	assert.Len(t, hooked, 1)
}

func TestExecute_Unbound(t *testing.T) {
	runner := &fakeRunner{}
	e, results := newExecutor(t, runner, nil)

	assert.Nil(t, e.Execute(context.Background(), Job{Channel: event.Gesture, Label: event.Pointing}))
	assert.Nil(t, e.Execute(context.Background(), Job{Channel: event.Gesture, Label: event.Fist}), "disabled binding")
	assert.Empty(t, runner.calls())
	assert.Empty(t, results.results)
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name   string
		job    Job
		runner *fakeRunner
		detail string
	}{
		{"plugin missing", Job{Channel: event.Gesture, Label: event.Wave}, &fakeRunner{}, "plugin not found"},
		{"runner error", Job{Channel: event.Blink, Label: event.DoubleBlink}, &fakeRunner{err: errors.New("boom")}, "boom"},
		{"plugin reports failure", Job{Channel: event.Blink, Label: event.DoubleBlink},
			&fakeRunner{resp: &plugin.Response{Success: false, Error: "no display"}}, "no display"},
		{"lookup error", Job{Channel: event.Blink, Label: "broken"}, &fakeRunner{}, "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, results := newExecutor(t, tt.runner, nil)

			res := e.Execute(context.Background(), tt.job)
			require.NotNil(t, res)
			assert.Equal(t, store.StatusFailure, res.Status)
			assert.Contains(t, res.Detail, tt.detail)
			assert.Len(t, results.results, 1)
		})
	}
}

func TestExecute_LogsResults(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e, _ := newExecutor(t, &fakeRunner{err: errors.New("boom")}, func(c *Config) {
		c.Logger = zap.New(core)
	})

	e.Execute(context.Background(), Job{Channel: event.Blink, Label: event.DoubleBlink})
	assert.Equal(t, 1, logs.FilterMessage("action failed").FilterLevelExact(zap.WarnLevel).Len())
}

func TestOnConfirmed_ExpressionThreshold(t *testing.T) {
	runner := &fakeRunner{}
	e, _ := newExecutor(t, runner, nil)

	// Skipped before the running check.
	err := e.OnConfirmed(event.Sad, dispatch.Payload{Channel: event.Expression, Confidence: 0.5})
	assert.NoError(t, err)
	assert.Empty(t, e.jobs)
}

func TestOnConfirmed_NotRunning(t *testing.T) {
	e, _ := newExecutor(t, &fakeRunner{}, nil)

	err := e.OnConfirmed(event.DoubleBlink, dispatch.Payload{Channel: event.Blink, Confidence: 1})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestWorker_ExecutesQueuedJobs(t *testing.T) {
	done := make(chan store.ActionResult, 1)
	runner := &fakeRunner{}
	e, _ := newExecutor(t, runner, func(c *Config) {
		c.OnResult = func(r store.ActionResult) { done <- r }
	})
	e.Start(context.Background())
	require.True(t, e.Running())

	require.NoError(t, e.OnConfirmed(event.DoubleBlink, dispatch.Payload{Channel: event.Blink, Confidence: 1}))

	select {
	case r := <-done:
		assert.Equal(t, "screenshot", r.ActionName)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not execute the job")
	}

	e.Stop()
	assert.False(t, e.Running())
}

func TestWorker_QueueFull(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	e, _ := newExecutor(t, runner, func(c *Config) { c.QueueSize = 1 })
	e.Start(context.Background())

	p := dispatch.Payload{Channel: event.Blink, Confidence: 1}
	require.NoError(t, e.OnConfirmed(event.DoubleBlink, p))
	<-runner.started // worker is busy with the first job

	require.NoError(t, e.OnConfirmed(event.DoubleBlink, p))
	err := e.OnConfirmed(event.DoubleBlink, p)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(runner.release)
}

func TestRegister_AllChannels(t *testing.T) {
	e, _ := newExecutor(t, &fakeRunner{}, nil)
	d, err := dispatch.New(dispatch.Config{Channels: dispatch.DefaultChannels()})
	require.NoError(t, err)

	e.Register(d)
	outcomes := d.Dispatch([]event.Confirmed{{Channel: event.Blink, Label: event.DoubleBlink, Confidence: 1}})
	require.Len(t, outcomes, 1)
	assert.Equal(t, 1, outcomes[0].Failed, "not running yet, so the callback reports an error")
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{
		Bindings: testBindings(), Plugins: fakePlugins{}, Runner: &fakeRunner{},
		MinExpressionConfidence: 1.5,
	}.Validate())
	assert.NoError(t, Config{Bindings: testBindings(), Plugins: fakePlugins{}, Runner: &fakeRunner{}}.Validate())
}
