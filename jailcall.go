package jailcall

import (
	"context"
	"sync"

	"github.com/vnykmshr/jailcall/internal/clock"
	"github.com/vnykmshr/jailcall/internal/executor"
	"github.com/vnykmshr/jailcall/jaillog"
)

// Defender owns one executor per CommandKey it has seen, lazily created on
// first submission (spec §3.3: "a key's executor is created on first use
// and lives for the process's lifetime").
type Defender struct {
	mu        sync.Mutex
	executors map[CommandKey]*executor.Executor
	configs   map[CommandKey]MsgConfig

	clk clock.Clock
	log jaillog.Logger
}

// Option configures a Defender at construction time.
type Option func(*Defender)

// WithClock overrides the time source. Production code never needs this;
// it exists for deterministic tests of code built on top of jailcall.
func WithClock(c clock.Clock) Option {
	return func(d *Defender) { d.clk = c }
}

// WithLogger overrides the structured logger. Defaults to jaillog.Nop.
func WithLogger(l jaillog.Logger) Option {
	return func(d *Defender) { d.log = l }
}

// WithCommandConfig pins a key's MsgConfig before its executor is created.
// Calling this after the key's first submission has no effect, since the
// executor (and the config it was built with) already exists by then.
func WithCommandConfig(key CommandKey, cfg MsgConfig) Option {
	return func(d *Defender) { d.configs[key] = cfg }
}

// NewDefender creates a Defender ready to accept submissions.
func NewDefender(opts ...Option) *Defender {
	d := &Defender{
		executors: make(map[CommandKey]*executor.Executor),
		configs:   make(map[CommandKey]MsgConfig),
		clk:       clock.Real,
		log:       jaillog.Nop,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close stops every key's executor. Submissions already in flight are
// allowed to finish; new submissions under a key whose executor Close
// stopped fail with ConfigError. A key first submitted after Close gets a
// new executor.
func (d *Defender) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ex := range d.executors {
		ex.Close()
	}
}

func (d *Defender) executorFor(key CommandKey) *executor.Executor {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ex, ok := d.executors[key]; ok {
		return ex
	}

	cfg, ok := d.configs[key]
	if !ok {
		cfg = DefaultMsgConfig()
	}
	ex := executor.New(string(key), cfg.toExecutorConfig(), d.clk, d.log)
	d.executors[key] = ex
	return ex
}

// Submit runs cmd under key through d, blocking until the single outcome
// jailcall guarantees every submission receives (spec §8.1). Go does not
// allow a generic method with its own type parameter on Defender, so this
// is a package-level function instead — the same shape the stdlib uses
// for e.g. context value helpers.
func Submit[T any](ctx context.Context, d *Defender, key CommandKey, cmd Command[T]) (T, error) {
	ex := d.executorFor(key)
	v, err := ex.Submit(ctx, cmd.erased)
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
