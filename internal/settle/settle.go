// Package settle waits for the kernel to publish device nodes after a
// privileged operation (partition table write, LUKS open).
package settle

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/sigreer/disklayer/internal/failure"
)

// Defaults for Policy fields left at zero
const (
	DefaultTimeout         = 10 * time.Second
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second
)

// Policy bounds a poll: the check is retried with exponential backoff
// until it succeeds or Timeout elapses.
type Policy struct {
	Timeout         time.Duration `yaml:"timeout"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Default returns the policy used when nothing is configured
func Default() Policy {
	return Policy{
		Timeout:         DefaultTimeout,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultInitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultMaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// Wait calls check until it returns nil. Only Resolution failures mean
// "not visible yet" and are retried; any other error is returned at once.
// When the timeout elapses the last check error is returned wrapped in a
// Timeout failure naming what. Context cancellation is returned as is.
func (p Policy) Wait(ctx context.Context, what string, check func() error) error {
	p = p.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.Timeout

	var last error
	op := func() error {
		last = check()
		if last != nil && !failure.IsKind(last, failure.Resolution) {
			return backoff.Permanent(last)
		}
		return last
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if !failure.IsKind(last, failure.Resolution) {
		return last
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return failure.New(failure.Timeout, what, last)
}
