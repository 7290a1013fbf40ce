// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/geosim/internal/logger"
)

// SinkBufferSize is the subscription buffer size of each sink.
const SinkBufferSize = 64

// ErrSinkStopped is returned by safeConsume if a sink returned while the context was still active.
var ErrSinkStopped = errors.New("sink stopped consuming")

// Sink consumes events from the GeoBus until the context is canceled or the channel is closed.
type Sink interface {
	Name() string
	Consume(ctx context.Context, events <-chan Event) error
}

// Orchestrator runs a set of sinks, each on its own subscription of a GeoBus. Failing or
// panicking sinks are restarted with an exponential backoff.
type Orchestrator struct {
	Bus   *GeoBus
	Sinks []Sink
}

// Run starts all sinks and blocks until the context is canceled and all sinks have returned.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range o.Sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			o.runSink(ctx, s)
		}(s)
	}
	<-ctx.Done()
	wg.Wait()
}

// runSink continuously runs a Sink on a fresh subscription and implements the restart backoff.
func (o *Orchestrator) runSink(ctx context.Context, s Sink) {
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		events, unsub := o.Bus.SubscribeAll(SinkBufferSize)
		started := time.Now()
		err := safeConsume(ctx, s, events)
		unsub()
		if ctx.Err() != nil {
			return
		}

		o.logger().Warn("sink terminated, restarting", slog.String("sink", s.Name()),
			slog.Duration("backoff", backoff), logger.Err(err))
		if time.Since(started) > maxBackoff {
			backoff = initialBackoff
		}
		if !sleepOrDone(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func (o *Orchestrator) logger() *logger.Logger {
	return o.Bus.logger
}

// safeConsume invokes the Consume method of a Sink and recovers from potential panics.
func safeConsume(ctx context.Context, s Sink, events <-chan Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", s.Name(), r)
		}
	}()
	if err = s.Consume(ctx, events); err != nil {
		return err
	}
	if ctx.Err() == nil {
		return ErrSinkStopped
	}
	return nil
}
