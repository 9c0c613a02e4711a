package broadcast

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/logging"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
	"golang.org/x/sync/errgroup"
)

// Pusher delivers bytes to one connection. It must return an error wrapping
// domain.ErrGone when the connection no longer exists on the transport.
type Pusher interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}

// Evictor removes a connection row. domain.ConnectionRegistry satisfies it.
type Evictor interface {
	Delete(ctx context.Context, connectionID string) error
}

// Report summarises one fan-out. Targets = Skipped + Delivered + Evicted + Failed.
type Report struct {
	Targets   int
	Skipped   int
	Delivered int
	// Evicted counts gone connections whose row was deleted.
	Evicted int
	// Failed counts non-gone push errors and gone pushes whose eviction failed.
	Failed int
}

type Dispatcher struct {
	pusher         Pusher
	evictor        Evictor
	maxConcurrency int
	logger         logging.Logger
}

// NewDispatcher builds a dispatcher running at most maxConcurrency pushes at
// once. Zero means no limit.
func NewDispatcher(pusher Pusher, evictor Evictor, maxConcurrency int, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		pusher:         pusher,
		evictor:        evictor,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Dispatch pushes payload once to every target except the one whose id equals
// exclude, then waits for all attempts. It never fails as a whole.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []domain.Connection, payload []byte, exclude string) Report {
	start := time.Now()
	report := Report{Targets: len(targets)}

	var delivered, evicted, failed atomic.Int64

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	for _, target := range targets {
		if exclude != "" && target.ConnectionID == exclude {
			report.Skipped++
			continue
		}

		g.Go(func() error {
			switch d.deliver(ctx, target, payload) {
			case outcomeDelivered:
				delivered.Add(1)
			case outcomeEvicted:
				evicted.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	report.Delivered = int(delivered.Load())
	report.Evicted = int(evicted.Load())
	report.Failed = int(failed.Load())

	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())

	return report
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeEvicted
	outcomeFailed
)

func (d *Dispatcher) deliver(ctx context.Context, target domain.Connection, payload []byte) outcome {
	err := d.pusher.Push(ctx, target.ConnectionID, payload)
	if err == nil {
		metrics.PushesTotal.WithLabelValues("delivered").Inc()
		return outcomeDelivered
	}

	extra := map[logging.ExtraKey]any{
		logging.ConnectionID: target.ConnectionID,
		logging.TeamCode:     target.TeamCode,
		logging.ErrorMessage: err.Error(),
	}

	if !errors.Is(err, domain.ErrGone) {
		metrics.PushesTotal.WithLabelValues("failed").Inc()
		d.logger.Warn(logging.WebSocket, logging.Push, "push failed, keeping connection", extra)
		return outcomeFailed
	}

	metrics.PushesTotal.WithLabelValues("gone").Inc()

	// The row must go even if the caller has given up on the broadcast.
	if err := d.evictor.Delete(context.WithoutCancel(ctx), target.ConnectionID); err != nil {
		metrics.EvictionsTotal.WithLabelValues("error").Inc()
		extra[logging.ErrorMessage] = err.Error()
		d.logger.Error(logging.Internal, logging.Eviction, "failed to evict gone connection", extra)
		return outcomeFailed
	}

	metrics.EvictionsTotal.WithLabelValues("success").Inc()
	d.logger.Info(logging.Internal, logging.Eviction, "evicted gone connection", extra)
	return outcomeEvicted
}
