package metrics

import (
	"context"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/relay"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer records relay outcomes as Prometheus metrics.
type Observer struct {
	published      prometheus.Counter
	failed         prometheus.Counter
	deadLettered   prometheus.Counter
	outcomeErrors  prometheus.Counter
	cycles         *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
	pending        prometheus.Gauge
}

var _ relay.Observer = (*Observer)(nil)

// New creates the relay collectors and registers them with r.
func New(r prometheus.Registerer) *Observer {
	o := &Observer{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events accepted by the publisher",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_failed_total",
			Help: "Failed delivery attempts",
		}),
		deadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_events_dead_lettered_total",
			Help: "Outbox events that exhausted their attempts",
		}),
		outcomeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_outcome_write_errors_total",
			Help: "Delivery outcomes that could not be written back",
		}),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_relay_cycles_total",
				Help: "Relay cycles by result",
			},
			[]string{"result"}, // dispatched|empty|claim_failed
		),
		publishLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outbox_publish_duration_seconds",
				Help:    "Publish call latency by outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"}, // success|failure
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_events",
			Help: "Outbox rows neither delivered nor dead-lettered, sampled after each cycle",
		}),
	}

	r.MustRegister(
		o.published,
		o.failed,
		o.deadLettered,
		o.outcomeErrors,
		o.cycles,
		o.publishLatency,
		o.pending,
	)

	return o
}

func (o *Observer) Delivered(_ context.Context, _ model.ClaimedRecord, latency time.Duration) {
	o.published.Inc()
	o.publishLatency.WithLabelValues("success").Observe(latency.Seconds())
}

func (o *Observer) Failed(_ context.Context, _ model.ClaimedRecord, _ error, out model.FailureOutcome, latency time.Duration) {
	o.failed.Inc()
	if out.DeadLettered {
		o.deadLettered.Inc()
	}
	o.publishLatency.WithLabelValues("failure").Observe(latency.Seconds())
}

func (o *Observer) OutcomeWriteFailed(context.Context, model.ClaimedRecord, error) {
	o.outcomeErrors.Inc()
}

func (o *Observer) CycleCompleted(_ context.Context, s relay.Summary) {
	switch {
	case s.ClaimFailed:
		o.cycles.WithLabelValues("claim_failed").Inc()
	case s.Empty:
		o.cycles.WithLabelValues("empty").Inc()
	default:
		o.cycles.WithLabelValues("dispatched").Inc()
	}
}

func (o *Observer) Backlog(_ context.Context, pending int) {
	o.pending.Set(float64(pending))
}
