package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/jesseKyomuhendo/auth-user-api/internal/identity/service"
)

const (
	instrumentationName = "github.com/jesseKyomuhendo/auth-user-api/session"
	sessionEventsMetric = "auth.session.events"
)

// recordEmitter is the part of otellog.Logger used here; tests capture records through it.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// SessionEvents reports session lifecycle events as OTel log records and counts them in
// auth.session.events by event and outcome. It implements service.EventRecorder.
type SessionEvents struct {
	logger  recordEmitter
	counter otelmetric.Int64Counter
}

var _ service.EventRecorder = (*SessionEvents)(nil)

// NewSessionEvents returns a recorder using lp for log records and mp for the counter.
func NewSessionEvents(lp otellog.LoggerProvider, mp otelmetric.MeterProvider) (*SessionEvents, error) {
	return newSessionEvents(lp.Logger(instrumentationName), mp)
}

func newSessionEvents(logger recordEmitter, mp otelmetric.MeterProvider) (*SessionEvents, error) {
	counter, err := mp.Meter(instrumentationName).Int64Counter(sessionEventsMetric,
		otelmetric.WithDescription("Session lifecycle events by type and outcome"),
		otelmetric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &SessionEvents{logger: logger, counter: counter}, nil
}

// Record emits e synchronously.
func (s *SessionEvents) Record(ctx context.Context, e service.Event) {
	s.counter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("event", string(e.Type)),
		attribute.String("outcome", e.Outcome),
	))

	rec := otellog.Record{}
	rec.SetTimestamp(e.At)
	rec.SetBody(otellog.StringValue(string(e.Type)))
	if e.Outcome == service.OutcomeSuccess {
		rec.SetSeverity(otellog.SeverityInfo)
	} else {
		rec.SetSeverity(otellog.SeverityWarn)
	}
	rec.AddAttributes(
		otellog.String("event", string(e.Type)),
		otellog.String("outcome", e.Outcome),
	)
	if e.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", e.UserID))
	}
	if e.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", e.SessionID))
	}
	s.logger.Emit(ctx, rec)
}
