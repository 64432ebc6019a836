package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/pkg/circuitbreaker"
	"github.com/jwalitptl/medhist-api/pkg/messaging"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
)

const EventDiagnosisCreated = "diagnosis.created"

// Event is the frame written to stream clients
type Event struct {
	Type      string           `json:"type"`
	PatientID uuid.UUID        `json:"patient_id"`
	Diagnosis *model.Diagnosis `json:"diagnosis"`
}

func NewDiagnosisEvent(d *model.Diagnosis) Event {
	return Event{Type: EventDiagnosisCreated, PatientID: d.PatientID, Diagnosis: d}
}

// Envelope is the broker payload shared between instances
type Envelope struct {
	PatientID uuid.UUID        `json:"patient_id"`
	Diagnosis *model.Diagnosis `json:"diagnosis"`
}

// Notifier publishes diagnoses to the local hub, or through the broker when
// one is configured so that every instance's hub receives them.
type Notifier struct {
	hub          *Hub
	broker       messaging.Broker
	channel      string
	retryBackoff time.Duration
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

type NotifierOption func(*Notifier)

// WithBroker routes publishes through broker on channel
func WithBroker(broker messaging.Broker, channel string) NotifierOption {
	return func(n *Notifier) {
		n.broker = broker
		n.channel = channel
	}
}

// WithRetryBackoff sets the pause before the relay resubscribes
func WithRetryBackoff(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		n.retryBackoff = d
	}
}

func NewNotifier(hub *Hub, logger zerolog.Logger, m *metrics.Metrics, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		hub:          hub,
		retryBackoff: time.Second,
		logger:       logger.With().Str("component", "realtime-notifier").Logger(),
		metrics:      m,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish delivers d to subscribers of patientID. When the broker publish
// fails the record is still delivered locally and the broker error returned.
func (n *Notifier) Publish(ctx context.Context, patientID uuid.UUID, d *model.Diagnosis) error {
	if n.broker != nil {
		err := n.broker.Publish(ctx, n.channel, Envelope{PatientID: patientID, Diagnosis: d})
		if err == nil {
			n.observe("broker", "success")
			return nil
		}
		if circuitbreaker.IsOpen(err) {
			// the breaker already logged the outage when it opened
			n.observe("broker", "circuit_open")
			n.logger.Debug().Str("patient_id", patientID.String()).Msg("broker circuit open, delivering locally")
		} else {
			n.observe("broker", "error")
			n.logger.Warn().Err(err).Str("patient_id", patientID.String()).Msg("broker publish failed, delivering locally")
		}
		n.hub.Broadcast(patientID, d)
		n.observe("local", "fallback")
		return fmt.Errorf("failed to publish diagnosis to broker: %w", err)
	}

	n.hub.Broadcast(patientID, d)
	n.observe("local", "success")
	return nil
}

// Subscribe attaches to patientID until ctx is done or the caller closes the
// subscription.
func (n *Notifier) Subscribe(ctx context.Context, patientID uuid.UUID) *Subscription {
	sub := n.hub.Subscribe(patientID)
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub
}

// Run relays broker messages into the local hub until ctx is done. Without a
// broker it returns immediately.
func (n *Notifier) Run(ctx context.Context) error {
	if n.broker == nil {
		return nil
	}

	for {
		messages, err := n.broker.Subscribe(ctx, n.channel)
		if err != nil {
			n.logger.Error().Err(err).Str("channel", n.channel).Msg("relay subscribe failed")
		} else {
			n.logger.Info().Str("channel", n.channel).Msg("relay subscribed")
			for payload := range messages {
				n.relay(payload)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.retryBackoff):
		}
	}
}

func (n *Notifier) relay(payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		n.logger.Error().Err(err).Msg("failed to decode relayed diagnosis")
		return
	}
	if env.Diagnosis == nil || env.PatientID == uuid.Nil {
		n.logger.Error().Msg("relayed diagnosis envelope is incomplete")
		return
	}
	n.hub.Broadcast(env.PatientID, env.Diagnosis)
}

func (n *Notifier) observe(transport, status string) {
	if n.metrics == nil {
		return
	}
	n.metrics.NotificationPublishes.WithLabelValues(transport, status).Inc()
}
