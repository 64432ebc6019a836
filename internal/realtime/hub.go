// Package realtime fans newly created diagnoses out to clients watching a
// patient. Delivery is live only: a subscription sees records published after
// it was created and nothing before.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
)

const defaultBuffer = 32

// Subscription is one viewer's stream for a patient. C is closed after Close
// or when the hub evicts a subscriber that stopped draining it.
type Subscription struct {
	C         <-chan *model.Diagnosis
	PatientID uuid.UUID

	ch  chan *model.Diagnosis
	hub *Hub
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s, false)
}

// Hub tracks subscriptions by patient id. Publishers never block: a
// subscriber whose buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	topics  map[uuid.UUID]map[*Subscription]struct{}
	buffer  int
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewHub(buffer int, logger zerolog.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		topics:  make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer:  buffer,
		logger:  logger.With().Str("component", "realtime-hub").Logger(),
		metrics: m,
	}
}

func (h *Hub) Subscribe(patientID uuid.UUID) *Subscription {
	ch := make(chan *model.Diagnosis, h.buffer)
	sub := &Subscription{C: ch, PatientID: patientID, ch: ch, hub: h}

	h.mu.Lock()
	if h.topics[patientID] == nil {
		h.topics[patientID] = make(map[*Subscription]struct{})
	}
	h.topics[patientID][sub] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeSubscribers.Inc()
	}
	h.logger.Debug().Str("patient_id", patientID.String()).Msg("subscriber attached")
	return sub
}

// Broadcast hands d to every subscriber of patientID and returns how many
// received it.
func (h *Hub) Broadcast(patientID uuid.UUID, d *model.Diagnosis) int {
	var stalled []*Subscription
	delivered := 0

	h.mu.RLock()
	for sub := range h.topics[patientID] {
		select {
		case sub.ch <- d:
			delivered++
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stalled {
		h.remove(sub, true)
	}

	if h.metrics != nil && delivered > 0 {
		h.metrics.NotificationsSent.Add(float64(delivered))
	}
	return delivered
}

func (h *Hub) SubscriberCount(patientID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[patientID])
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for patientID, subs := range h.topics {
		for sub := range subs {
			close(sub.ch)
			if h.metrics != nil {
				h.metrics.RealtimeSubscribers.Dec()
			}
		}
		delete(h.topics, patientID)
	}
}

// remove closes sub's channel exactly once: membership in topics is the guard.
func (h *Hub) remove(sub *Subscription, evicted bool) {
	h.mu.Lock()
	subs, ok := h.topics[sub.PatientID]
	if ok {
		_, ok = subs[sub]
	}
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, sub.PatientID)
	}
	close(sub.ch)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeSubscribers.Dec()
		if evicted {
			h.metrics.NotificationsEvicted.Inc()
		}
	}

	event := h.logger.Debug()
	if evicted {
		event = h.logger.Warn()
	}
	event.Str("patient_id", sub.PatientID.String()).Bool("evicted", evicted).Msg("subscriber detached")
}
