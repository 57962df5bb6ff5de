package services

import (
	"sync"

	"github.com/kendall-kelly/service-marketplace-api/metrics"
	"github.com/rs/zerolog/log"
)

// Channel is one open push connection to a client
type Channel interface {
	Deliver(payload []byte) error
}

// NotificationHub maps usernames to their open push channels. A user may
// hold several channels at once (one per open session).
type NotificationHub struct {
	mu       sync.RWMutex
	channels map[string]map[Channel]struct{}
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		channels: make(map[string]map[Channel]struct{}),
	}
}

// Connect registers ch under identity
func (h *NotificationHub) Connect(identity string, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.channels[identity]
	if !ok {
		set = make(map[Channel]struct{})
		h.channels[identity] = set
	}
	if _, exists := set[ch]; !exists {
		set[ch] = struct{}{}
		metrics.NotificationChannelsOpen.Inc()
	}
}

// Disconnect removes ch. The identity entry is dropped with its last channel.
func (h *NotificationHub) Disconnect(identity string, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.channels[identity]
	if !ok {
		return
	}
	if _, exists := set[ch]; exists {
		delete(set, ch)
		metrics.NotificationChannelsOpen.Dec()
	}
	if len(set) == 0 {
		delete(h.channels, identity)
	}
}

// Send delivers payload to every channel of identity and returns how many
// writes succeeded. Unknown identities are a no-op.
func (h *NotificationHub) Send(identity string, payload []byte) int {
	h.mu.RLock()
	targets := make([]Channel, 0, len(h.channels[identity]))
	for ch := range h.channels[identity] {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	return deliver("direct", targets, payload)
}

// Broadcast delivers payload to every open channel
func (h *NotificationHub) Broadcast(payload []byte) int {
	h.mu.RLock()
	var targets []Channel
	for _, set := range h.channels {
		for ch := range set {
			targets = append(targets, ch)
		}
	}
	h.mu.RUnlock()

	return deliver("broadcast", targets, payload)
}

// Connections reports how many channels identity holds
func (h *NotificationHub) Connections(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[identity])
}

// Identities reports how many identities hold at least one channel
func (h *NotificationHub) Identities() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

func deliver(kind string, targets []Channel, payload []byte) int {
	delivered := 0
	for _, ch := range targets {
		if err := ch.Deliver(payload); err != nil {
			metrics.NotificationsDelivered.WithLabelValues(kind, "error").Inc()
			log.Warn().Err(err).Str("kind", kind).Msg("Failed to deliver notification")
			continue
		}
		metrics.NotificationsDelivered.WithLabelValues(kind, "ok").Inc()
		delivered++
	}
	return delivered
}
