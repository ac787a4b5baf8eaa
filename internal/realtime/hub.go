package realtime

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	aggdomain "pulsetrack-api/internal/aggregate/core/domain"
	"pulsetrack-api/internal/aggregate/core/ports"
)

// Update is the envelope pushed to dashboard subscribers.
type Update struct {
	Type      string                 `json:"type"`
	SiteID    int64                  `json:"site_id"`
	Name      string                 `json:"name,omitempty"`
	Data      []aggdomain.ClickPoint `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

const subscriberBuffer = 16

// Subscriber is one connected dashboard. Updates is closed by the hub on
// Unsubscribe; the transport must stop reading from it after that.
type Subscriber struct {
	ClientID string
	SiteID   int64
	Updates  chan Update
}

// Hub fans aggregation deltas out to live subscribers. Each subscriber has a
// bounded buffer; when it fills, the oldest pending update is dropped so slow
// readers see the newest state and never stall the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[*Subscriber]struct{})}
}

var _ ports.DeltaPublisherPort = (*Hub)(nil)

// Subscribe registers a dashboard for one site's updates.
func (h *Hub) Subscribe(clientID string, siteID int64) *Subscriber {
	sub := &Subscriber{
		ClientID: clientID,
		SiteID:   siteID,
		Updates:  make(chan Update, subscriberBuffer),
	}

	h.mu.Lock()
	set := h.subs[siteID]
	if set == nil {
		set = make(map[*Subscriber]struct{})
		h.subs[siteID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	logrus.Debugf("hub: client %s subscribed to site %d", clientID, siteID)
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call for
// a subscriber that was already removed.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	set := h.subs[sub.SiteID]
	if _, ok := set[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.SiteID)
	}
	h.mu.Unlock()

	close(sub.Updates)
	logrus.Debugf("hub: client %s unsubscribed from site %d", sub.ClientID, sub.SiteID)
}

// Publish delivers one update to every subscriber of its site, dropping the
// oldest buffered update per slow subscriber.
func (h *Hub) Publish(u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[u.SiteID] {
		select {
		case sub.Updates <- u:
		default:
			// Buffer full: evict the oldest and retry once. The drain and
			// the send can both lose a race with the reader, which is fine,
			// the update is simply dropped.
			select {
			case <-sub.Updates:
			default:
			}
			select {
			case sub.Updates <- u:
			default:
			}
		}
	}
}

// PublishAnalyticsUpdate adapts aggregator deltas onto the wire envelope.
func (h *Hub) PublishAnalyticsUpdate(siteID int64, eventName string, points []aggdomain.ClickPoint) {
	h.Publish(Update{
		Type:      "analytics_update",
		SiteID:    siteID,
		Name:      eventName,
		Data:      points,
		Timestamp: time.Now().Unix(),
	})
}

// Subscribers reports the current subscriber count for one site.
func (h *Hub) Subscribers(siteID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[siteID])
}
