package events

import (
	"context"
	"encoding/json"

	"github.com/ehr/ward/internal/platform/websocket"
)

// Navigator requests a view change on the client. It does not report whether
// any client acted on it.
type Navigator interface {
	Navigate(view string, params map[string]string)
}

const (
	ViewPatient      = "patient"
	ViewAppointments = "appointments"
)

// HubNavigator broadcasts navigation requests on the websocket hub.
type HubNavigator struct {
	hub *websocket.Hub
}

func NewHubNavigator(hub *websocket.Hub) *HubNavigator {
	return &HubNavigator{hub: hub}
}

func (n *HubNavigator) Navigate(view string, params map[string]string) {
	n.hub.Broadcast(websocket.Message{
		Type:   "navigate",
		Topic:  websocket.TopicNavigation,
		View:   view,
		Params: params,
	})
}

// HubPublisher mirrors workflow events to websocket clients subscribed to
// the events topic.
type HubPublisher struct {
	hub *websocket.Hub
}

func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.hub.Publish(ctx, websocket.Message{
		ID:        evt.ID,
		Type:      evt.Type,
		Topic:     websocket.TopicEvents,
		Timestamp: evt.OccurredAt,
		Data:      raw,
	})
}
