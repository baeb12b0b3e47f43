package services

import "context"

// StatusEvents fans aggregate status changes out to the redis cache/channel
// and the admin dashboard over the websocket hub. Implements the
// reconciler's Events collaborator.
type StatusEvents struct {
	redis RedisEvents
	hub   *Hub
}

// NewStatusEvents creates the combined events sink
func NewStatusEvents(hub *Hub) *StatusEvents {
	return &StatusEvents{hub: hub}
}

func (e *StatusEvents) PublishDispatchStatus(ctx context.Context, dispatchID uint, status string) error {
	if e.hub != nil {
		e.hub.SendDispatchStatusUpdate(DispatchStatusUpdate{DispatchID: dispatchID, Status: status})
	}
	return e.redis.PublishDispatchStatus(ctx, dispatchID, status)
}
