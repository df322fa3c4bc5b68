package services

import (
	"context"
)

// ContextHub matches *realtime.Hub's Run method without importing the
// package.
type ContextHub interface {
	Run(ctx context.Context) error
}

// HubService supervises the realtime hub. Hub.Run already follows the
// suture contract (blocks, returns ctx.Err() on cancellation, leaves no
// orphaned state), so this wrapper only adds the service name.
type HubService struct {
	hub ContextHub
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// String names the service in supervisor logs.
func (s *HubService) String() string {
	return "realtime-hub"
}
