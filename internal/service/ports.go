package service

import (
	"context"

	"parkflow/internal/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// VehicleSource looks up a parked vehicle on the backend.
type VehicleSource interface {
	GetVehicle(ctx context.Context, actor domain.Actor, vehicleID string) (*domain.Vehicle, error)
}

// Broadcaster fans checkout notifications out to connected clients.
type Broadcaster interface {
	Broadcast(n domain.CheckoutNotification)
}

// EventPublisher hands checkout events to an asynchronous queue.
type EventPublisher interface {
	Publish(n domain.CheckoutNotification) bool
}
