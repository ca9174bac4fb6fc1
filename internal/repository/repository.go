package repository

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

import (
	"context"
	"errors"

	"parkflow/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// ReceiptRepository is the journal of issued receipts, kept so a receipt can be reprinted.
type ReceiptRepository interface {
	Create(ctx context.Context, rec *domain.ReceiptRecord) (*domain.ReceiptRecord, error)
	FindByReceiptID(ctx context.Context, receiptID string) (*domain.ReceiptRecord, error)
	FindByVehicleID(ctx context.Context, vehicleID string) ([]domain.ReceiptRecord, error)
}
