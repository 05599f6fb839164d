package storage

import (
	"context"

	"baqec/internal/model"
)

// Store archives finished sweep records. The decoding core never touches it.
type Store interface {
	Init(ctx context.Context) error
	SaveSweep(ctx context.Context, record model.SweepRecord) error
	GetSweep(ctx context.Context, id string) (model.SweepRecord, bool, error)
	ListSweeps(ctx context.Context) ([]model.SweepRecord, error)
	DeleteSweep(ctx context.Context, id string) error
}
