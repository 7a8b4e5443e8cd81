package transfer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("transfer request not found")
	ErrNotPending      = errors.New("transfer request is not pending")
	ErrPatientNotFound = errors.New("patient not found")
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// List returns requests newest first. An empty status matches all.
	List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error)
	// Decide moves a pending request to status. It fails with ErrNotPending
	// when the request was already decided and ErrNotFound when it is unknown.
	Decide(ctx context.Context, id uuid.UUID, status string, d Decision) (*Request, error)
	CountPending(ctx context.Context) (int, error)
}
