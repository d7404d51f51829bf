package entries

import (
	"context"

	"github.com/dmitrijs2005/gophjournal/internal/client/models"
)

// Repository describes the storage operations on sealed entries.
type Repository interface {
	// Insert adds a new entry; common.ErrorAlreadyExists if the id is taken.
	Insert(ctx context.Context, entry *models.Entry) error

	// Upsert inserts or replaces the entry with the same id and owner.
	Upsert(ctx context.Context, entry *models.Entry) error

	// UpdateEnvelope replaces the sealed payload of an existing entry.
	UpdateEnvelope(ctx context.Context, entry *models.Entry) error

	// GetByID returns one entry of owner; common.ErrorNotFound if absent.
	GetByID(ctx context.Context, owner, id string) (*models.Entry, error)

	// ListByOwner returns the owner's entries ordered by creation time.
	ListByOwner(ctx context.Context, owner string) ([]*models.Entry, error)

	// DeleteByID removes one entry; common.ErrorNotFound if absent.
	DeleteByID(ctx context.Context, owner, id string) error

	// DeleteByOwner removes every entry of owner and returns the count.
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
}
