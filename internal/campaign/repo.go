package campaign

import "context"

// Repository abstracts campaign persistence. The engine never writes
// campaigns; the dashboard owns their lifecycle.
type Repository interface {
	GetByID(ctx context.Context, id string) (Campaign, error)
	ListActive(ctx context.Context) ([]Campaign, error)
}
