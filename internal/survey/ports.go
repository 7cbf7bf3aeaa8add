package survey

import "context"

type Repo interface {
	Insert(ctx context.Context, s Survey) (string, error)
	// List returns responses newest first. A limit <= 0 returns everything.
	List(ctx context.Context, limit int64) ([]Survey, error)
	Get(ctx context.Context, id string) (Survey, error)
	Delete(ctx context.Context, id string) error
}
