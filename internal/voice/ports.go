package voice

import "context"

type Repo interface {
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
	ListClonedModels(ctx context.Context) ([]ClonedModel, error)
	AddClonedModel(ctx context.Context, m ClonedModel) error
	DeleteClonedModel(ctx context.Context, id string) error
}

// SampleArchive stores accepted clone samples for later inspection.
type SampleArchive interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
}
