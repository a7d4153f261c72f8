package vector

import (
	"fmt"

	"github.com/regulon-ai/regulon/pkg/config"
)

// New constructs the configured Backend implementation.
func New(cfg config.VectorConfig) (Backend, error) {
	switch cfg.Provider {
	case config.VectorChromem:
		return NewChromemBackend(ChromemConfig{
			Collection:  cfg.Collection,
			PersistPath: cfg.PersistPath,
		})
	case config.VectorQdrant:
		return NewQdrantBackend(QdrantConfig{
			Host:       cfg.Host,
			Port:       cfg.Port,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
		})
	case config.VectorPinecone:
		return NewPineconeBackend(PineconeConfig{
			APIKey:    cfg.APIKey,
			Host:      cfg.Host,
			IndexName: cfg.Collection,
		})
	default:
		return nil, fmt.Errorf("vector: unknown provider %q", cfg.Provider)
	}
}
