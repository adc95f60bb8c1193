package embedding

import (
	"fmt"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
)

// Provider constants
const (
	ProviderTrigram = "trigram"
	ProviderNone    = "none"
)

// NewClient creates a label embedding client based on the provider name.
// ProviderNone, the default, returns a nil client, which disables fuzzy
// label matching.
func NewClient(provider string, dimensions int) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderTrigram:
		return NewTrigramClient(dimensions), nil

	case ProviderNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: trigram, none)", provider)
	}
}
