package elasticsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/indices/create"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/rs/zerolog/log"
)

var ErrProvision = errors.New("index provisioning failed")

const alreadyExistsType = "resource_already_exists_exception"

type Provisioner interface {
	EnsureIndices(ctx context.Context, indices ...string) error
}

type indexProvisioner struct {
	client *Client
}

func NewProvisioner(c *Client) Provisioner {
	return &indexProvisioner{client: c}
}

// CommonMapping types the fields shared by every sentinel index; everything else is
// left to dynamic mapping.
func CommonMapping() *types.TypeMapping {
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"@timestamp": types.NewDateProperty(),
			"is_error":   types.NewBooleanProperty(),
			"message":    types.NewTextProperty(),
		},
	}
}

// EnsureIndices creates each missing index with CommonMapping. Existing indices are
// left untouched, so calling it on every run is safe.
func (p *indexProvisioner) EnsureIndices(ctx context.Context, indices ...string) error {
	for _, index := range indices {
		exists, err := p.client.Typed.Indices.Exists(index).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: checking index %s: %w", ErrProvision, index, err)
		}
		if exists {
			log.Info().Str("index", index).Msg("Index already exists")
			continue
		}

		_, err = p.client.Typed.Indices.Create(index).
			Request(&create.Request{Mappings: CommonMapping()}).
			Do(ctx)
		if err != nil {
			var esErr *types.ElasticsearchError
			if errors.As(err, &esErr) && esErr.ErrorCause.Type == alreadyExistsType {
				log.Info().Str("index", index).Msg("Index created concurrently, treating as present")
				continue
			}
			return fmt.Errorf("%w: creating index %s: %w", ErrProvision, index, err)
		}
		log.Info().Str("index", index).Msg("Created index")
	}
	return nil
}
