package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/model"
)

// DocumentError describes one document the backend (or the encoder) rejected.
type DocumentError struct {
	Position int
	Status   int
	Type     string
	Reason   string
}

func (e DocumentError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("document %d: %s", e.Position, e.Reason)
	}
	return fmt.Sprintf("document %d: status %d %s: %s", e.Position, e.Status, e.Type, e.Reason)
}

type IngestResult struct {
	Index     string
	Succeeded int
	Errors    []error
}

func (r IngestResult) Failed() int {
	return len(r.Errors)
}

type LogStore interface {
	// Ingest writes records to index in one bulk pass. Rejected documents are
	// reported in the result, not as an error. A failed bulk request (backend
	// unreachable, credentials rejected, non-2xx answer) returns an error
	// wrapping ErrUnavailable.
	Ingest(ctx context.Context, index string, records []model.LogRecord) (IngestResult, error)
}

type elasticLogStore struct {
	client     *Client
	flushBytes int
}

func NewElasticLogStore(c *Client, cfg *config.Config) LogStore {
	return &elasticLogStore{
		client:     c,
		flushBytes: cfg.Elasticsearch.FlushBytes,
	}
}

func (s *elasticLogStore) Ingest(ctx context.Context, index string, records []model.LogRecord) (IngestResult, error) {
	result := IngestResult{Index: index}
	if len(records) == 0 {
		return result, nil
	}

	var (
		mu        sync.Mutex
		succeeded int
		docErrors []error
		flushErr  error
	)
	addError := func(err error) {
		mu.Lock()
		docErrors = append(docErrors, err)
		mu.Unlock()
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     s.client.ES,
		Index:      index,
		NumWorkers: 1,
		FlushBytes: s.flushBytes,
		OnError: func(ctx context.Context, err error) {
			log.Error().Err(err).Str("index", index).Msg("BulkIndexer error")
			mu.Lock()
			if flushErr == nil {
				flushErr = err
			}
			mu.Unlock()
		},
		OnFlushStart: func(ctx context.Context) context.Context {
			log.Debug().Str("index", index).Msg("BulkIndexer flush starting")
			return ctx
		},
		OnFlushEnd: func(ctx context.Context) {
			log.Debug().Str("index", index).Msg("BulkIndexer flush ended")
		},
	})
	if err != nil {
		return result, fmt.Errorf("creating bulk indexer for %s: %w", index, err)
	}

	for i, record := range records {
		position := i
		data, err := json.Marshal(record)
		if err != nil {
			log.Error().Err(err).Int("position", position).Msg("Failed to marshal record for Elasticsearch")
			addError(DocumentError{Position: position, Reason: err.Error()})
			continue
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action: "index",
			Index:  index,
			Body:   bytes.NewReader(data),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				mu.Lock()
				succeeded++
				mu.Unlock()
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					addError(DocumentError{Position: position, Reason: err.Error()})
					return
				}
				addError(DocumentError{
					Position: position,
					Status:   res.Status,
					Type:     res.Error.Type,
					Reason:   res.Error.Reason,
				})
			},
		})
		if err != nil {
			log.Error().Err(err).Int("position", position).Msg("Failed to add item to BulkIndexer")
			addError(DocumentError{Position: position, Reason: err.Error()})
		}
	}

	closeErr := bi.Close(ctx)
	if closeErr != nil {
		log.Error().Err(closeErr).Str("index", index).Msg("Error closing BulkIndexer")
	}

	stats := bi.Stats()
	log.Debug().
		Str("index", index).
		Uint64("added", stats.NumAdded).
		Uint64("flushed", stats.NumFlushed).
		Uint64("failed", stats.NumFailed).
		Uint64("requests", stats.NumRequests).
		Msg("Elasticsearch BulkIndexer stats")

	mu.Lock()
	defer mu.Unlock()
	result.Succeeded = succeeded
	result.Errors = docErrors
	if flushErr != nil {
		return result, fmt.Errorf("%w: bulk into %s: %w", ErrUnavailable, index, flushErr)
	}
	if closeErr != nil {
		return result, fmt.Errorf("closing bulk indexer for %s: %w", index, closeErr)
	}
	return result, nil
}

