package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"

	"elastic-sentinel/config"
)

// ErrUnavailable marks connectivity and authentication failures.
var ErrUnavailable = errors.New("elasticsearch unavailable")

// Client bundles the low-level client (bulk indexing, info) and the typed client
// (index management) built from the same configuration.
type Client struct {
	ES    *elasticsearch.Client
	Typed *elasticsearch.TypedClient
	url   string
}

// NewClient builds the clients without contacting the cluster. Retries are disabled:
// a failed request surfaces immediately.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Elasticsearch.URL == "" {
		log.Error().Msg("Elasticsearch URL is not configured.")
		return nil, errors.New("elasticsearch configuration missing")
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: cfg.Elasticsearch.RequestTimeout,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
	}
	esCfg := elasticsearch.Config{
		Addresses:    []string{cfg.Elasticsearch.URL},
		APIKey:       cfg.Elasticsearch.APIKey,
		Transport:    transport,
		DisableRetry: true,
	}

	esClient, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	typedClient, err := elasticsearch.NewTypedClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating typed elasticsearch client: %w", err)
	}
	return &Client{ES: esClient, Typed: typedClient, url: cfg.Elasticsearch.URL}, nil
}

// Connect builds the clients and verifies the cluster answers an info request.
func Connect(ctx context.Context, cfg *config.Config) (*Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	info, err := c.Info(ctx)
	if err != nil {
		log.Error().Err(err).Str("url", c.url).Msg("Elasticsearch connectivity check failed")
		return nil, err
	}
	log.Info().Str("url", c.url).Str("server_info", info).Msg("Elasticsearch client initialized and connection verified")
	return c, nil
}

// Info returns the raw cluster info body.
func (c *Client) Info(ctx context.Context) (string, error) {
	res, err := c.ES.Info(c.ES.Info.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading info response: %w", ErrUnavailable, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("%w: info returned %s: %s", ErrUnavailable, res.Status(), body)
	}
	return string(body), nil
}
