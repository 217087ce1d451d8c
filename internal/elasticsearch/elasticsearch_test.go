package elasticsearch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/elasticsearch"
	"elastic-sentinel/internal/elasticsearch/estest"
	"elastic-sentinel/internal/model"
)

var indices = []string{"sentinel-api-logs", "sentinel-db-logs", "sentinel-deploy-logs"}

func testConfig(url string) *config.Config {
	return &config.Config{
		Elasticsearch: config.ElasticsearchConfig{
			URL:            url,
			APIIndex:       indices[0],
			DBIndex:        indices[1],
			DeployIndex:    indices[2],
			FlushBytes:     5 * 1024 * 1024,
			RequestTimeout: 5 * time.Second,
		},
	}
}

func connect(t *testing.T, srv *estest.Server) *elasticsearch.Client {
	t.Helper()
	c, err := elasticsearch.Connect(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	return c
}

func TestConnect_SendsAPIKey(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Elasticsearch.APIKey = "c2VjcmV0"
	_, err := elasticsearch.Connect(context.Background(), cfg)
	require.NoError(t, err)

	headers := srv.AuthHeaders()
	require.NotEmpty(t, headers)
	assert.Equal(t, "ApiKey c2VjcmV0", headers[0])
}

func TestConnect_RejectedCredentials(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()
	srv.FailInfo()

	_, err := elasticsearch.Connect(context.Background(), testConfig(srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, elasticsearch.ErrUnavailable)
}

func TestConnect_Unreachable(t *testing.T) {
	srv := estest.NewServer()
	url := srv.URL
	srv.Close()

	_, err := elasticsearch.Connect(context.Background(), testConfig(url))
	require.Error(t, err)
	assert.ErrorIs(t, err, elasticsearch.ErrUnavailable)
}

func TestProvisioner_CreatesMissingIndicesWithMapping(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()

	p := elasticsearch.NewProvisioner(connect(t, srv))
	require.NoError(t, p.EnsureIndices(context.Background(), indices...))
	assert.Equal(t, 3, srv.CreateCalls())

	for _, index := range indices {
		raw, ok := srv.Mapping(index)
		require.True(t, ok, index)

		var body struct {
			Mappings struct {
				Properties map[string]struct {
					Type string `json:"type"`
				} `json:"properties"`
			} `json:"mappings"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		props := body.Mappings.Properties
		assert.Len(t, props, 3)
		assert.Equal(t, "date", props["@timestamp"].Type)
		assert.Equal(t, "boolean", props["is_error"].Type)
		assert.Equal(t, "text", props["message"].Type)
	}
}

func TestProvisioner_Idempotent(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()

	p := elasticsearch.NewProvisioner(connect(t, srv))
	ctx := context.Background()
	require.NoError(t, p.EnsureIndices(ctx, indices...))

	before := make(map[string]string)
	for _, index := range indices {
		m, _ := srv.Mapping(index)
		before[index] = string(m)
	}

	require.NoError(t, p.EnsureIndices(ctx, indices...))
	assert.Equal(t, 3, srv.CreateCalls())
	for _, index := range indices {
		m, _ := srv.Mapping(index)
		assert.Equal(t, before[index], string(m))
	}
}

func TestProvisioner_LeavesExistingIndexAlone(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()
	srv.Preload(indices[0], `{"mappings":{"properties":{"custom":{"type":"keyword"}}}}`)

	p := elasticsearch.NewProvisioner(connect(t, srv))
	require.NoError(t, p.EnsureIndices(context.Background(), indices...))

	assert.Equal(t, 2, srv.CreateCalls())
	m, _ := srv.Mapping(indices[0])
	assert.JSONEq(t, `{"mappings":{"properties":{"custom":{"type":"keyword"}}}}`, string(m))
}

func TestProvisioner_CreateFailureIsFatal(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()

	p := elasticsearch.NewProvisioner(connect(t, srv))
	srv.FailCreate()

	err := p.EnsureIndices(context.Background(), indices...)
	require.Error(t, err)
	assert.ErrorIs(t, err, elasticsearch.ErrProvision)
	assert.Contains(t, err.Error(), indices[0])
	assert.Equal(t, 1, srv.CreateCalls())
}

func sampleRecords(n int) []model.LogRecord {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	out := make([]model.LogRecord, n)
	for i := range out {
		out[i] = model.APILogEntry{
			Timestamp:  model.NewTimestamp(base.Add(time.Duration(i) * time.Second)),
			Type:       model.SourceAPI,
			StatusCode: 200 + i%2*300,
			IsError:    i%2 == 1,
			Message:    "HTTP 200 — OK",
		}
	}
	return out
}

func TestLogStore_IngestAll(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()
	c := connect(t, srv)

	store := elasticsearch.NewElasticLogStore(c, testConfig(srv.URL))
	res, err := store.Ingest(context.Background(), indices[0], sampleRecords(250))
	require.NoError(t, err)

	assert.Equal(t, indices[0], res.Index)
	assert.Equal(t, 250, res.Succeeded)
	assert.Zero(t, res.Failed())
	assert.Empty(t, res.Errors)

	docs := srv.Docs(indices[0])
	require.Len(t, docs, 250)
	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(docs[0], &first))
	assert.Equal(t, "2024-03-01T10:00:00.000000+00:00", first["@timestamp"])
}

func TestLogStore_EmptyBatchIsNoop(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()
	c := connect(t, srv)

	store := elasticsearch.NewElasticLogStore(c, testConfig(srv.URL))
	res, err := store.Ingest(context.Background(), indices[1], nil)
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed())
	assert.Zero(t, srv.BulkRequests())
}

func TestLogStore_PartialFailureIsReported(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()
	srv.RejectDocs(func(index string, doc []byte) bool {
		return bytes.Contains(doc, []byte(`"is_error":true`))
	})
	c := connect(t, srv)

	store := elasticsearch.NewElasticLogStore(c, testConfig(srv.URL))
	res, err := store.Ingest(context.Background(), indices[0], sampleRecords(10))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Succeeded)
	require.Equal(t, 5, res.Failed())
	for _, e := range res.Errors {
		var docErr elasticsearch.DocumentError
		require.ErrorAs(t, e, &docErr)
		assert.Equal(t, 400, docErr.Status)
		assert.Equal(t, "mapper_parsing_exception", docErr.Type)
		assert.Equal(t, 1, docErr.Position%2)
	}
	assert.Len(t, srv.Docs(indices[0]), 5)
}

func TestLogStore_BackendDownIsFatal(t *testing.T) {
	srv := estest.NewServer()
	c := connect(t, srv)
	srv.Close()

	store := elasticsearch.NewElasticLogStore(c, testConfig(srv.URL))
	res, err := store.Ingest(context.Background(), indices[0], sampleRecords(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, elasticsearch.ErrUnavailable)
	assert.Contains(t, err.Error(), indices[0])
	assert.Zero(t, res.Succeeded)
}

func TestLogStore_RejectedBulkRequestIsFatal(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := estest.NewServer()
			defer srv.Close()
			c := connect(t, srv)
			srv.FailBulk(tt.status)

			store := elasticsearch.NewElasticLogStore(c, testConfig(srv.URL))
			res, err := store.Ingest(context.Background(), indices[0], sampleRecords(10))
			require.Error(t, err)
			assert.ErrorIs(t, err, elasticsearch.ErrUnavailable)
			assert.Zero(t, res.Succeeded)
			assert.Equal(t, 1, srv.BulkRequests())
			assert.Empty(t, srv.Docs(indices[0]))
		})
	}
}
