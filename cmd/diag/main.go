package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/elasticsearch"
)

const keyPreviewLen = 20

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}

	fmt.Printf("ELASTIC_URL     = %s\n", cfg.Elasticsearch.URL)
	fmt.Printf("ELASTIC_API_KEY = %s\n\n", maskKey(cfg.Elasticsearch.APIKey))

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating Elasticsearch client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Elasticsearch.RequestTimeout)
	defer cancel()

	info, err := client.Info(ctx)
	if err != nil {
		fmt.Printf("FULL ERROR: %T: %v\n", err, err)
		os.Exit(1)
	}
	fmt.Printf("SUCCESS: %s\n", info)
}

func maskKey(key string) string {
	if key == "" {
		return "NOT SET"
	}
	if len(key) > keyPreviewLen {
		return key[:keyPreviewLen] + "..."
	}
	return key + "..."
}
