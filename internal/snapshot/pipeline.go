package snapshot

import (
	"fmt"
	"log/slog"
	"time"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/media"
	"folio/internal/notion"
)

// Pipeline bundles a generator with the collaborators it was built from.
type Pipeline struct {
	Client    *notion.Client
	Fetcher   *content.Fetcher
	Media     *media.Synchronizer
	Generator *Generator
}

// NewPipeline wires the CMS client, content fetcher and media synchronizer
// described by cfg into a generator. recorder may be nil.
func NewPipeline(cfg *config.Config, logger *slog.Logger, recorder media.Recorder, opts ...Option) (*Pipeline, error) {
	client, err := notion.New(
		cfg.Notion.IntegrationSecret,
		cfg.Notion.BaseURL,
		cfg.Notion.Version,
		notion.WithLogger(logger),
		notion.WithTimeout(time.Duration(cfg.Notion.RequestTimeout)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("notion client: %w", err)
	}
	fetcher := content.NewFetcher(client, cfg.Notion.PageID, logger)

	mediaOpts := []media.Option{
		media.WithLogger(logger),
		media.WithTimeout(cfg.DownloadTimeout()),
	}
	if recorder != nil {
		mediaOpts = append(mediaOpts, media.WithRecorder(recorder))
	}
	mirror := media.NewSynchronizer(cfg.MediaDir(), mediaOpts...)

	opts = append([]Option{WithLogger(logger)}, opts...)
	return &Pipeline{
		Client:    client,
		Fetcher:   fetcher,
		Media:     mirror,
		Generator: NewGenerator(cfg, fetcher, mirror, opts...),
	}, nil
}
