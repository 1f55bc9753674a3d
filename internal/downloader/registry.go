package downloader

import (
	"fmt"
	"time"

	"vidslides/internal/config"
	"vidslides/internal/services"
)

// Registry maps sources to downloader capabilities.
type Registry struct {
	byName   map[Source]Downloader
	fallback Downloader
}

// NewRegistry builds an empty registry. fallback serves unknown sources.
func NewRegistry(fallback Downloader) *Registry {
	return &Registry{byName: make(map[Source]Downloader), fallback: fallback}
}

// NewRegistryFromConfig wires BBDown for Bilibili (and unknown hosts) and
// yt-dlp for YouTube.
func NewRegistryFromConfig(cfg *config.Config, opts ...Option) *Registry {
	bbdown := NewBBDown(cfg.Downloader.BBDownExecutable, cfg.Downloader.BBDownArgs, opts...)
	ytdlp := NewYtDlp(
		cfg.Downloader.YtDlpExecutable,
		cfg.Downloader.YtDlpArgs,
		time.Duration(cfg.Downloader.MetadataTimeoutSeconds)*time.Second,
		opts...,
	)
	registry := NewRegistry(bbdown)
	registry.Register(SourceBilibili, bbdown)
	registry.Register(SourceYouTube, ytdlp)
	return registry
}

// Register installs d for source.
func (r *Registry) Register(source Source, d Downloader) {
	r.byName[source] = d
}

// For returns the downloader serving source.
func (r *Registry) For(source Source) (Downloader, error) {
	if d, ok := r.byName[source]; ok && d != nil {
		return d, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, services.Wrap(services.ErrConfiguration, stageName, "resolve", fmt.Sprintf("no downloader for %s videos", source), nil)
}
