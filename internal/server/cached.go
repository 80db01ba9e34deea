package server

import (
	"context"
	"time"

	"github.com/dharsanguruparan/loandrop/internal/cache"
	"github.com/dharsanguruparan/loandrop/internal/facade"
	"github.com/dharsanguruparan/loandrop/internal/model"
)

// readThrough serves document lists and download URLs from the query cache.
// Single-document reads and all writes go straight to the service; the
// poller needs fresh state.
type readThrough struct {
	facade.DocumentService
	cache       *cache.Cache
	ttl         time.Duration
	downloadTTL time.Duration
}

func (c *readThrough) ListDocumentsByParent(ctx context.Context, parentID string, page facade.Page) ([]model.Document, error) {
	if c.cache == nil || page != (facade.Page{Size: facade.DefaultPageSize}) {
		return c.DocumentService.ListDocumentsByParent(ctx, parentID, page)
	}
	return cache.Fetch(ctx, c.cache, cache.DocumentListKey(parentID), c.ttl, func(ctx context.Context) ([]model.Document, error) {
		return c.DocumentService.ListDocumentsByParent(ctx, parentID, page)
	})
}

func (c *readThrough) GenerateDownloadURL(ctx context.Context, documentID string) (string, error) {
	if c.cache == nil {
		return c.DocumentService.GenerateDownloadURL(ctx, documentID)
	}
	return cache.Fetch(ctx, c.cache, cache.DownloadURLKey(documentID), c.downloadTTL, func(ctx context.Context) (string, error) {
		return c.DocumentService.GenerateDownloadURL(ctx, documentID)
	})
}

func (s *Server) application(ctx context.Context, applicationID string) (*model.Application, error) {
	load := func(ctx context.Context) (*model.Application, error) {
		return s.apps.GetApplication(ctx, applicationID)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return cache.Fetch(ctx, s.cache, cache.ApplicationKey(applicationID), s.cfg.Cache.TTL, load)
}
