package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"folio/internal/logging"
	"folio/internal/notion"
	"folio/internal/portfolio"
)

// DefaultListingTTL bounds how long the child-database listing is reused.
const DefaultListingTTL = 30 * time.Second

// Source is the subset of the CMS client the fetcher needs.
type Source interface {
	ListChildDatabases(ctx context.Context, pageID string) ([]notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
}

// Result is the outcome of fetching every collection.
type Result struct {
	Content portfolio.Content
	// Failures maps collection names to the error that emptied them.
	Failures map[string]error
}

// Fetcher reads portfolio collections from the CMS.
type Fetcher struct {
	source  Source
	pageID  string
	logger  *slog.Logger
	listing *expirable.LRU[string, []notion.Database]
	group   singleflight.Group
}

// Option configures a Fetcher.
type Option func(*fetcherOptions)

type fetcherOptions struct {
	ttl time.Duration
}

// WithListingTTL overrides how long the child-database listing is cached. Zero disables caching.
func WithListingTTL(ttl time.Duration) Option {
	return func(o *fetcherOptions) { o.ttl = ttl }
}

// NewFetcher constructs a fetcher reading databases under pageID.
func NewFetcher(source Source, pageID string, logger *slog.Logger, opts ...Option) *Fetcher {
	options := fetcherOptions{ttl: DefaultListingTTL}
	for _, opt := range opts {
		opt(&options)
	}
	f := &Fetcher{
		source: source,
		pageID: pageID,
		logger: logging.NewComponentLogger(logger, "content"),
	}
	if options.ttl > 0 {
		f.listing = expirable.NewLRU[string, []notion.Database](1, nil, options.ttl)
	}
	return f
}

// Invalidate drops the cached database listing.
func (f *Fetcher) Invalidate() {
	if f.listing != nil {
		f.listing.Purge()
	}
}

// Databases returns the child databases of the root page. Concurrent callers share one request.
func (f *Fetcher) Databases(ctx context.Context) ([]notion.Database, error) {
	if f.listing != nil {
		if dbs, ok := f.listing.Get(f.pageID); ok {
			return dbs, nil
		}
	}
	v, err, _ := f.group.Do(f.pageID, func() (any, error) {
		dbs, err := f.source.ListChildDatabases(ctx, f.pageID)
		if err != nil {
			return nil, err
		}
		if f.listing != nil {
			f.listing.Add(f.pageID, dbs)
		}
		return dbs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	return v.([]notion.Database), nil
}

// FindDatabase returns the database whose title matches name, or nil when none does.
func (f *Fetcher) FindDatabase(ctx context.Context, name string) (*notion.Database, error) {
	dbs, err := f.Databases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range dbs {
		if dbs[i].TitleMatches(name) {
			return &dbs[i], nil
		}
	}
	return nil, nil
}

// Collection returns the items of one collection. A missing database yields no items and no error.
func (f *Fetcher) Collection(ctx context.Context, def Definition) ([]portfolio.Item, error) {
	db, err := f.FindDatabase(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	if db == nil {
		f.logger.Info("collection database not found",
			logging.String(logging.FieldCollection, def.Name),
			logging.String(logging.FieldEventType, "collection_missing"),
		)
		return []portfolio.Item{}, nil
	}

	ordered := db.HasProperty(orderProperty)
	query := notion.Query{}
	if ordered {
		query.Sorts = []notion.Sort{{Property: orderProperty, Direction: "ascending"}}
	}
	pages, err := f.source.QueryDatabase(ctx, db.ID, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", def.Name, err)
	}

	items := make([]portfolio.Item, 0, len(pages))
	for _, page := range pages {
		items = append(items, def.Parse(page))
	}
	if ordered {
		SortByOrder(items)
	}
	return items, nil
}

// SortByOrder stably sorts items ascending by Order. Items without an Order keep
// their relative position after all ordered items.
func SortByOrder(items []portfolio.Item) {
	slices.SortStableFunc(items, func(a, b portfolio.Item) int {
		switch {
		case a.Order == nil && b.Order == nil:
			return 0
		case a.Order == nil:
			return 1
		case b.Order == nil:
			return -1
		case *a.Order < *b.Order:
			return -1
		case *a.Order > *b.Order:
			return 1
		default:
			return 0
		}
	})
}

// General returns the singleton General record, or the defaults when it is absent or unreadable.
func (f *Fetcher) General(ctx context.Context) portfolio.General {
	general, err := f.general(ctx)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, f.logger), "general record unavailable; using defaults", "general_fetch_failed",
			logging.String(logging.FieldCollection, portfolio.NameGeneral),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the General database is shared with the integration"),
			logging.String(logging.FieldImpact, "site header shows default name and photo"),
		)
		return portfolio.DefaultGeneral()
	}
	return general
}

func (f *Fetcher) general(ctx context.Context) (portfolio.General, error) {
	db, err := f.FindDatabase(ctx, portfolio.NameGeneral)
	if err != nil {
		return portfolio.General{}, err
	}
	if db == nil {
		return portfolio.DefaultGeneral(), nil
	}
	pages, err := f.source.QueryDatabase(ctx, db.ID, notion.Query{Limit: 1})
	if err != nil {
		return portfolio.General{}, fmt.Errorf("query general: %w", err)
	}
	if len(pages) == 0 {
		return portfolio.DefaultGeneral(), nil
	}
	return parseGeneral(pages[0]), nil
}

// All fetches the General record and every collection concurrently. Collection
// failures are isolated and reported in Result.Failures. An error is returned only
// when the database listing itself cannot be read, since every collection would be empty.
func (f *Fetcher) All(ctx context.Context) (Result, error) {
	if _, err := f.Databases(ctx); err != nil {
		return Result{}, err
	}

	defs := Definitions()
	items := make([][]portfolio.Item, len(defs))
	var (
		mu       sync.Mutex
		failures = map[string]error{}
		general  portfolio.General
	)
	logger := logging.WithContext(ctx, f.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		general = f.General(gctx)
		return nil
	})
	for i, def := range defs {
		g.Go(func() error {
			collection, err := f.Collection(gctx, def)
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return ctx.Err()
				}
				logging.WarnWithContext(logger, "collection fetch failed; publishing it empty", "collection_fetch_failed",
					logging.String(logging.FieldCollection, def.Name),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the CMS database schema and integration access"),
					logging.String(logging.FieldImpact, "collection omitted from the snapshot"),
				)
				mu.Lock()
				failures[def.Name] = err
				mu.Unlock()
				collection = []portfolio.Item{}
			}
			items[i] = collection
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{Failures: failures}
	result.Content.General = general
	for i, def := range defs {
		result.Content.SetCollection(def.Name, items[i])
	}
	return result, nil
}
