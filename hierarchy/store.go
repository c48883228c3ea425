package hierarchy

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"go.viam.com/copc/logging"
	"go.viam.com/copc/octree"
	"go.viam.com/copc/source"
)

// Page is a decoded hierarchy page.
type Page struct {
	Key      octree.VoxelKey
	Location PageLocation
	Entries  []Entry
}

// An Observer is told about page loads and cache hits.
type Observer interface {
	PageLoaded(loc PageLocation, entries int)
	PageHit(loc PageLocation)
}

// StoreStats are the counters of a PageStore.
type StoreStats struct {
	Loads int64
	Hits  int64
}

// PageStore loads hierarchy pages from a byte source and caches them for its lifetime. Each page is
// fetched at most once, also under concurrent callers.
type PageStore struct {
	src      source.Fetcher
	logger   logging.Logger
	observer Observer

	mu    sync.RWMutex
	pages map[PageLocation]*Page
	group singleflight.Group

	loads atomic.Int64
	hits  atomic.Int64
}

// NewPageStore returns an empty store reading from src. observer may be nil.
func NewPageStore(src source.Fetcher, logger logging.Logger, observer Observer) *PageStore {
	return &PageStore{
		src:      src,
		logger:   logger,
		observer: observer,
		pages:    map[PageLocation]*Page{},
	}
}

// LoadPage returns the page at loc, fetching and decoding it on first use. key is the root of the
// page's subtree and is used to validate its entries. A location already loaded under a different
// key is a corrupt index. Failed loads are not cached.
func (s *PageStore) LoadPage(ctx context.Context, key octree.VoxelKey, loc PageLocation) (*Page, error) {
	if page, ok := s.Cached(loc); ok {
		if page.Key != key {
			return nil, NewCorruptIndexError(loc, "page for %s is already loaded as %s", key, page.Key)
		}
		s.hits.Inc()
		if s.observer != nil {
			s.observer.PageHit(loc)
		}
		return page, nil
	}
	if loc.Size > uint64(^uint32(0)) {
		return nil, NewCorruptIndexError(loc, "page is too large")
	}

	res, err, _ := s.group.Do(loc.String(), func() (interface{}, error) {
		if page, ok := s.Cached(loc); ok {
			return page, nil
		}
		data, err := s.src.Fetch(ctx, loc.Offset, uint32(loc.Size))
		if err != nil {
			if errors.Is(err, source.ErrOutOfBounds) {
				return nil, NewCorruptIndexError(loc, "page is past the end of the file")
			}
			return nil, errors.Wrapf(err, "loading hierarchy page %s", loc)
		}
		entries, err := DecodePage(data, loc, key, s.src.Size())
		if err != nil {
			return nil, err
		}
		page := &Page{Key: key, Location: loc, Entries: entries}

		s.mu.Lock()
		s.pages[loc] = page
		s.mu.Unlock()

		s.loads.Inc()
		if s.observer != nil {
			s.observer.PageLoaded(loc, len(entries))
		}
		s.logger.Debugw("loaded hierarchy page", "key", key.String(), "location", loc.String(), "entries", len(entries))
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	// a concurrent load of the same location may have used another key
	page := res.(*Page)
	if page.Key != key {
		return nil, NewCorruptIndexError(loc, "page for %s is already loaded as %s", key, page.Key)
	}
	return page, nil
}

// Cached returns the page at loc if it was already loaded.
func (s *PageStore) Cached(loc PageLocation) (*Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[loc]
	return page, ok
}

// Len returns the number of loaded pages.
func (s *PageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Stats returns the store's counters.
func (s *PageStore) Stats() StoreStats {
	return StoreStats{Loads: s.loads.Load(), Hits: s.hits.Load()}
}
