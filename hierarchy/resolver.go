package hierarchy

import (
	"context"
	"sync"

	"go.viam.com/copc/logging"
	"go.viam.com/copc/octree"
)

type pageState struct {
	location PageLocation
	loaded   bool
}

// Resolver maps voxel keys to nodes. Leaves and page references are indexed by key as their pages
// are loaded. A lookup only loads pages on the path from the root to the key.
type Resolver struct {
	store  *PageStore
	logger logging.Logger

	mu    sync.RWMutex
	nodes map[octree.VoxelKey]Node
	pages map[octree.VoxelKey]*pageState
}

// NewResolver returns a resolver whose root page is at root.
func NewResolver(store *PageStore, root PageLocation, logger logging.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		nodes:  map[octree.VoxelKey]Node{},
		pages: map[octree.VoxelKey]*pageState{
			octree.BaseKey(): {location: root},
		},
	}
}

// FindNode returns the node with the given key, or InvalidNode if the key is invalid or not in the
// index. Errors are only returned for I/O failures and corrupt pages.
func (r *Resolver) FindNode(ctx context.Context, key octree.VoxelKey) (Node, error) {
	if !key.IsValid() {
		return InvalidNode(), nil
	}
	for {
		r.mu.RLock()
		if node, ok := r.nodes[key]; ok {
			r.mu.RUnlock()
			return node, nil
		}
		pageKey, loaded := r.nearestPageLocked(key)
		r.mu.RUnlock()

		// the deepest page that could hold the key is loaded and does not
		if loaded {
			return InvalidNode(), nil
		}
		if _, err := r.loadPage(ctx, pageKey); err != nil {
			return InvalidNode(), err
		}
	}
}

// nearestPageLocked returns the deepest known page whose subtree contains key. The root page is
// always known.
func (r *Resolver) nearestPageLocked(key octree.VoxelKey) (octree.VoxelKey, bool) {
	for k := key; k.IsValid(); k = k.Parent() {
		if state, ok := r.pages[k]; ok {
			return k, state.loaded
		}
	}
	return octree.BaseKey(), r.pages[octree.BaseKey()].loaded
}

// loadPage loads the known page rooted at pageKey and indexes its entries.
func (r *Resolver) loadPage(ctx context.Context, pageKey octree.VoxelKey) (*Page, error) {
	r.mu.RLock()
	state := r.pages[pageKey]
	loc, loaded := state.location, state.loaded
	r.mu.RUnlock()

	page, err := r.store.LoadPage(ctx, pageKey, loc)
	if err != nil {
		return nil, err
	}
	if loaded {
		return page, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if state.loaded {
		return page, nil
	}
	for _, entry := range page.Entries {
		switch e := entry.(type) {
		case LeafEntry:
			if _, dup := r.nodes[e.VoxelKey]; dup {
				r.logger.Warnw("duplicate hierarchy entry, keeping the first", "key", e.VoxelKey.String(), "page", pageKey.String())
				continue
			}
			r.nodes[e.VoxelKey] = NewNode(e, pageKey)
		case PageReference:
			if _, dup := r.pages[e.VoxelKey]; dup {
				r.logger.Warnw("duplicate page reference, keeping the first", "key", e.VoxelKey.String(), "page", pageKey.String())
				continue
			}
			r.pages[e.VoxelKey] = &pageState{location: e.Location}
		}
	}
	state.loaded = true
	return page, nil
}

// AllChildren returns every node in the subtree rooted at key, key included, loading every page
// that may hold part of it. Nodes are ordered breadth first over pages in discovery order, then
// by their position in their page. An invalid or absent key yields no nodes.
func (r *Resolver) AllChildren(ctx context.Context, key octree.VoxelKey) ([]Node, error) {
	if !key.IsValid() {
		return []Node{}, nil
	}
	if key != octree.BaseKey() {
		node, err := r.FindNode(ctx, key)
		if err != nil {
			return nil, err
		}
		if !node.IsValid() {
			return []Node{}, nil
		}
	}

	var nodes []Node
	seen := map[octree.VoxelKey]struct{}{}
	err := r.walkPages(ctx, func(pageKey octree.VoxelKey) bool {
		return pageKey.InSubtree(key) || key.IsDescendantOf(pageKey)
	}, func(page *Page) {
		for _, entry := range page.Entries {
			leaf, ok := entry.(LeafEntry)
			if !ok || !leaf.VoxelKey.InSubtree(key) {
				continue
			}
			r.mu.RLock()
			node, ok := r.nodes[leaf.VoxelKey]
			r.mu.RUnlock()
			if _, dup := seen[leaf.VoxelKey]; dup {
				continue
			}
			// a duplicate is reported once, from the page it was first indexed from
			if ok && node.PageKey == page.Key {
				seen[leaf.VoxelKey] = struct{}{}
				nodes = append(nodes, node)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []Node{}
	}
	return nodes, nil
}

// AllNodes returns every node of the index.
func (r *Resolver) AllNodes(ctx context.Context) ([]Node, error) {
	return r.AllChildren(ctx, octree.BaseKey())
}

// PageKeys returns the keys of every page of the index in breadth first order, loading all pages.
func (r *Resolver) PageKeys(ctx context.Context) ([]octree.VoxelKey, error) {
	var keys []octree.VoxelKey
	err := r.walkPages(ctx, func(octree.VoxelKey) bool { return true }, func(page *Page) {
		keys = append(keys, page.Key)
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// walkPages visits pages breadth first from the root, descending into references accepted by
// follow. A page location reached twice is a corrupt index.
func (r *Resolver) walkPages(ctx context.Context, follow func(octree.VoxelKey) bool, visit func(*Page)) error {
	queue := []octree.VoxelKey{octree.BaseKey()}
	visited := map[PageLocation]struct{}{}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		pageKey := queue[0]
		queue = queue[1:]

		page, err := r.loadPage(ctx, pageKey)
		if err != nil {
			return err
		}
		if _, seen := visited[page.Location]; seen {
			return NewCorruptIndexError(page.Location, "page %s is referenced more than once", pageKey)
		}
		visited[page.Location] = struct{}{}
		visit(page)
		for _, entry := range page.Entries {
			ref, ok := entry.(PageReference)
			if !ok || !follow(ref.VoxelKey) {
				continue
			}
			r.mu.RLock()
			state := r.pages[ref.VoxelKey]
			r.mu.RUnlock()
			// skip references shadowed by an earlier duplicate
			if state != nil && state.location == ref.Location {
				queue = append(queue, ref.VoxelKey)
			}
		}
	}
	return nil
}

// LoadedNodeCount returns the number of nodes indexed so far.
func (r *Resolver) LoadedNodeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// LoadedPageCount returns the number of pages indexed so far.
func (r *Resolver) LoadedPageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, state := range r.pages {
		if state.loaded {
			count++
		}
	}
	return count
}
