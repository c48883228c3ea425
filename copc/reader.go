// Package copc reads Cloud Optimized Point Cloud files. A Reader resolves octree nodes through the
// file's paged hierarchy, answers spatial and level of detail queries from the index alone and
// fetches and decodes the point chunks of the nodes it returns.
package copc

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/hierarchy"
	"go.viam.com/copc/las"
	"go.viam.com/copc/logging"
	"go.viam.com/copc/octree"
	"go.viam.com/copc/source"
	"go.viam.com/copc/utils"
)

// Reader is a session over one COPC file. Its hierarchy cache lives as long as the Reader. A
// Reader is safe for concurrent use; a failed operation leaves it usable.
type Reader struct {
	cfg    *las.Config
	format codec.Format
	src    *source.Counting
	owned  io.Closer
	logger logging.Logger

	codecName    string
	decompressor codec.Decompressor
	codecErr     error
	parallelism  int

	store    *hierarchy.PageStore
	resolver *hierarchy.Resolver
	metrics  *metrics

	maxDepthMu    sync.Mutex
	maxDepth      int32
	maxDepthKnown bool

	closed atomic.Bool
}

// Open starts a session over src whose metadata was already read into cfg.
func Open(ctx context.Context, cfg *las.Config, src source.Fetcher, opts ...Option) (*Reader, error) {
	if cfg == nil || cfg.Header == nil {
		return nil, errors.New("copc metadata is required")
	}
	var o readerOpts
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.logger == nil {
		o.logger = logging.Global()
	}

	format, err := cfg.PointFormat()
	if err != nil {
		return nil, err
	}
	if err := cfg.Info.Validate(); err != nil {
		return nil, err
	}
	root := hierarchy.PageLocation{Offset: cfg.Info.RootHierOffset, Size: cfg.Info.RootHierSize}
	if err := source.CheckRange(root.Offset, root.Size, src.Size()); err != nil {
		return nil, errors.Wrap(err, "root hierarchy page")
	}

	r := &Reader{
		cfg:         cfg,
		format:      format,
		src:         source.NewCounting(src),
		logger:      o.logger,
		parallelism: utils.Parallelism(o.parallelism),
		metrics:     readerMetrics(),
	}
	r.selectCodec(o)
	r.store = hierarchy.NewPageStore(r.src, r.logger, pageObserver{r.metrics})
	r.resolver = hierarchy.NewResolver(r.store, root, r.logger)
	r.metrics.OpenReaders.Inc()

	r.logger.Infow("opened copc reader",
		"points", cfg.Header.PointCount,
		"format", format.ID,
		"codec", r.codecName,
		"root", root.String())
	if r.codecErr != nil {
		r.logger.Warnw("point data cannot be decoded", "error", r.codecErr)
	}
	return r, nil
}

// NewReader reads the metadata of the COPC file in src and starts a session over it.
func NewReader(ctx context.Context, src source.Fetcher, opts ...Option) (*Reader, error) {
	cfg, err := las.ReadConfig(ctx, src)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, src, opts...)
}

// OpenFile opens the COPC file at path. The file is closed with the Reader.
func OpenFile(ctx context.Context, path string, opts ...Option) (*Reader, error) {
	f, err := source.OpenFile(path)
	if err != nil {
		return nil, err
	}
	guard := utils.NewGuard(func() {
		//nolint:errcheck
		f.Close()
	})
	defer guard.OnFail()

	r, err := NewReader(ctx, f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	r.owned = f
	guard.Success()
	return r, nil
}

func (r *Reader) selectCodec(o readerOpts) {
	if o.decompressor != nil {
		r.codecName = "custom"
		r.decompressor = o.decompressor
		return
	}
	r.codecName = o.codecName
	if r.codecName == "" {
		r.codecName = r.cfg.DefaultCodec()
	}
	r.decompressor, r.codecErr = codec.Lookup(r.codecName)
}

// Close ends the session and releases a source the Reader owns. Closing twice is a no-op.
func (r *Reader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.metrics.OpenReaders.Dec()
	var err error
	if r.owned != nil {
		err = multierr.Combine(err, r.owned.Close())
	}
	r.logger.Infow("closed copc reader", "page loads", r.store.Stats().Loads, "fetches", r.src.Calls())
	return multierr.Combine(err, r.logger.Sync())
}

func (r *Reader) checkOpen() error {
	if r.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Config returns the file's metadata.
func (r *Reader) Config() *las.Config {
	return r.cfg
}

// PointFormat returns the layout of decoded point records.
func (r *Reader) PointFormat() codec.Format {
	return r.format
}

// CodecName returns the name of the codec point chunks are decoded with.
func (r *Reader) CodecName() string {
	return r.codecName
}

// RootBounds returns the cube of the octree's root cell.
func (r *Reader) RootBounds() octree.Box {
	return octree.BaseKey().Bounds(r.cfg.Info.Center, r.cfg.Info.HalfSize)
}

// Bounds returns the cube of the cell of key.
func (r *Reader) Bounds(key octree.VoxelKey) octree.Box {
	return key.Bounds(r.cfg.Info.Center, r.cfg.Info.HalfSize)
}

// Stats are counters of the I/O a Reader performed.
type Stats struct {
	PageLoads    int64
	PageHits     int64
	Fetches      int64
	FetchedBytes int64
	LoadedNodes  int
}

// Stats returns the Reader's I/O counters.
func (r *Reader) Stats() Stats {
	storeStats := r.store.Stats()
	return Stats{
		PageLoads:    storeStats.Loads,
		PageHits:     storeStats.Hits,
		Fetches:      r.src.Calls(),
		FetchedBytes: r.src.Bytes(),
		LoadedNodes:  r.resolver.LoadedNodeCount(),
	}
}
