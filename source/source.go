// Package source provides the byte-range fetch capability the COPC reader reads through.
package source

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

var (
	// ErrOutOfBounds is returned when a requested range ends past the end of the source.
	ErrOutOfBounds = errors.New("byte range out of bounds")
	// ErrShortRead is returned when the underlying reader returns fewer bytes than requested.
	ErrShortRead = errors.New("short read")
)

// Fetcher reads byte ranges of a random access byte source. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, offset uint64, length uint32) ([]byte, error)
	Size() int64
}

// CheckRange returns ErrOutOfBounds if [offset, offset+length) does not fit in size bytes.
func CheckRange(offset, length uint64, size int64) error {
	if size < 0 || offset > uint64(size) || length > uint64(size)-offset {
		return errors.Wrapf(ErrOutOfBounds, "range [%d, %d) exceeds source size %d", offset, offset+length, size)
	}
	return nil
}

type readerAtFetcher struct {
	r    io.ReaderAt
	size int64
}

// NewReaderAt returns a Fetcher over r, which holds size bytes.
func NewReaderAt(r io.ReaderAt, size int64) Fetcher {
	return &readerAtFetcher{r: r, size: size}
}

// NewBytes returns a Fetcher over an in memory buffer.
func NewBytes(data []byte) Fetcher {
	return &bytesFetcher{data: data}
}

func (f *readerAtFetcher) Size() int64 {
	return f.size
}

func (f *readerAtFetcher) Fetch(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckRange(offset, uint64(length), f.size); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, length)
	n, err := f.r.ReadAt(buf, int64(offset))
	if n == len(buf) {
		// io.ReaderAt may return io.EOF together with a full read at the end of the source
		return buf, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "reading %d bytes at offset %d", length, offset)
	}
	return nil, errors.Wrapf(ErrShortRead, "read %d of %d bytes at offset %d", n, length, offset)
}

type bytesFetcher struct {
	data []byte
}

func (f *bytesFetcher) Size() int64 {
	return int64(len(f.data))
}

// Fetch returns a copy so callers may keep or mutate the result.
func (f *bytesFetcher) Fetch(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckRange(offset, uint64(length), f.Size()); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, f.data[offset:offset+uint64(length)])
	return out, nil
}

// File is a Fetcher over an open file. It must be closed.
type File struct {
	Fetcher
	f      *os.File
	closed atomic.Bool
}

// OpenFile opens the file at path for reading.
func OpenFile(path string) (*File, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "stat %q", path), f.Close())
	}
	return &File{Fetcher: NewReaderAt(f, info.Size()), f: f}, nil
}

// Name returns the path the file was opened with.
func (file *File) Name() string {
	return file.f.Name()
}

// Close closes the file. Closing twice is a no-op.
func (file *File) Close() error {
	if !file.closed.CompareAndSwap(false, true) {
		return nil
	}
	return file.f.Close()
}

// Counting wraps a Fetcher and counts the calls and bytes fetched through it.
type Counting struct {
	inner Fetcher
	calls atomic.Int64
	bytes atomic.Int64
}

// NewCounting wraps inner.
func NewCounting(inner Fetcher) *Counting {
	return &Counting{inner: inner}
}

// Size returns the wrapped source's size.
func (c *Counting) Size() int64 {
	return c.inner.Size()
}

// Fetch forwards to the wrapped source. Failed fetches count as calls but not as bytes.
func (c *Counting) Fetch(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	c.calls.Inc()
	data, err := c.inner.Fetch(ctx, offset, length)
	if err != nil {
		return nil, err
	}
	c.bytes.Add(int64(len(data)))
	return data, nil
}

// Calls returns the number of Fetch calls made.
func (c *Counting) Calls() int64 {
	return c.calls.Load()
}

// Bytes returns the number of bytes fetched successfully.
func (c *Counting) Bytes() int64 {
	return c.bytes.Load()
}

// Reset zeroes the counters.
func (c *Counting) Reset() {
	c.calls.Store(0)
	c.bytes.Store(0)
}
