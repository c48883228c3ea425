// Package hierarchy reads the paged octree index of a COPC file. Pages are loaded lazily and kept
// for the lifetime of the reader; the Resolver answers key lookups and subtree enumerations with
// the minimum set of page loads.
package hierarchy

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/copc/octree"
)

// EntrySize is the on-disk size of one hierarchy entry.
const EntrySize = 32

// PageLocation is the byte range of a hierarchy page.
type PageLocation struct {
	Offset uint64
	Size   uint64
}

func (loc PageLocation) String() string {
	return fmt.Sprintf("%d+%d", loc.Offset, loc.Size)
}

// An Entry is one decoded hierarchy record: a LeafEntry or a PageReference.
type Entry interface {
	Key() octree.VoxelKey
	isEntry()
}

// LeafEntry locates the compressed point chunk of a node. A leaf may hold zero points.
type LeafEntry struct {
	VoxelKey   octree.VoxelKey
	Offset     uint64
	ByteSize   uint32
	PointCount int32
}

// Key returns the node's key.
func (e LeafEntry) Key() octree.VoxelKey { return e.VoxelKey }

func (LeafEntry) isEntry() {}

// PageReference points to the child page holding the subtree rooted at its key.
type PageReference struct {
	VoxelKey octree.VoxelKey
	Location PageLocation
}

// Key returns the key of the referenced page.
func (e PageReference) Key() octree.VoxelKey { return e.VoxelKey }

func (PageReference) isEntry() {}

// CorruptIndexError is returned when a hierarchy page cannot be decoded. It is fatal for the
// operation that loaded the page.
type CorruptIndexError struct {
	Location PageLocation
	Reason   string
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("corrupt hierarchy page at %s: %s", e.Location, e.Reason)
}

// NewCorruptIndexError returns a CorruptIndexError for the page at loc.
func NewCorruptIndexError(loc PageLocation, format string, args ...interface{}) error {
	return &CorruptIndexError{Location: loc, Reason: fmt.Sprintf(format, args...)}
}

// IsCorruptIndex returns whether err is or wraps a CorruptIndexError.
func IsCorruptIndex(err error) bool {
	var target *CorruptIndexError
	return errors.As(err, &target)
}

// DecodePage decodes the entries of the page at loc whose subtree is rooted at pageKey. Every
// range the page points to must fit in fileSize bytes.
func DecodePage(data []byte, loc PageLocation, pageKey octree.VoxelKey, fileSize int64) ([]Entry, error) {
	if uint64(len(data)) != loc.Size {
		return nil, NewCorruptIndexError(loc, "got %d bytes", len(data))
	}
	if len(data)%EntrySize != 0 {
		return nil, NewCorruptIndexError(loc, "size is not a multiple of %d", EntrySize)
	}
	le := binary.LittleEndian
	entries := make([]Entry, 0, len(data)/EntrySize)
	for at := 0; at < len(data); at += EntrySize {
		rec := data[at : at+EntrySize]
		key := octree.NewVoxelKey(
			int32(le.Uint32(rec[0:])),
			int32(le.Uint32(rec[4:])),
			int32(le.Uint32(rec[8:])),
			int32(le.Uint32(rec[12:])),
		)
		offset := le.Uint64(rec[16:])
		byteSize := int32(le.Uint32(rec[24:]))
		pointCount := int32(le.Uint32(rec[28:]))

		if !key.IsValid() {
			return nil, NewCorruptIndexError(loc, "entry %d has invalid key %s", at/EntrySize, key)
		}
		if byteSize < 0 {
			return nil, NewCorruptIndexError(loc, "entry %s has negative byte size %d", key, byteSize)
		}
		if !fits(offset, uint64(byteSize), fileSize) {
			return nil, NewCorruptIndexError(loc, "entry %s range %d+%d is past the end of the file", key, offset, byteSize)
		}

		if pointCount < 0 {
			if !key.IsDescendantOf(pageKey) {
				return nil, NewCorruptIndexError(loc, "page reference %s is not below page %s", key, pageKey)
			}
			if byteSize == 0 || byteSize%EntrySize != 0 {
				return nil, NewCorruptIndexError(loc, "page reference %s has size %d", key, byteSize)
			}
			entries = append(entries, PageReference{
				VoxelKey: key,
				Location: PageLocation{Offset: offset, Size: uint64(byteSize)},
			})
			continue
		}
		if !key.InSubtree(pageKey) {
			return nil, NewCorruptIndexError(loc, "entry %s is outside page %s", key, pageKey)
		}
		entries = append(entries, LeafEntry{
			VoxelKey:   key,
			Offset:     offset,
			ByteSize:   uint32(byteSize),
			PointCount: pointCount,
		})
	}
	return entries, nil
}

// EncodePage encodes entries in their on-disk layout. Page references are written with a point
// count of -1.
func EncodePage(entries []Entry) []byte {
	le := binary.LittleEndian
	data := make([]byte, len(entries)*EntrySize)
	for i, entry := range entries {
		rec := data[i*EntrySize:]
		key := entry.Key()
		le.PutUint32(rec[0:], uint32(key.D))
		le.PutUint32(rec[4:], uint32(key.X))
		le.PutUint32(rec[8:], uint32(key.Y))
		le.PutUint32(rec[12:], uint32(key.Z))
		switch e := entry.(type) {
		case LeafEntry:
			le.PutUint64(rec[16:], e.Offset)
			le.PutUint32(rec[24:], e.ByteSize)
			le.PutUint32(rec[28:], uint32(e.PointCount))
		case PageReference:
			le.PutUint64(rec[16:], e.Location.Offset)
			le.PutUint32(rec[24:], uint32(e.Location.Size))
			le.PutUint32(rec[28:], uint32(0xFFFFFFFF))
		}
	}
	return data
}

func fits(offset, length uint64, size int64) bool {
	return size >= 0 && offset <= uint64(size) && length <= uint64(size)-offset
}
