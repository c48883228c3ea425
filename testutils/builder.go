// Package testutils builds synthetic COPC files for tests.
package testutils

import (
	"math"
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/hierarchy"
	"go.viam.com/copc/las"
	"go.viam.com/copc/octree"
	"go.viam.com/copc/pointcloud"
)

// laszipPayloadSize is the size of the placeholder LASzip VLR payload.
const laszipPayloadSize = 34

type builderNode struct {
	key    octree.VoxelKey
	points []pointcloud.Point
}

// CopcBuilder lays out a COPC file: a LAS 1.4 header, the COPC info VLR, optional WKT, extra
// bytes, extents and LASzip VLRs, one raw point chunk per node and a hierarchy EVLR split into
// pages.
type CopcBuilder struct {
	Center   r3.Vector
	HalfSize float64
	Spacing  float64
	Scale    r3.Vector
	Offset   r3.Vector
	Format   codec.Format

	Wkt        string
	ExtraBytes []las.ExtraBytesDescriptor
	// WithExtents adds the COPC extents and extended stats VLRs.
	WithExtents bool
	// LASzip marks the file as LASzip compressed; chunks are still written raw.
	LASzip     bool
	GpsTimeMin float64
	GpsTimeMax float64

	nodes []builderNode
	pages map[octree.VoxelKey]struct{}
}

// NewCopcBuilder returns a builder for a file of the given octree cube and point format. The scale
// is 0.01 and the offset is the cube's center.
func NewCopcBuilder(center r3.Vector, halfSize, spacing float64, format codec.Format) *CopcBuilder {
	return &CopcBuilder{
		Center:   center,
		HalfSize: halfSize,
		Spacing:  spacing,
		Scale:    r3.Vector{X: 0.01, Y: 0.01, Z: 0.01},
		Offset:   center,
		Format:   format,
		pages:    map[octree.VoxelKey]struct{}{},
	}
}

// AddNode adds a node holding points. A node may hold no points.
func (b *CopcBuilder) AddNode(key octree.VoxelKey, points []pointcloud.Point) {
	b.nodes = append(b.nodes, builderNode{key: key, points: points})
}

// AddGeneratedNode adds a node of n points scattered inside the node's cell. Points are
// deterministic for a given key.
func (b *CopcBuilder) AddGeneratedNode(key octree.VoxelKey, n int) {
	bounds := key.Bounds(b.Center, b.HalfSize)
	//nolint:gosec
	rnd := rand.New(rand.NewSource(int64(key.D)<<48 ^ int64(key.X)<<32 ^ int64(key.Y)<<16 ^ int64(key.Z)))
	size := bounds.Max.Sub(bounds.Min)
	points := make([]pointcloud.Point, 0, n)
	for i := 0; i < n; i++ {
		// keep a margin so rounding to the scale cannot leave the cell
		pos := r3.Vector{
			X: bounds.Min.X + size.X*(0.01+0.98*rnd.Float64()),
			Y: bounds.Min.Y + size.Y*(0.01+0.98*rnd.Float64()),
			Z: bounds.Min.Z + size.Z*(0.01+0.98*rnd.Float64()),
		}
		p := pointcloud.Point{
			X:               b.raw(pos.X, b.Scale.X, b.Offset.X),
			Y:               b.raw(pos.Y, b.Scale.Y, b.Offset.Y),
			Z:               b.raw(pos.Z, b.Scale.Z, b.Offset.Z),
			Intensity:       uint16(rnd.Intn(1 << 12)),
			ReturnNumber:    1,
			NumberOfReturns: uint8(1 + rnd.Intn(3)),
			Classification:  uint8(1 + rnd.Intn(6)),
			PointSourceID:   uint16(key.D),
			GPSTime:         b.GpsTimeMin + rnd.Float64()*(b.GpsTimeMax-b.GpsTimeMin),
		}
		if b.Format.HasRGB() {
			p.Red, p.Green, p.Blue = uint16(rnd.Intn(1<<16)), uint16(rnd.Intn(1<<16)), uint16(rnd.Intn(1<<16))
		}
		if b.Format.HasNIR() {
			p.NIR = uint16(rnd.Intn(1 << 16))
		}
		if b.Format.NumExtraBytes > 0 {
			p.ExtraBytes = make([]byte, b.Format.NumExtraBytes)
			rnd.Read(p.ExtraBytes)
		}
		points = append(points, p)
	}
	b.AddNode(key, points)
}

func (b *CopcBuilder) raw(v, scale, offset float64) int32 {
	return int32(math.Round((v - offset) / scale))
}

// AddPage makes key the root of its own hierarchy page.
func (b *CopcBuilder) AddPage(key octree.VoxelKey) {
	if key != octree.BaseKey() {
		b.pages[key] = struct{}{}
	}
}

// Keys returns the keys of every added node in insertion order.
func (b *CopcBuilder) Keys() []octree.VoxelKey {
	keys := make([]octree.VoxelKey, 0, len(b.nodes))
	for _, n := range b.nodes {
		keys = append(keys, n.key)
	}
	return keys
}

// Points returns the points added for key.
func (b *CopcBuilder) Points(key octree.VoxelKey) []pointcloud.Point {
	for _, n := range b.nodes {
		if n.key == key {
			return n.points
		}
	}
	return nil
}

// PointList returns the points added for key as a list in the file's format.
func (b *CopcBuilder) PointList(key octree.VoxelKey) *pointcloud.Points {
	ps := pointcloud.New(b.Format, b.Scale, b.Offset)
	for _, p := range b.Points(key) {
		//nolint:errcheck
		ps.Append(p)
	}
	return ps
}

// PointCount returns the total number of points added.
func (b *CopcBuilder) PointCount() int {
	total := 0
	for _, n := range b.nodes {
		total += len(n.points)
	}
	return total
}

// pageOf returns the deepest page whose subtree holds key, key itself included when inclusive.
func (b *CopcBuilder) pageOf(key octree.VoxelKey, inclusive bool) octree.VoxelKey {
	k := key
	if !inclusive {
		k = key.Parent()
	}
	for ; k.IsValid() && k != octree.BaseKey(); k = k.Parent() {
		if _, ok := b.pages[k]; ok {
			return k
		}
	}
	return octree.BaseKey()
}

// Build returns the file's bytes.
func (b *CopcBuilder) Build() ([]byte, error) {
	if _, err := codec.BaseRecordLength(b.Format.ID); err != nil {
		return nil, err
	}
	seen := map[octree.VoxelKey]struct{}{}
	for _, n := range b.nodes {
		if !n.key.IsValid() {
			return nil, errors.Errorf("invalid node key %s", n.key)
		}
		if _, dup := seen[n.key]; dup {
			return nil, errors.Errorf("duplicate node key %s", n.key)
		}
		seen[n.key] = struct{}{}
	}

	header := &las.Header{
		VersionMajor:       1,
		VersionMinor:       4,
		SystemIdentifier:   "copc testutils",
		GeneratingSoftware: "copc testutils",
		CreationDay:        1,
		CreationYear:       2024,
		HeaderSize:         las.HeaderSize,
		PointFormatID:      b.Format.ID,
		PointRecordLength:  b.Format.RecordLength,
		Scale:              b.Scale,
		Offset:             b.Offset,
	}
	if b.LASzip {
		header.PointFormatID |= 0x80
	}

	var vlrs []byte
	info := las.CopcInfo{
		Center:     b.Center,
		HalfSize:   b.HalfSize,
		Spacing:    b.Spacing,
		GpsTimeMin: b.GpsTimeMin,
		GpsTimeMax: b.GpsTimeMax,
	}
	// the root hierarchy location is patched in once the layout is known
	infoAt := las.HeaderSize + las.VlrHeaderSize
	vlrs = appendVlr(vlrs, las.CopcUserID, las.CopcInfoRecordID, "copc info", info.Marshal())
	header.VlrCount = 1
	if b.Wkt != "" {
		vlrs = appendVlr(vlrs, las.ProjectionUserID, las.WktRecordID, "WKT", append([]byte(b.Wkt), 0))
		header.VlrCount++
	}
	if len(b.ExtraBytes) > 0 {
		vlrs = appendVlr(vlrs, las.SpecUserID, las.ExtraBytesID, "extra bytes", las.MarshalExtraBytes(b.ExtraBytes))
		header.VlrCount++
	}
	if b.WithExtents {
		xyz, extents := b.extents()
		vlrs = appendVlr(vlrs, las.CopcUserID, las.CopcExtentsID, "copc extents", las.MarshalExtents(xyz, extents, false))
		vlrs = appendVlr(vlrs, las.CopcUserID, las.CopcExtendedID, "copc extended stats", las.MarshalExtents(xyz, extents, true))
		header.VlrCount += 2
	}
	if b.LASzip {
		vlrs = appendVlr(vlrs, las.LASzipUserID, las.LASzipRecordID, "laszip", make([]byte, laszipPayloadSize))
		header.VlrCount++
	}

	header.PointOffset = uint32(las.HeaderSize + len(vlrs))
	out := make([]byte, 0, int(header.PointOffset)+b.PointCount()*int(b.Format.RecordLength))
	out = append(out, make([]byte, las.HeaderSize)...)
	out = append(out, vlrs...)

	meta := pointcloud.NewMetaData()
	leaves := make(map[octree.VoxelKey]hierarchy.LeafEntry, len(b.nodes))
	for _, n := range b.nodes {
		entry := hierarchy.LeafEntry{VoxelKey: n.key, PointCount: int32(len(n.points))}
		if len(n.points) > 0 {
			entry.Offset = uint64(len(out))
			for _, p := range n.points {
				out = pointcloud.PackPoint(out, p, b.Format)
				meta.Merge(r3.Vector{
					X: float64(p.X)*b.Scale.X + b.Offset.X,
					Y: float64(p.Y)*b.Scale.Y + b.Offset.Y,
					Z: float64(p.Z)*b.Scale.Z + b.Offset.Z,
				})
				ret := p.ReturnNumber
				if ret >= 1 && int(ret) <= len(header.PointsByReturn) {
					header.PointsByReturn[ret-1]++
				}
			}
			entry.ByteSize = uint32(uint64(len(out)) - entry.Offset)
		}
		leaves[n.key] = entry
	}
	header.PointCount = uint64(b.PointCount())
	if meta.Count > 0 {
		header.Min = r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
		header.Max = r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
	}

	hierarchyData, rootLoc := b.layoutPages(leaves, uint64(len(out))+las.EvlrHeaderSize)
	header.EvlrOffset = uint64(len(out))
	header.EvlrCount = 1
	out = append(out, las.MarshalEvlrHeader(las.CopcUserID, las.CopcHierarchyID, "EPT hierarchy", uint64(len(hierarchyData)))...)
	out = append(out, hierarchyData...)

	info.RootHierOffset = rootLoc.Offset
	info.RootHierSize = rootLoc.Size
	copy(out[infoAt:], info.Marshal())
	copy(out, header.Marshal())
	return out, nil
}

// layoutPages encodes every page breadth first, root first, starting at base.
func (b *CopcBuilder) layoutPages(leaves map[octree.VoxelKey]hierarchy.LeafEntry, base uint64) ([]byte, hierarchy.PageLocation) {
	pageKeys := make([]octree.VoxelKey, 0, len(b.pages))
	for k := range b.pages {
		pageKeys = append(pageKeys, k)
	}
	sort.Slice(pageKeys, func(i, j int) bool { return keyLess(pageKeys[i], pageKeys[j]) })

	children := map[octree.VoxelKey][]octree.VoxelKey{}
	for _, k := range pageKeys {
		parent := b.pageOf(k, false)
		children[parent] = append(children[parent], k)
	}
	members := map[octree.VoxelKey][]octree.VoxelKey{}
	for _, n := range b.nodes {
		page := b.pageOf(n.key, true)
		members[page] = append(members[page], n.key)
	}

	order := []octree.VoxelKey{octree.BaseKey()}
	for i := 0; i < len(order); i++ {
		order = append(order, children[order[i]]...)
	}
	locations := map[octree.VoxelKey]hierarchy.PageLocation{}
	at := base
	for _, k := range order {
		size := uint64(len(members[k])+len(children[k])) * hierarchy.EntrySize
		locations[k] = hierarchy.PageLocation{Offset: at, Size: size}
		at += size
	}

	var data []byte
	for _, k := range order {
		entries := make([]hierarchy.Entry, 0, len(members[k])+len(children[k]))
		for _, member := range members[k] {
			entries = append(entries, leaves[member])
		}
		for _, child := range children[k] {
			entries = append(entries, hierarchy.PageReference{VoxelKey: child, Location: locations[child]})
		}
		data = append(data, hierarchy.EncodePage(entries)...)
	}
	return data, locations[octree.BaseKey()]
}

func (b *CopcBuilder) extents() ([3][2]float64, []las.CopcExtent) {
	var all []pointcloud.Point
	for _, n := range b.nodes {
		all = append(all, n.points...)
	}
	values := func(f func(p pointcloud.Point) float64) las.CopcExtent {
		if len(all) == 0 {
			return las.CopcExtent{}
		}
		e := las.CopcExtent{Min: math.MaxFloat64, Max: -math.MaxFloat64}
		var sum, sumSq float64
		for _, p := range all {
			v := f(p)
			e.Min = math.Min(e.Min, v)
			e.Max = math.Max(e.Max, v)
			sum += v
			sumSq += v * v
		}
		n := float64(len(all))
		e.Mean = sum / n
		e.Var = math.Max(0, sumSq/n-e.Mean*e.Mean)
		return e
	}
	extents := []las.CopcExtent{
		values(func(p pointcloud.Point) float64 { return float64(p.Intensity) }),
		values(func(p pointcloud.Point) float64 { return float64(p.ReturnNumber) }),
		values(func(p pointcloud.Point) float64 { return float64(p.NumberOfReturns) }),
		values(func(p pointcloud.Point) float64 { return float64(p.ScannerChannel) }),
		values(func(p pointcloud.Point) float64 { return boolFloat(p.ScanDirectionFlag) }),
		values(func(p pointcloud.Point) float64 { return boolFloat(p.EdgeOfFlightLine) }),
		values(func(p pointcloud.Point) float64 { return float64(p.Classification) }),
		values(func(p pointcloud.Point) float64 { return float64(p.UserData) }),
		values(func(p pointcloud.Point) float64 { return float64(p.ScanAngle) }),
		values(func(p pointcloud.Point) float64 { return float64(p.PointSourceID) }),
		values(func(p pointcloud.Point) float64 { return p.GPSTime }),
	}
	if b.Format.HasRGB() {
		extents = append(extents,
			values(func(p pointcloud.Point) float64 { return float64(p.Red) }),
			values(func(p pointcloud.Point) float64 { return float64(p.Green) }),
			values(func(p pointcloud.Point) float64 { return float64(p.Blue) }),
		)
	}
	if b.Format.HasNIR() {
		extents = append(extents, values(func(p pointcloud.Point) float64 { return float64(p.NIR) }))
	}
	for range b.ExtraBytes {
		extents = append(extents, las.CopcExtent{})
	}
	bounds := octree.BaseKey().Bounds(b.Center, b.HalfSize)
	xyz := [3][2]float64{
		{bounds.Min.X, bounds.Max.X},
		{bounds.Min.Y, bounds.Max.Y},
		{bounds.Min.Z, bounds.Max.Z},
	}
	return xyz, extents
}

func appendVlr(dst []byte, userID string, recordID uint16, description string, payload []byte) []byte {
	dst = append(dst, las.MarshalVlrHeader(userID, recordID, description, uint16(len(payload)))...)
	return append(dst, payload...)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func keyLess(a, b octree.VoxelKey) bool {
	if a.D != b.D {
		return a.D < b.D
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
