// Package pointcloud holds decoded COPC point records.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/octree"
)

// Points is a list of point records sharing one format, scale and offset.
type Points struct {
	format codec.Format
	scale  r3.Vector
	offset r3.Vector
	points []Point
}

// New returns an empty list of points.
func New(format codec.Format, scale, offset r3.Vector) *Points {
	return &Points{format: format, scale: scale, offset: offset}
}

// Unpack decodes every record of data. data must hold a whole number of records.
func Unpack(data []byte, format codec.Format, scale, offset r3.Vector) (*Points, error) {
	if format.RecordLength == 0 {
		return nil, errors.Wrap(codec.ErrMalformed, "zero point record length")
	}
	if len(data)%int(format.RecordLength) != 0 {
		return nil, errors.Wrapf(codec.ErrMalformed, "%d bytes is not a multiple of the record length %d",
			len(data), format.RecordLength)
	}
	ps := New(format, scale, offset)
	ps.points = make([]Point, 0, len(data)/int(format.RecordLength))
	for at := 0; at < len(data); at += int(format.RecordLength) {
		p, err := UnpackPoint(data[at:], format)
		if err != nil {
			return nil, err
		}
		ps.points = append(ps.points, p)
	}
	return ps, nil
}

// Pack encodes every point into records of the list's format.
func (ps *Points) Pack() []byte {
	data := make([]byte, 0, len(ps.points)*int(ps.format.RecordLength))
	for _, p := range ps.points {
		data = PackPoint(data, p, ps.format)
	}
	return data
}

// Format returns the record format of the points.
func (ps *Points) Format() codec.Format {
	return ps.format
}

// Scale returns the scale applied to raw coordinates.
func (ps *Points) Scale() r3.Vector {
	return ps.scale
}

// Offset returns the offset applied to scaled coordinates.
func (ps *Points) Offset() r3.Vector {
	return ps.offset
}

// Len returns the number of points.
func (ps *Points) Len() int {
	return len(ps.points)
}

// Get returns the i-th point.
func (ps *Points) Get(i int) Point {
	return ps.points[i]
}

// Append adds p. Its extra bytes must match the format.
func (ps *Points) Append(p Point) error {
	if len(p.ExtraBytes) != int(ps.format.NumExtraBytes) {
		return errors.Errorf("point has %d extra bytes, format has %d", len(p.ExtraBytes), ps.format.NumExtraBytes)
	}
	ps.points = append(ps.points, p)
	return nil
}

// AppendPoints adds every point of other, which must share the list's format, scale and offset.
func (ps *Points) AppendPoints(other *Points) error {
	if other.format != ps.format {
		return errors.Errorf("cannot append points of format %+v to points of format %+v", other.format, ps.format)
	}
	if other.scale != ps.scale || other.offset != ps.offset {
		return errors.New("cannot append points with a different scale or offset")
	}
	ps.points = append(ps.points, other.points...)
	return nil
}

// Position returns the world coordinates of the i-th point.
func (ps *Points) Position(i int) r3.Vector {
	return ps.position(ps.points[i])
}

func (ps *Points) position(p Point) r3.Vector {
	return r3.Vector{
		X: float64(p.X)*ps.scale.X + ps.offset.X,
		Y: float64(p.Y)*ps.scale.Y + ps.offset.Y,
		Z: float64(p.Z)*ps.scale.Z + ps.offset.Z,
	}
}

// Iterate calls fn with every point and its world position until fn returns false.
func (ps *Points) Iterate(fn func(pos r3.Vector, p Point) bool) {
	for _, p := range ps.points {
		if !fn(ps.position(p), p) {
			return
		}
	}
}

// Within returns the points whose position lies inside box.
func (ps *Points) Within(box octree.Box) *Points {
	out := New(ps.format, ps.scale, ps.offset)
	for _, p := range ps.points {
		if box.ContainsPoint(ps.position(p)) {
			out.points = append(out.points, p)
		}
	}
	return out
}

// MetaData returns the bounds of the points.
func (ps *Points) MetaData() MetaData {
	meta := NewMetaData()
	meta.HasColor = ps.format.HasRGB()
	for _, p := range ps.points {
		meta.Merge(ps.position(p))
	}
	return meta
}
