package pointcloud

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/octree"
)

var (
	format6   = codec.Format{ID: 6, RecordLength: 30}
	format8   = codec.Format{ID: 8, RecordLength: 40, NumExtraBytes: 2}
	unitScale = r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}
	origin    = r3.Vector{X: 1000, Y: 2000, Z: 0}
)

func TestUnpackPoint(t *testing.T) {
	rec := make([]byte, 30)
	binary.LittleEndian.PutUint32(rec[0:], 150)
	binary.LittleEndian.PutUint32(rec[4:], uint32(0xFFFFFFFF)) // -1
	binary.LittleEndian.PutUint32(rec[8:], 42)
	binary.LittleEndian.PutUint16(rec[12:], 900)
	rec[14] = 2 | 3<<4
	rec[15] = 0x5 | 0x2<<4 | 0x40
	rec[16] = 2
	rec[17] = 9
	binary.LittleEndian.PutUint16(rec[18:], uint16(0xFFF6)) // -10
	binary.LittleEndian.PutUint16(rec[20:], 7)

	p, err := UnpackPoint(rec, format6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.X, test.ShouldEqual, 150)
	test.That(t, p.Y, test.ShouldEqual, -1)
	test.That(t, p.Z, test.ShouldEqual, 42)
	test.That(t, p.Intensity, test.ShouldEqual, 900)
	test.That(t, p.ReturnNumber, test.ShouldEqual, 2)
	test.That(t, p.NumberOfReturns, test.ShouldEqual, 3)
	test.That(t, p.Synthetic(), test.ShouldBeTrue)
	test.That(t, p.KeyPoint(), test.ShouldBeFalse)
	test.That(t, p.Withheld(), test.ShouldBeTrue)
	test.That(t, p.Overlap(), test.ShouldBeFalse)
	test.That(t, p.ScannerChannel, test.ShouldEqual, 2)
	test.That(t, p.ScanDirectionFlag, test.ShouldBeTrue)
	test.That(t, p.EdgeOfFlightLine, test.ShouldBeFalse)
	test.That(t, p.Classification, test.ShouldEqual, 2)
	test.That(t, p.UserData, test.ShouldEqual, 9)
	test.That(t, p.ScanAngle, test.ShouldEqual, -10)
	test.That(t, p.ScanAngleDegrees(), test.ShouldAlmostEqual, -0.06)
	test.That(t, p.PointSourceID, test.ShouldEqual, 7)
	test.That(t, p.ExtraBytes, test.ShouldBeNil)

	test.That(t, PackPoint(nil, p, format6), test.ShouldResemble, rec)

	_, err = UnpackPoint(rec[:29], format6)
	test.That(t, errors.Is(err, codec.ErrMalformed), test.ShouldBeTrue)
}

func TestUnpackFormat8(t *testing.T) {
	p := Point{
		X: 1, Y: 2, Z: 3, GPSTime: 12345.5,
		Red: 100, Green: 200, Blue: 300, NIR: 400,
		EdgeOfFlightLine: true, ExtraBytes: []byte{0xAB, 0xCD},
	}
	rec := PackPoint(nil, p, format8)
	test.That(t, rec, test.ShouldHaveLength, 40)
	test.That(t, rec[38:], test.ShouldResemble, []byte{0xAB, 0xCD})

	got, err := UnpackPoint(rec, format8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, p)
}

func TestPoints(t *testing.T) {
	ps := New(format6, unitScale, origin)
	for i := int32(0); i < 10; i++ {
		test.That(t, ps.Append(Point{X: i * 100, Y: i * 100, Z: i}), test.ShouldBeNil)
	}
	test.That(t, ps.Append(Point{ExtraBytes: []byte{1}}), test.ShouldNotBeNil)
	test.That(t, ps.Len(), test.ShouldEqual, 10)
	test.That(t, ps.Get(3).X, test.ShouldEqual, 300)

	pos := ps.Position(3)
	test.That(t, pos.X, test.ShouldAlmostEqual, 1003)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 2003)
	test.That(t, pos.Z, test.ShouldAlmostEqual, 0.03)

	t.Run("pack and unpack", func(t *testing.T) {
		data := ps.Pack()
		test.That(t, data, test.ShouldHaveLength, 300)
		back, err := Unpack(data, format6, unitScale, origin)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, back, test.ShouldResemble, ps)

		_, err = Unpack(data[:299], format6, unitScale, origin)
		test.That(t, errors.Is(err, codec.ErrMalformed), test.ShouldBeTrue)
	})

	t.Run("within", func(t *testing.T) {
		box, err := octree.NewBox2D(1002, 2002, 1005, 2005)
		test.That(t, err, test.ShouldBeNil)
		within := ps.Within(box)
		test.That(t, within.Len(), test.ShouldEqual, 4)
		test.That(t, within.Get(0).X, test.ShouldEqual, 200)
		test.That(t, ps.Within(octree.ZeroBox()).Len(), test.ShouldEqual, 0)
		test.That(t, ps.Within(octree.MaxBox()).Len(), test.ShouldEqual, 10)
	})

	t.Run("metadata", func(t *testing.T) {
		meta := ps.MetaData()
		test.That(t, meta.Count, test.ShouldEqual, 10)
		test.That(t, meta.HasColor, test.ShouldBeFalse)
		test.That(t, meta.MinX, test.ShouldAlmostEqual, 1000)
		test.That(t, meta.MaxX, test.ShouldAlmostEqual, 1009)
		test.That(t, meta.MaxZ, test.ShouldAlmostEqual, 0.09)
		test.That(t, meta.Bounds().Max.Y, test.ShouldAlmostEqual, 2009)
		test.That(t, NewMetaData().Bounds(), test.ShouldResemble, octree.ZeroBox())
	})

	t.Run("append points", func(t *testing.T) {
		all := New(format6, unitScale, origin)
		test.That(t, all.AppendPoints(ps), test.ShouldBeNil)
		test.That(t, all.AppendPoints(ps), test.ShouldBeNil)
		test.That(t, all.Len(), test.ShouldEqual, 20)

		test.That(t, all.AppendPoints(New(format8, unitScale, origin)), test.ShouldNotBeNil)
		test.That(t, all.AppendPoints(New(format6, unitScale, r3.Vector{})), test.ShouldNotBeNil)
	})

	t.Run("iterate stops early", func(t *testing.T) {
		count := 0
		ps.Iterate(func(pos r3.Vector, p Point) bool {
			count++
			return count < 3
		})
		test.That(t, count, test.ShouldEqual, 3)
	})
}

func TestWriteToLASFile(t *testing.T) {
	format7 := codec.Format{ID: 7, RecordLength: 36}
	ps := New(format7, unitScale, r3.Vector{})
	for i := int32(0); i < 5; i++ {
		test.That(t, ps.Append(Point{
			X: 100 * i, Y: 200 * i, Z: 50,
			ReturnNumber: 1, NumberOfReturns: 1,
			Red: uint16(i) * 256, Green: 512, Blue: 1024,
		}), test.ShouldBeNil)
	}

	fn := filepath.Join(t.TempDir(), "out.las")
	test.That(t, WriteToLASFile(ps, fn), test.ShouldBeNil)

	positions, colors, err := ReadLASFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, positions, test.ShouldHaveLength, 5)
	test.That(t, colors, test.ShouldHaveLength, 5)
	for i, pos := range positions {
		want := ps.Position(i)
		test.That(t, pos.X, test.ShouldAlmostEqual, want.X, 0.01)
		test.That(t, pos.Y, test.ShouldAlmostEqual, want.Y, 0.01)
		test.That(t, pos.Z, test.ShouldAlmostEqual, want.Z, 0.01)
		test.That(t, colors[i][0], test.ShouldEqual, uint16(i)*256)
	}

	_, _, err = ReadLASFile(filepath.Join(t.TempDir(), "missing.las"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLegacyBits(t *testing.T) {
	p := Point{ReturnNumber: 9, NumberOfReturns: 12, ScanDirectionFlag: true, Classification: 2, ClassificationFlags: 0xF}
	test.That(t, legacyReturnBits(p), test.ShouldEqual, uint8(7|7<<3|1<<6))
	test.That(t, legacyClassification(p), test.ShouldEqual, uint8(2|7<<5))
}
