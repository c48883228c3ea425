package las_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/las"
	"go.viam.com/copc/source"
	"go.viam.com/copc/testutils"
)

func TestReadConfig(t *testing.T) {
	ctx := context.Background()
	b := testutils.NewFixtureBuilder()
	data := testutils.BuildBytes(t, b)

	cfg, err := las.ReadConfig(ctx, source.NewBytes(data))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Header.PointFormatID, test.ShouldEqual, 7)
	test.That(t, cfg.Header.PointCount, test.ShouldEqual, uint64(b.PointCount()))
	test.That(t, cfg.Header.EvlrCount, test.ShouldEqual, 1)
	test.That(t, cfg.Info.Center, test.ShouldResemble, testutils.FixtureCenter)
	test.That(t, cfg.Info.HalfSize, test.ShouldEqual, 64)
	test.That(t, cfg.Info.Spacing, test.ShouldEqual, 16)
	test.That(t, cfg.Info.GpsTimeMax, test.ShouldEqual, 200)
	test.That(t, cfg.Wkt, test.ShouldEqual, testutils.FixtureWkt)
	test.That(t, cfg.ExtraBytes, test.ShouldBeEmpty)
	test.That(t, cfg.Extents, test.ShouldNotBeNil)
	test.That(t, cfg.Extents.HasExtendedStats, test.ShouldBeTrue)
	test.That(t, cfg.Extents.Extents, test.ShouldHaveLength, 14)
	test.That(t, cfg.Extents.GpsTime().Min, test.ShouldBeGreaterThanOrEqualTo, 100)
	test.That(t, cfg.Extents.GpsTime().Max, test.ShouldBeLessThanOrEqualTo, 200)
	test.That(t, cfg.HasLASzip(), test.ShouldBeFalse)
	test.That(t, cfg.DefaultCodec(), test.ShouldEqual, codec.RawName)

	format, err := cfg.PointFormat()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, format, test.ShouldResemble, codec.Format{ID: 7, RecordLength: 36})

	bounds := cfg.Header.Max.Sub(cfg.Header.Min)
	test.That(t, bounds.X, test.ShouldBeGreaterThan, 0)
	test.That(t, bounds.X, test.ShouldBeLessThanOrEqualTo, 128)
	test.That(t, cfg.Vlrs[0].DataOffset, test.ShouldEqual, las.CopcInfoOffset)
}

func TestReadConfigVariants(t *testing.T) {
	ctx := context.Background()

	t.Run("laszip and extra bytes", func(t *testing.T) {
		b := testutils.NewCopcBuilder(testutils.FixtureCenter, 10, 1, codec.Format{ID: 6, RecordLength: 33, NumExtraBytes: 3})
		b.LASzip = true
		b.WithExtents = true
		b.ExtraBytes = []las.ExtraBytesDescriptor{{DataType: 0, Options: 3, Name: "blob"}}
		b.AddGeneratedNode(testutils.FixtureEmptyKey.Parent(), 4)

		cfg, err := las.ReadConfig(ctx, source.NewBytes(testutils.BuildBytes(t, b)))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.Compressed, test.ShouldBeTrue)
		test.That(t, cfg.HasLASzip(), test.ShouldBeTrue)
		test.That(t, cfg.DefaultCodec(), test.ShouldEqual, codec.LASzipName)
		test.That(t, cfg.Header.PointFormatID, test.ShouldEqual, 6)
		test.That(t, cfg.ExtraBytes, test.ShouldHaveLength, 1)
		test.That(t, cfg.Extents.ExtraBytes(), test.ShouldHaveLength, 1)
		test.That(t, cfg.Wkt, test.ShouldBeEmpty)
		format, err := cfg.PointFormat()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, format.NumExtraBytes, test.ShouldEqual, 3)
	})

	t.Run("not copc", func(t *testing.T) {
		data := testutils.BuildBytes(t, testutils.NewFixtureBuilder())
		copy(data[las.HeaderSize+2:], "nope")
		_, err := las.ReadConfig(ctx, source.NewBytes(data))
		test.That(t, errors.Is(err, las.ErrNotCopc), test.ShouldBeTrue)
	})

	t.Run("unsupported point format", func(t *testing.T) {
		data := testutils.BuildBytes(t, testutils.NewFixtureBuilder())
		data[104] = 3
		_, err := las.ReadConfig(ctx, source.NewBytes(data))
		test.That(t, errors.Is(err, las.ErrUnsupportedPointFormat), test.ShouldBeTrue)
	})

	t.Run("short record length", func(t *testing.T) {
		data := testutils.BuildBytes(t, testutils.NewFixtureBuilder())
		binary.LittleEndian.PutUint16(data[105:], 20)
		_, err := las.ReadConfig(ctx, source.NewBytes(data))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "record length")
	})

	t.Run("record counts larger than the file", func(t *testing.T) {
		data := testutils.BuildBytes(t, testutils.NewFixtureBuilder())
		binary.LittleEndian.PutUint32(data[100:], 0x7FFFFFFF)
		_, err := las.ReadConfig(ctx, source.NewBytes(data))
		test.That(t, errors.Is(err, source.ErrOutOfBounds), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "VLR count")

		data = testutils.BuildBytes(t, testutils.NewFixtureBuilder())
		binary.LittleEndian.PutUint32(data[243:], 0x7FFFFFFF)
		_, err = las.ReadConfig(ctx, source.NewBytes(data))
		test.That(t, errors.Is(err, source.ErrOutOfBounds), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "EVLR count")
	})

	t.Run("truncated", func(t *testing.T) {
		data := testutils.BuildBytes(t, testutils.NewFixtureBuilder())
		_, err := las.ReadConfig(ctx, source.NewBytes(data[:len(data)-40]))
		test.That(t, errors.Is(err, source.ErrOutOfBounds), test.ShouldBeTrue)

		_, err = las.ReadConfig(ctx, source.NewBytes(data[:200]))
		test.That(t, errors.Is(err, source.ErrOutOfBounds), test.ShouldBeTrue)
	})
}
