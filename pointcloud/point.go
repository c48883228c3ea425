package pointcloud

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/copc/codec"
)

// Point is one decoded point record of format 6, 7 or 8. Coordinates are the raw integers of the
// record; see Points.Position for world coordinates.
type Point struct {
	X, Y, Z int32

	Intensity       uint16
	ReturnNumber    uint8
	NumberOfReturns uint8
	// ClassificationFlags holds the synthetic, key-point, withheld and overlap bits.
	ClassificationFlags uint8
	ScannerChannel      uint8
	ScanDirectionFlag   bool
	EdgeOfFlightLine    bool
	Classification      uint8
	UserData            uint8
	// ScanAngle is in increments of 0.006 degrees.
	ScanAngle     int16
	PointSourceID uint16
	GPSTime       float64

	Red, Green, Blue uint16
	NIR              uint16

	ExtraBytes []byte
}

// ScanAngleDegrees returns the scan angle in degrees.
func (p Point) ScanAngleDegrees() float64 {
	return float64(p.ScanAngle) * 0.006
}

// Synthetic returns whether the synthetic classification flag is set.
func (p Point) Synthetic() bool { return p.ClassificationFlags&0x1 != 0 }

// KeyPoint returns whether the key-point classification flag is set.
func (p Point) KeyPoint() bool { return p.ClassificationFlags&0x2 != 0 }

// Withheld returns whether the withheld classification flag is set.
func (p Point) Withheld() bool { return p.ClassificationFlags&0x4 != 0 }

// Overlap returns whether the overlap classification flag is set.
func (p Point) Overlap() bool { return p.ClassificationFlags&0x8 != 0 }

// UnpackPoint decodes one record of the given format.
func UnpackPoint(rec []byte, format codec.Format) (Point, error) {
	if len(rec) < int(format.RecordLength) {
		return Point{}, errors.Wrapf(codec.ErrMalformed, "point record needs %d bytes, got %d", format.RecordLength, len(rec))
	}
	base, err := codec.BaseRecordLength(format.ID)
	if err != nil {
		return Point{}, err
	}
	le := binary.LittleEndian
	p := Point{
		X:                   int32(le.Uint32(rec[0:])),
		Y:                   int32(le.Uint32(rec[4:])),
		Z:                   int32(le.Uint32(rec[8:])),
		Intensity:           le.Uint16(rec[12:]),
		ReturnNumber:        rec[14] & 0x0F,
		NumberOfReturns:     rec[14] >> 4,
		ClassificationFlags: rec[15] & 0x0F,
		ScannerChannel:      (rec[15] >> 4) & 0x03,
		ScanDirectionFlag:   rec[15]&0x40 != 0,
		EdgeOfFlightLine:    rec[15]&0x80 != 0,
		Classification:      rec[16],
		UserData:            rec[17],
		ScanAngle:           int16(le.Uint16(rec[18:])),
		PointSourceID:       le.Uint16(rec[20:]),
		GPSTime:             math.Float64frombits(le.Uint64(rec[22:])),
	}
	if format.HasRGB() {
		p.Red = le.Uint16(rec[30:])
		p.Green = le.Uint16(rec[32:])
		p.Blue = le.Uint16(rec[34:])
	}
	if format.HasNIR() {
		p.NIR = le.Uint16(rec[36:])
	}
	if format.NumExtraBytes > 0 {
		p.ExtraBytes = append([]byte(nil), rec[base:format.RecordLength]...)
	}
	return p, nil
}

// PackPoint appends the record encoding of p in the given format to dst.
func PackPoint(dst []byte, p Point, format codec.Format) []byte {
	le := binary.LittleEndian
	rec := make([]byte, format.RecordLength)
	le.PutUint32(rec[0:], uint32(p.X))
	le.PutUint32(rec[4:], uint32(p.Y))
	le.PutUint32(rec[8:], uint32(p.Z))
	le.PutUint16(rec[12:], p.Intensity)
	rec[14] = p.ReturnNumber&0x0F | p.NumberOfReturns<<4
	rec[15] = p.ClassificationFlags&0x0F | (p.ScannerChannel&0x03)<<4
	if p.ScanDirectionFlag {
		rec[15] |= 0x40
	}
	if p.EdgeOfFlightLine {
		rec[15] |= 0x80
	}
	rec[16] = p.Classification
	rec[17] = p.UserData
	le.PutUint16(rec[18:], uint16(p.ScanAngle))
	le.PutUint16(rec[20:], p.PointSourceID)
	le.PutUint64(rec[22:], math.Float64bits(p.GPSTime))
	if format.HasRGB() {
		le.PutUint16(rec[30:], p.Red)
		le.PutUint16(rec[32:], p.Green)
		le.PutUint16(rec[34:], p.Blue)
	}
	if format.HasNIR() {
		le.PutUint16(rec[36:], p.NIR)
	}
	if format.NumExtraBytes > 0 {
		copy(rec[format.RecordLength-format.NumExtraBytes:], p.ExtraBytes)
	}
	return append(dst, rec...)
}
