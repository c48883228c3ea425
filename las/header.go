// Package las reads the LAS 1.4 metadata records of a COPC file: the public header, the VLR and
// EVLR directory, and the COPC specific records.
package las

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// HeaderSize is the size of a LAS 1.4 public header.
const HeaderSize = 375

var (
	// ErrNotCopc is returned when a file is not a COPC file.
	ErrNotCopc = errors.New("not a COPC file")
	// ErrUnsupportedPointFormat is returned for point formats other than 6, 7 and 8.
	ErrUnsupportedPointFormat = errors.New("unsupported point format")
)

// Header is the LAS 1.4 public header block.
type Header struct {
	FileSourceID       uint16
	GlobalEncoding     uint16
	GUID               [16]byte
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   string
	GeneratingSoftware string
	CreationDay        uint16
	CreationYear       uint16
	HeaderSize         uint16
	PointOffset        uint32
	VlrCount           uint32
	// PointFormatID has the compression bits masked off.
	PointFormatID     uint8
	PointRecordLength uint16
	Scale             r3.Vector
	Offset            r3.Vector
	Min               r3.Vector
	Max               r3.Vector
	WaveformOffset    uint64
	EvlrOffset        uint64
	EvlrCount         uint32
	PointCount        uint64
	PointsByReturn    [15]uint64
}

// ReadHeader parses the public header from the first HeaderSize bytes of data.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, errors.Errorf("LAS header needs %d bytes, got %d", HeaderSize, len(data))
	}
	if string(data[0:4]) != "LASF" {
		return nil, errors.Wrap(ErrNotCopc, "missing LASF signature")
	}
	le := binary.LittleEndian
	h := &Header{
		FileSourceID:       le.Uint16(data[4:]),
		GlobalEncoding:     le.Uint16(data[6:]),
		VersionMajor:       data[24],
		VersionMinor:       data[25],
		SystemIdentifier:   cString(data[26:58]),
		GeneratingSoftware: cString(data[58:90]),
		CreationDay:        le.Uint16(data[90:]),
		CreationYear:       le.Uint16(data[92:]),
		HeaderSize:         le.Uint16(data[94:]),
		PointOffset:        le.Uint32(data[96:]),
		VlrCount:           le.Uint32(data[100:]),
		PointFormatID:      data[104] & 0x3F,
		PointRecordLength:  le.Uint16(data[105:]),
		Scale:              readVector(data[131:]),
		Offset:             readVector(data[155:]),
		WaveformOffset:     le.Uint64(data[227:]),
		EvlrOffset:         le.Uint64(data[235:]),
		EvlrCount:          le.Uint32(data[243:]),
		PointCount:         le.Uint64(data[247:]),
	}
	copy(h.GUID[:], data[8:24])
	h.Max.X = readFloat(data[179:])
	h.Min.X = readFloat(data[187:])
	h.Max.Y = readFloat(data[195:])
	h.Min.Y = readFloat(data[203:])
	h.Max.Z = readFloat(data[211:])
	h.Min.Z = readFloat(data[219:])
	for i := range h.PointsByReturn {
		h.PointsByReturn[i] = le.Uint64(data[255+8*i:])
	}
	if h.VersionMajor != 1 || h.VersionMinor != 4 {
		return nil, errors.Wrapf(ErrNotCopc, "LAS version %d.%d, want 1.4", h.VersionMajor, h.VersionMinor)
	}
	if h.HeaderSize != HeaderSize {
		return nil, errors.Wrapf(ErrNotCopc, "header size %d, want %d", h.HeaderSize, HeaderSize)
	}
	return h, nil
}

// Marshal encodes the header into its HeaderSize byte layout. Legacy point counts are left zero.
func (h *Header) Marshal() []byte {
	le := binary.LittleEndian
	data := make([]byte, HeaderSize)
	copy(data[0:4], "LASF")
	le.PutUint16(data[4:], h.FileSourceID)
	le.PutUint16(data[6:], h.GlobalEncoding)
	copy(data[8:24], h.GUID[:])
	data[24] = h.VersionMajor
	data[25] = h.VersionMinor
	copy(data[26:58], h.SystemIdentifier)
	copy(data[58:90], h.GeneratingSoftware)
	le.PutUint16(data[90:], h.CreationDay)
	le.PutUint16(data[92:], h.CreationYear)
	le.PutUint16(data[94:], h.HeaderSize)
	le.PutUint32(data[96:], h.PointOffset)
	le.PutUint32(data[100:], h.VlrCount)
	data[104] = h.PointFormatID
	le.PutUint16(data[105:], h.PointRecordLength)
	putVector(data[131:], h.Scale)
	putVector(data[155:], h.Offset)
	putFloat(data[179:], h.Max.X)
	putFloat(data[187:], h.Min.X)
	putFloat(data[195:], h.Max.Y)
	putFloat(data[203:], h.Min.Y)
	putFloat(data[211:], h.Max.Z)
	putFloat(data[219:], h.Min.Z)
	le.PutUint64(data[227:], h.WaveformOffset)
	le.PutUint64(data[235:], h.EvlrOffset)
	le.PutUint32(data[243:], h.EvlrCount)
	le.PutUint64(data[247:], h.PointCount)
	for i, n := range h.PointsByReturn {
		le.PutUint64(data[255+8*i:], n)
	}
	return data
}

// IsCompressed returns whether the point format byte of a raw header has the LASzip bits set.
func IsCompressed(data []byte) bool {
	return len(data) > 104 && data[104]&0xC0 != 0
}

// ApplyScale converts raw integer coordinates to world coordinates.
func (h *Header) ApplyScale(x, y, z int32) r3.Vector {
	return r3.Vector{
		X: float64(x)*h.Scale.X + h.Offset.X,
		Y: float64(y)*h.Scale.Y + h.Offset.Y,
		Z: float64(z)*h.Scale.Z + h.Offset.Z,
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func readFloat(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func putFloat(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func readVector(b []byte) r3.Vector {
	return r3.Vector{X: readFloat(b), Y: readFloat(b[8:]), Z: readFloat(b[16:])}
}

func putVector(b []byte, v r3.Vector) {
	putFloat(b, v.X)
	putFloat(b[8:], v.Y)
	putFloat(b[16:], v.Z)
}
