package las

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	// CopcInfoSize is the payload size of the COPC info VLR.
	CopcInfoSize = 160
	// CopcInfoOffset is the absolute offset of the COPC info payload: it must be the first VLR.
	CopcInfoOffset = HeaderSize + VlrHeaderSize
)

// CopcInfo is the payload of the COPC info VLR.
type CopcInfo struct {
	Center         r3.Vector
	HalfSize       float64
	Spacing        float64
	RootHierOffset uint64
	RootHierSize   uint64
	GpsTimeMin     float64
	GpsTimeMax     float64
}

// ParseCopcInfo parses the COPC info payload.
func ParseCopcInfo(data []byte) (CopcInfo, error) {
	if len(data) < CopcInfoSize {
		return CopcInfo{}, errors.Wrapf(ErrNotCopc, "COPC info needs %d bytes, got %d", CopcInfoSize, len(data))
	}
	le := binary.LittleEndian
	info := CopcInfo{
		Center:         readVector(data),
		HalfSize:       readFloat(data[24:]),
		Spacing:        readFloat(data[32:]),
		RootHierOffset: le.Uint64(data[40:]),
		RootHierSize:   le.Uint64(data[48:]),
		GpsTimeMin:     readFloat(data[56:]),
		GpsTimeMax:     readFloat(data[64:]),
	}
	if err := info.Validate(); err != nil {
		return CopcInfo{}, err
	}
	return info, nil
}

// Validate checks that the root cube and spacing describe a usable octree.
func (info CopcInfo) Validate() error {
	if !(info.HalfSize > 0) || math.IsInf(info.HalfSize, 1) {
		return errors.Wrapf(ErrNotCopc, "half size %g is not positive and finite", info.HalfSize)
	}
	if !(info.Spacing > 0) || math.IsInf(info.Spacing, 1) {
		return errors.Wrapf(ErrNotCopc, "spacing %g is not positive and finite", info.Spacing)
	}
	return nil
}

// Marshal encodes the info into its CopcInfoSize byte payload. Reserved words are zero.
func (info CopcInfo) Marshal() []byte {
	le := binary.LittleEndian
	data := make([]byte, CopcInfoSize)
	putVector(data, info.Center)
	putFloat(data[24:], info.HalfSize)
	putFloat(data[32:], info.Spacing)
	le.PutUint64(data[40:], info.RootHierOffset)
	le.PutUint64(data[48:], info.RootHierSize)
	putFloat(data[56:], info.GpsTimeMin)
	putFloat(data[64:], info.GpsTimeMax)
	return data
}

func (info CopcInfo) String() string {
	return fmt.Sprintf("center: (%.4f, %.4f, %.4f) halfsize: %.4f spacing: %.4f root hierarchy: %d+%d gpstime: [%.4f, %.4f]",
		info.Center.X, info.Center.Y, info.Center.Z, info.HalfSize, info.Spacing,
		info.RootHierOffset, info.RootHierSize, info.GpsTimeMin, info.GpsTimeMax)
}
