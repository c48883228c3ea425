package las

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const extentItemSize = 16

// extentNames are the attribute names of the extents of format 6, then 7 and 8 additions.
var extentNames = []string{
	"Intensity", "Return Number", "Number Of Returns", "Scanner Channel", "Scan Direction Flag",
	"Edge Of Flight Line", "Classification", "User Data", "Scan Angle", "Point Source ID", "GPS Time",
	"Red", "Green", "Blue", "NIR",
}

// CopcExtent is the range and, when extended stats are present, the mean and variance of one
// point attribute.
type CopcExtent struct {
	Min  float64
	Max  float64
	Mean float64
	Var  float64
}

// NewCopcExtent validates and returns an extent.
func NewCopcExtent(minimum, maximum, mean, variance float64) (CopcExtent, error) {
	e := CopcExtent{Min: minimum, Max: maximum, Mean: mean, Var: variance}
	return e, e.Validate()
}

// Validate checks Min <= Max and Var >= 0.
func (e CopcExtent) Validate() error {
	if e.Min > e.Max {
		return errors.Errorf("extent minimum %g must be less or equal than maximum %g", e.Min, e.Max)
	}
	if e.Var < 0 {
		return errors.Errorf("extent variance %g must be >= 0", e.Var)
	}
	return nil
}

func (e CopcExtent) String() string {
	return fmt.Sprintf("(%g/%g/%g/%g)", e.Min, e.Max, e.Mean, e.Var)
}

// PointBaseNumberDimensions returns the number of dimensions of a point format, x, y and z
// included.
func PointBaseNumberDimensions(pointFormatID uint8) (int, error) {
	switch pointFormatID {
	case 6:
		return 14, nil
	case 7:
		return 17, nil
	case 8:
		return 18, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedPointFormat, "%d", pointFormatID)
	}
}

// NumberOfExtents returns how many attribute extents a file carries. x, y and z are excluded
// since the header stores their bounds.
func NumberOfExtents(pointFormatID uint8, numEbItems int) (int, error) {
	dims, err := PointBaseNumberDimensions(pointFormatID)
	if err != nil {
		return 0, err
	}
	return dims - 3 + numEbItems, nil
}

// CopcExtents are the per attribute extents of a COPC file.
type CopcExtents struct {
	PointFormatID    uint8
	HasExtendedStats bool
	Extents          []CopcExtent
}

// ParseCopcExtents parses the extents VLR payload and, when not nil, the extended stats payload.
func ParseCopcExtents(data, extended []byte, pointFormatID uint8, numEbItems int) (*CopcExtents, error) {
	want, err := NumberOfExtents(pointFormatID, numEbItems)
	if err != nil {
		return nil, err
	}
	items, err := parseExtentItems(data)
	if err != nil {
		return nil, err
	}
	// the first three items are x, y and z
	if len(items)-3 != want {
		return nil, errors.Errorf("COPC extents: got %d extents, want %d", len(items)-3, want)
	}
	extents := &CopcExtents{PointFormatID: pointFormatID, Extents: make([]CopcExtent, 0, want)}
	for _, item := range items[3:] {
		e := CopcExtent{Min: item[0], Max: item[1]}
		if err := e.Validate(); err != nil {
			return nil, errors.Wrap(err, "COPC extents")
		}
		extents.Extents = append(extents.Extents, e)
	}
	if extended == nil {
		return extents, nil
	}
	stats, err := parseExtentItems(extended)
	if err != nil {
		return nil, err
	}
	if len(stats)-3 != want {
		return nil, errors.Errorf("COPC extended stats: got %d extents, want %d", len(stats)-3, want)
	}
	for i, item := range stats[3:] {
		extents.Extents[i].Mean = item[0]
		extents.Extents[i].Var = item[1]
		if err := extents.Extents[i].Validate(); err != nil {
			return nil, errors.Wrap(err, "COPC extended stats")
		}
	}
	extents.HasExtendedStats = true
	return extents, nil
}

func parseExtentItems(data []byte) ([][2]float64, error) {
	if len(data)%extentItemSize != 0 {
		return nil, errors.Errorf("COPC extents payload of %d bytes is not a multiple of %d", len(data), extentItemSize)
	}
	if len(data) < 3*extentItemSize {
		return nil, errors.Errorf("COPC extents payload of %d bytes is missing x, y and z", len(data))
	}
	items := make([][2]float64, len(data)/extentItemSize)
	for i := range items {
		items[i] = [2]float64{readFloat(data[i*extentItemSize:]), readFloat(data[i*extentItemSize+8:])}
	}
	return items, nil
}

// MarshalExtents encodes min/max pairs (or mean/var pairs when extended) as an extents VLR payload,
// preceded by the x, y and z ranges.
func MarshalExtents(xyz [3][2]float64, extents []CopcExtent, extended bool) []byte {
	data := make([]byte, (3+len(extents))*extentItemSize)
	if !extended {
		for i, item := range xyz {
			putFloat(data[i*extentItemSize:], item[0])
			putFloat(data[i*extentItemSize+8:], item[1])
		}
	}
	for i, e := range extents {
		at := (i + 3) * extentItemSize
		if extended {
			putFloat(data[at:], e.Mean)
			putFloat(data[at+8:], e.Var)
		} else {
			putFloat(data[at:], e.Min)
			putFloat(data[at+8:], e.Max)
		}
	}
	return data
}

// Intensity returns the intensity extent.
func (ce *CopcExtents) Intensity() CopcExtent {
	return ce.Extents[0]
}

// Classification returns the classification extent.
func (ce *CopcExtents) Classification() CopcExtent {
	return ce.Extents[6]
}

// GpsTime returns the GPS time extent.
func (ce *CopcExtents) GpsTime() CopcExtent {
	return ce.Extents[10]
}

// ExtraBytes returns the extents of the extra byte attributes.
func (ce *CopcExtents) ExtraBytes() []CopcExtent {
	dims, err := PointBaseNumberDimensions(ce.PointFormatID)
	if err != nil || dims-3 > len(ce.Extents) {
		return nil
	}
	return ce.Extents[dims-3:]
}

func (ce *CopcExtents) String() string {
	var sb strings.Builder
	sb.WriteString("Copc Extents (Min/Max/Mean/Var):\n")
	dims, _ := PointBaseNumberDimensions(ce.PointFormatID)
	for i, e := range ce.Extents {
		if i < dims-3 && i < len(extentNames) {
			fmt.Fprintf(&sb, "\t%s: %s\n", extentNames[i], e)
			continue
		}
		fmt.Fprintf(&sb, "\tExtra Byte %d: %s\n", i-(dims-3), e)
	}
	return sb.String()
}
