package las

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ExtraBytesDescriptorSize is the size of one extra bytes descriptor.
const ExtraBytesDescriptorSize = 192

// ExtraBytesDescriptor describes one extra attribute stored after the base point record.
type ExtraBytesDescriptor struct {
	DataType    uint8
	Options     uint8
	Name        string
	Description string
}

// dataTypeSizes indexes the LAS extra bytes data types 1 through 10.
var dataTypeSizes = [...]int{0, 1, 1, 2, 2, 4, 4, 8, 8, 4, 8}

// Size returns the number of record bytes the attribute uses. Data type 0 stores its size in
// Options.
func (d ExtraBytesDescriptor) Size() int {
	if d.DataType == 0 {
		return int(d.Options)
	}
	if int(d.DataType) < len(dataTypeSizes) {
		return dataTypeSizes[d.DataType]
	}
	return 0
}

// ParseExtraBytes parses the payload of the extra bytes VLR.
func ParseExtraBytes(data []byte) ([]ExtraBytesDescriptor, error) {
	if len(data)%ExtraBytesDescriptorSize != 0 {
		return nil, errors.Errorf("extra bytes payload of %d bytes is not a multiple of %d", len(data), ExtraBytesDescriptorSize)
	}
	descs := make([]ExtraBytesDescriptor, 0, len(data)/ExtraBytesDescriptorSize)
	for at := 0; at < len(data); at += ExtraBytesDescriptorSize {
		rec := data[at : at+ExtraBytesDescriptorSize]
		desc := ExtraBytesDescriptor{
			DataType:    rec[2],
			Options:     rec[3],
			Name:        cString(rec[4:36]),
			Description: cString(rec[160:192]),
		}
		if desc.DataType > 10 {
			return nil, errors.Errorf("extra bytes %q has unsupported data type %d", desc.Name, desc.DataType)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// MarshalExtraBytes encodes descriptors as an extra bytes VLR payload.
func MarshalExtraBytes(descs []ExtraBytesDescriptor) []byte {
	data := make([]byte, len(descs)*ExtraBytesDescriptorSize)
	for i, desc := range descs {
		rec := data[i*ExtraBytesDescriptorSize:]
		binary.LittleEndian.PutUint16(rec, 0)
		rec[2] = desc.DataType
		rec[3] = desc.Options
		copy(rec[4:36], desc.Name)
		copy(rec[160:192], desc.Description)
	}
	return data
}
