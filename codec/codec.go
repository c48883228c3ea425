// Package codec dispatches compressed point chunks to the codec that decodes them.
package codec

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrMalformed is returned when chunk bytes cannot be decoded.
	ErrMalformed = errors.New("malformed point data")
	// ErrUnknownCodec is returned when no codec is registered under a name.
	ErrUnknownCodec = errors.New("unknown point codec")
)

// Names of the codecs a reader selects between.
const (
	RawName    = "raw"
	LASzipName = "laszip"
)

// Base record sizes of the supported point formats.
const (
	Format6Size = 30
	Format7Size = 36
	Format8Size = 38
)

// Format describes the layout of decoded point records.
type Format struct {
	ID            uint8
	RecordLength  uint16
	NumExtraBytes uint16
}

// BaseRecordLength returns the record size of a point format without extra bytes.
func BaseRecordLength(id uint8) (uint16, error) {
	switch id {
	case 6:
		return Format6Size, nil
	case 7:
		return Format7Size, nil
	case 8:
		return Format8Size, nil
	default:
		return 0, errors.Errorf("unsupported point format %d", id)
	}
}

// NewFormat validates id and recordLength and derives the number of extra bytes.
func NewFormat(id uint8, recordLength uint16) (Format, error) {
	base, err := BaseRecordLength(id)
	if err != nil {
		return Format{}, err
	}
	if recordLength < base {
		return Format{}, errors.Errorf("point record length %d is shorter than format %d base size %d", recordLength, id, base)
	}
	return Format{ID: id, RecordLength: recordLength, NumExtraBytes: recordLength - base}, nil
}

// HasRGB returns whether records carry red, green and blue.
func (f Format) HasRGB() bool {
	return f.ID == 7 || f.ID == 8
}

// HasNIR returns whether records carry near infrared.
func (f Format) HasNIR() bool {
	return f.ID == 8
}

// A Decompressor decodes one compressed chunk of n point records into n uncompressed records of
// format.RecordLength bytes each.
type Decompressor interface {
	Decompress(compressed []byte, format Format, n int) ([]byte, error)
}

// DecompressorFunc adapts a function into a Decompressor.
type DecompressorFunc func(compressed []byte, format Format, n int) ([]byte, error)

// Decompress calls f.
func (f DecompressorFunc) Decompress(compressed []byte, format Format, n int) ([]byte, error) {
	return f(compressed, format, n)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Decompressor{}
)

func init() {
	Register(RawName, Raw{})
}

// Register registers a codec under name. Registering a name twice panics.
func Register(name string, dec Decompressor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := registry[name]; old {
		panic(errors.Errorf("trying to register two codecs with same name %s", name))
	}
	if dec == nil {
		panic(errors.Errorf("cannot register a nil codec for %s", name))
	}
	registry[name] = dec
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Decompressor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	dec, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCodec, "%q", name)
	}
	return dec, nil
}

// Registered returns the sorted names of all registered codecs.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func deregister(name string) {
	registryMu.Lock()
	delete(registry, name)
	registryMu.Unlock()
}
