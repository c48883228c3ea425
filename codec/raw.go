package codec

import "github.com/pkg/errors"

// Raw decodes chunks stored as plain point records.
type Raw struct{}

// Decompress returns the first n records of compressed. Trailing bytes are ignored.
func (Raw) Decompress(compressed []byte, format Format, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrMalformed, "negative point count %d", n)
	}
	if format.RecordLength == 0 {
		return nil, errors.Wrap(ErrMalformed, "zero point record length")
	}
	want := n * int(format.RecordLength)
	if len(compressed) < want {
		return nil, errors.Wrapf(ErrMalformed, "chunk holds %d bytes, %d points of %d bytes need %d",
			len(compressed), n, format.RecordLength, want)
	}
	out := make([]byte, want)
	copy(out, compressed)
	return out, nil
}
