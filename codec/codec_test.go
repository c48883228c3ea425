package codec

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewFormat(t *testing.T) {
	f, err := NewFormat(6, 30)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldResemble, Format{ID: 6, RecordLength: 30})
	test.That(t, f.HasRGB(), test.ShouldBeFalse)

	f, err = NewFormat(7, 40)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.NumExtraBytes, test.ShouldEqual, 4)
	test.That(t, f.HasRGB(), test.ShouldBeTrue)
	test.That(t, f.HasNIR(), test.ShouldBeFalse)

	f, err = NewFormat(8, 38)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.HasNIR(), test.ShouldBeTrue)

	_, err = NewFormat(8, 36)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFormat(3, 34)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported point format 3")
}

func TestRegistry(t *testing.T) {
	dec, err := Lookup(RawName)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dec, test.ShouldResemble, Raw{})

	_, err = Lookup("nope")
	test.That(t, errors.Is(err, ErrUnknownCodec), test.ShouldBeTrue)

	const name = "test-double"
	Register(name, DecompressorFunc(func(compressed []byte, format Format, n int) ([]byte, error) {
		return make([]byte, n*int(format.RecordLength)), nil
	}))
	defer deregister(name)
	test.That(t, Registered(), test.ShouldContain, name)
	test.That(t, Registered(), test.ShouldContain, RawName)

	test.That(t, func() { Register(name, Raw{}) }, test.ShouldPanic)
	test.That(t, func() { Register("nil-codec", nil) }, test.ShouldPanic)

	dec, err = Lookup(name)
	test.That(t, err, test.ShouldBeNil)
	out, err := dec.Decompress(nil, Format{ID: 6, RecordLength: 30}, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldHaveLength, 60)
}

func TestRaw(t *testing.T) {
	format := Format{ID: 6, RecordLength: 30}
	chunk := make([]byte, 95)
	for i := range chunk {
		chunk[i] = byte(i)
	}

	out, err := Raw{}.Decompress(chunk, format, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, chunk[:90])

	out, err = Raw{}.Decompress(nil, format, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldHaveLength, 0)

	_, err = Raw{}.Decompress(chunk, format, 4)
	test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeTrue)
	_, err = Raw{}.Decompress(chunk, format, -1)
	test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeTrue)
	_, err = Raw{}.Decompress(chunk, Format{ID: 6}, 1)
	test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeTrue)
}
