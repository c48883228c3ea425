package copc

import (
	"go.viam.com/copc/codec"
	"go.viam.com/copc/logging"
)

// readerOpts configure a Reader. readerOpts are set by the Option values passed to Open.
type readerOpts struct {
	// codecName selects a registered codec. If unset, the codec the file declares is used.
	codecName string

	// decompressor overrides the codec registry.
	decompressor codec.Decompressor

	// parallelism bounds how many point chunks are fetched and decoded at once.
	parallelism int

	logger logging.Logger
}

// Option configures a Reader.
type Option interface {
	apply(*readerOpts)
}

// funcOption wraps a function that modifies readerOpts into an implementation of the Option
// interface.
type funcOption struct {
	f func(*readerOpts)
}

func (fo *funcOption) apply(o *readerOpts) {
	fo.f(o)
}

func newFuncOption(f func(*readerOpts)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithCodec returns an Option selecting the registered codec used to decode point chunks.
func WithCodec(name string) Option {
	return newFuncOption(func(o *readerOpts) {
		o.codecName = name
	})
}

// WithDecompressor returns an Option decoding point chunks with dec instead of a registered codec.
func WithDecompressor(dec codec.Decompressor) Option {
	return newFuncOption(func(o *readerOpts) {
		o.decompressor = dec
	})
}

// WithParallelism returns an Option for how many point chunks are decoded at once. Values below one
// select utils.ParallelFactor.
func WithParallelism(n int) Option {
	return newFuncOption(func(o *readerOpts) {
		o.parallelism = n
	})
}

// WithLogger returns an Option for the logger of the reader.
func WithLogger(logger logging.Logger) Option {
	return newFuncOption(func(o *readerOpts) {
		o.logger = logger
	})
}
