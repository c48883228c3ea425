package las

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/source"
)

// Config is the metadata of a COPC file a reader session is opened with.
type Config struct {
	Header     *Header
	Info       CopcInfo
	Extents    *CopcExtents
	Wkt        string
	ExtraBytes []ExtraBytesDescriptor
	Vlrs       []VlrHeader
	// Compressed reports whether the point format byte carries the LASzip compression bits.
	Compressed bool
}

// ReadConfig reads and validates the metadata of the COPC file in src.
func ReadConfig(ctx context.Context, src source.Fetcher) (*Config, error) {
	raw, err := src.Fetch(ctx, 0, HeaderSize)
	if err != nil {
		return nil, errors.Wrap(err, "reading LAS header")
	}
	header, err := ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Header: header, Compressed: IsCompressed(raw)}
	if _, err := cfg.PointFormat(); err != nil {
		return nil, err
	}

	cfg.Vlrs, err = ReadVlrDirectory(ctx, src, header)
	if err != nil {
		return nil, err
	}
	if len(cfg.Vlrs) == 0 || !cfg.Vlrs[0].Is(CopcUserID, CopcInfoRecordID) || cfg.Vlrs[0].DataOffset != CopcInfoOffset {
		return nil, errors.Wrap(ErrNotCopc, "COPC info VLR must be the first VLR")
	}
	infoData, err := fetchPayload(ctx, src, cfg.Vlrs[0])
	if err != nil {
		return nil, err
	}
	if cfg.Info, err = ParseCopcInfo(infoData); err != nil {
		return nil, err
	}
	if err := source.CheckRange(cfg.Info.RootHierOffset, cfg.Info.RootHierSize, src.Size()); err != nil {
		return nil, errors.Wrap(err, "root hierarchy page")
	}

	if vlr, ok := FindVlr(cfg.Vlrs, ProjectionUserID, WktRecordID); ok {
		data, err := fetchPayload(ctx, src, vlr)
		if err != nil {
			return nil, err
		}
		cfg.Wkt = cString(data)
	}

	if vlr, ok := FindVlr(cfg.Vlrs, SpecUserID, ExtraBytesID); ok {
		data, err := fetchPayload(ctx, src, vlr)
		if err != nil {
			return nil, err
		}
		if cfg.ExtraBytes, err = ParseExtraBytes(data); err != nil {
			return nil, err
		}
	}

	if vlr, ok := FindVlr(cfg.Vlrs, CopcUserID, CopcExtentsID); ok {
		data, err := fetchPayload(ctx, src, vlr)
		if err != nil {
			return nil, err
		}
		var extended []byte
		if stats, ok := FindVlr(cfg.Vlrs, CopcUserID, CopcExtendedID); ok {
			if extended, err = fetchPayload(ctx, src, stats); err != nil {
				return nil, err
			}
		}
		cfg.Extents, err = ParseCopcExtents(data, extended, header.PointFormatID, len(cfg.ExtraBytes))
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// PointFormat returns the layout of the file's point records.
func (cfg *Config) PointFormat() (codec.Format, error) {
	if _, err := PointBaseNumberDimensions(cfg.Header.PointFormatID); err != nil {
		return codec.Format{}, err
	}
	format, err := codec.NewFormat(cfg.Header.PointFormatID, cfg.Header.PointRecordLength)
	if err != nil {
		return codec.Format{}, errors.Wrap(err, "invalid point record length")
	}
	return format, nil
}

// HasLASzip returns whether the file declares LASzip compressed point data.
func (cfg *Config) HasLASzip() bool {
	_, ok := FindVlr(cfg.Vlrs, LASzipUserID, LASzipRecordID)
	return ok || cfg.Compressed
}

// DefaultCodec returns the name of the codec the file's point chunks are encoded with.
func (cfg *Config) DefaultCodec() string {
	if cfg.HasLASzip() {
		return codec.LASzipName
	}
	return codec.RawName
}
