package las

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/copc/source"
)

// Record header sizes.
const (
	VlrHeaderSize  = 54
	EvlrHeaderSize = 60
)

// Well known record identifiers.
const (
	CopcUserID        = "copc"
	CopcInfoRecordID  = 1
	CopcHierarchyID   = 1000
	CopcExtentsID     = 10000
	CopcExtendedID    = 10001
	ProjectionUserID  = "LASF_Projection"
	WktRecordID       = 2112
	SpecUserID        = "LASF_Spec"
	ExtraBytesID      = 4
	LASzipUserID      = "laszip encoded"
	LASzipRecordID    = 22204
	userIDFieldLength = 16
	descriptionLength = 32
)

// VlrHeader describes one variable length record or extended variable length record.
type VlrHeader struct {
	UserID      string
	RecordID    uint16
	Description string
	// DataOffset is the absolute file offset of the record's payload.
	DataOffset uint64
	DataLength uint64
	Extended   bool
}

// Is returns whether the record has the given user and record id.
func (v VlrHeader) Is(userID string, recordID uint16) bool {
	return v.UserID == userID && v.RecordID == recordID
}

// ParseVlrHeader parses a VLR header located at offset.
func ParseVlrHeader(data []byte, offset uint64) (VlrHeader, error) {
	if len(data) < VlrHeaderSize {
		return VlrHeader{}, errors.Errorf("VLR header needs %d bytes, got %d", VlrHeaderSize, len(data))
	}
	return VlrHeader{
		UserID:      cString(data[2:18]),
		RecordID:    binary.LittleEndian.Uint16(data[18:]),
		DataLength:  uint64(binary.LittleEndian.Uint16(data[20:])),
		Description: cString(data[22:54]),
		DataOffset:  offset + VlrHeaderSize,
	}, nil
}

// ParseEvlrHeader parses an EVLR header located at offset.
func ParseEvlrHeader(data []byte, offset uint64) (VlrHeader, error) {
	if len(data) < EvlrHeaderSize {
		return VlrHeader{}, errors.Errorf("EVLR header needs %d bytes, got %d", EvlrHeaderSize, len(data))
	}
	return VlrHeader{
		UserID:      cString(data[2:18]),
		RecordID:    binary.LittleEndian.Uint16(data[18:]),
		DataLength:  binary.LittleEndian.Uint64(data[20:]),
		Description: cString(data[28:60]),
		DataOffset:  offset + EvlrHeaderSize,
		Extended:    true,
	}, nil
}

// MarshalVlrHeader encodes a VLR header for a payload of dataLength bytes.
func MarshalVlrHeader(userID string, recordID uint16, description string, dataLength uint16) []byte {
	data := make([]byte, VlrHeaderSize)
	copy(data[2:2+userIDFieldLength], userID)
	binary.LittleEndian.PutUint16(data[18:], recordID)
	binary.LittleEndian.PutUint16(data[20:], dataLength)
	copy(data[22:22+descriptionLength], description)
	return data
}

// MarshalEvlrHeader encodes an EVLR header for a payload of dataLength bytes.
func MarshalEvlrHeader(userID string, recordID uint16, description string, dataLength uint64) []byte {
	data := make([]byte, EvlrHeaderSize)
	copy(data[2:2+userIDFieldLength], userID)
	binary.LittleEndian.PutUint16(data[18:], recordID)
	binary.LittleEndian.PutUint64(data[20:], dataLength)
	copy(data[28:28+descriptionLength], description)
	return data
}

// ReadVlrDirectory reads the headers of every VLR and EVLR of the file described by header.
func ReadVlrDirectory(ctx context.Context, src source.Fetcher, header *Header) ([]VlrHeader, error) {
	// every record needs at least its header
	offset := uint64(header.HeaderSize)
	if err := source.CheckRange(offset, uint64(header.VlrCount)*VlrHeaderSize, src.Size()); err != nil {
		return nil, errors.Wrapf(err, "VLR count %d", header.VlrCount)
	}
	if header.EvlrCount > 0 {
		if err := source.CheckRange(header.EvlrOffset, uint64(header.EvlrCount)*EvlrHeaderSize, src.Size()); err != nil {
			return nil, errors.Wrapf(err, "EVLR count %d", header.EvlrCount)
		}
	}
	vlrs := make([]VlrHeader, 0, uint64(header.VlrCount)+uint64(header.EvlrCount))
	for i := uint32(0); i < header.VlrCount; i++ {
		data, err := src.Fetch(ctx, offset, VlrHeaderSize)
		if err != nil {
			return nil, errors.Wrapf(err, "reading VLR %d header", i)
		}
		vlr, err := ParseVlrHeader(data, offset)
		if err != nil {
			return nil, err
		}
		if err := source.CheckRange(vlr.DataOffset, vlr.DataLength, src.Size()); err != nil {
			return nil, errors.Wrapf(err, "VLR %s/%d", vlr.UserID, vlr.RecordID)
		}
		vlrs = append(vlrs, vlr)
		offset = vlr.DataOffset + vlr.DataLength
	}

	offset = header.EvlrOffset
	for i := uint32(0); i < header.EvlrCount; i++ {
		data, err := src.Fetch(ctx, offset, EvlrHeaderSize)
		if err != nil {
			return nil, errors.Wrapf(err, "reading EVLR %d header", i)
		}
		vlr, err := ParseEvlrHeader(data, offset)
		if err != nil {
			return nil, err
		}
		if err := source.CheckRange(vlr.DataOffset, vlr.DataLength, src.Size()); err != nil {
			return nil, errors.Wrapf(err, "EVLR %s/%d", vlr.UserID, vlr.RecordID)
		}
		vlrs = append(vlrs, vlr)
		offset = vlr.DataOffset + vlr.DataLength
	}
	return vlrs, nil
}

// FindVlr returns the first record with the given user and record id.
func FindVlr(vlrs []VlrHeader, userID string, recordID uint16) (VlrHeader, bool) {
	for _, vlr := range vlrs {
		if vlr.Is(userID, recordID) {
			return vlr, true
		}
	}
	return VlrHeader{}, false
}

func fetchPayload(ctx context.Context, src source.Fetcher, vlr VlrHeader) ([]byte, error) {
	if vlr.DataLength > uint64(^uint32(0)) {
		return nil, errors.Errorf("record %s/%d is too large (%d bytes)", vlr.UserID, vlr.RecordID, vlr.DataLength)
	}
	data, err := src.Fetch(ctx, vlr.DataOffset, uint32(vlr.DataLength))
	if err != nil {
		return nil, errors.Wrapf(err, "reading record %s/%d", vlr.UserID, vlr.RecordID)
	}
	return data, nil
}
