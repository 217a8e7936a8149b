package intelhex

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type RecordType uint8

const (
	Data                   RecordType = 0x00
	EndOfFile              RecordType = 0x01
	ExtendedSegmentAddress RecordType = 0x02
	StartSegmentAddress    RecordType = 0x03
	ExtendedLinearAddress  RecordType = 0x04
	StartLinearAddress     RecordType = 0x05
)

var recordTypeNames = map[RecordType]string{
	Data:                   "Data",
	EndOfFile:              "EndOfFile",
	ExtendedSegmentAddress: "ExtendedSegmentAddress",
	StartSegmentAddress:    "StartSegmentAddress",
	ExtendedLinearAddress:  "ExtendedLinearAddress",
	StartLinearAddress:     "StartLinearAddress",
}

// Valid reports whether t is one of the six defined record types.
func (t RecordType) Valid() bool {
	_, ok := recordTypeNames[t]
	return ok
}

func (t RecordType) String() string {
	if name, ok := recordTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RecordType(0x%02X)", uint8(t))
}

// Record is one decoded line. All record kinds share the same wire shape,
// so the kind is carried as a tag rather than a distinct type.
type Record struct {
	Type    RecordType
	Address uint16
	Length  uint8
	Data    []byte

	// Line is the 1-based source line number, zero when unknown.
	Line int
}

// TypePolicy decides which record type values are accepted at parse time.
type TypePolicy int

const (
	// TypePolicyStrict accepts only the six defined record types.
	TypePolicyStrict TypePolicy = iota
	// TypePolicyLegacy accepts any type value at parse time, matching the
	// historical check which could never fail. Unknown types are still
	// rejected during assembly.
	TypePolicyLegacy
)

func (p TypePolicy) String() string {
	switch p {
	case TypePolicyStrict:
		return "strict"
	case TypePolicyLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("TypePolicy(%d)", int(p))
	}
}

func ParseTypePolicy(s string) (TypePolicy, error) {
	switch strings.ToLower(s) {
	case "", "strict":
		return TypePolicyStrict, nil
	case "legacy":
		return TypePolicyLegacy, nil
	default:
		return 0, errors.Errorf("unknown type policy %q (want strict or legacy)", s)
	}
}

func (p TypePolicy) accepts(t RecordType) bool {
	if p == TypePolicyLegacy {
		return true
	}
	return t.Valid()
}

// ParseRecord decodes a single record line. The line must not contain a
// line terminator.
func ParseRecord(line string, opts ...Option) (Record, error) {
	o := newOptions(opts)

	if len(line) < MinLineLen {
		return Record{}, errors.Wrapf(ErrMalformedLine, "line has %d characters, need at least %d", len(line), MinLineLen)
	}

	if line[0] != startCode {
		return Record{}, errors.Wrapf(ErrMalformedLine, "unexpected start code %q", line[0])
	}

	length, err := decodeByte(line, byteCountOffset)
	if err != nil {
		return Record{}, err
	}

	if want := lineLen(length); len(line) != want {
		return Record{}, errors.Wrapf(ErrMalformedLine, "byte count %d needs %d characters, line has %d", length, want, len(line))
	}

	address, err := decodeWord(line, addressOffset)
	if err != nil {
		return Record{}, err
	}

	recType, err := decodeByte(line, recordTypeOffset)
	if err != nil {
		return Record{}, err
	}

	data, err := hex.DecodeString(line[dataOffset:checksumOffset(length)])
	if err != nil {
		return Record{}, errors.Wrapf(ErrMalformedLine, "data field: %v", err)
	}

	declared, err := decodeByte(line, checksumOffset(length))
	if err != nil {
		return Record{}, err
	}

	r := Record{
		Type:    RecordType(recType),
		Address: address,
		Length:  length,
		Data:    data,
	}

	if computed := r.Checksum(); computed != declared {
		return Record{}, errors.Wrapf(ErrChecksumMismatch, "computed %02X, line declares %02X", computed, declared)
	}

	if !o.typePolicy.accepts(r.Type) {
		return Record{}, errors.Wrapf(ErrUnsupportedRecordType, "%s", r.Type)
	}

	return r, nil
}

func decodeByte(line string, offset int) (uint8, error) {
	var b [1]byte
	if _, err := hex.Decode(b[:], []byte(line[offset:offset+2])); err != nil {
		return 0, errors.Wrapf(ErrMalformedLine, "at column %d: %v", offset+1, err)
	}
	return b[0], nil
}

func decodeWord(line string, offset int) (uint16, error) {
	var b [2]byte
	if _, err := hex.Decode(b[:], []byte(line[offset:offset+4])); err != nil {
		return 0, errors.Wrapf(ErrMalformedLine, "at column %d: %v", offset+1, err)
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// extendedAddress returns the segment base selected by an address extension
// record.
func (r Record) extendedAddress() (uint64, error) {
	if len(r.Data) < 2 {
		return 0, errors.Wrapf(ErrMalformedLine, "%s record needs 2 data bytes, has %d", r.Type, len(r.Data))
	}

	value := uint64(r.Data[0])<<8 | uint64(r.Data[1])
	if r.Type == ExtendedLinearAddress {
		return value << 16, nil
	}
	return value << 4, nil
}
