package intelhex

import (
	"math"

	"github.com/anupcshan/hexbin/membuf"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Extent is the address range spanned by a record sequence.
type Extent struct {
	// Origin is the lowest absolute address of any data record, zero when
	// there are none.
	Origin uint64
	// End is the maximum of segment base + address + byte count over all
	// records.
	End uint64
}

// Image is the result of assembling a file.
type Image struct {
	Bytes   []byte
	Origin  uint64
	Records []Record
	Stats   Stats

	buf *membuf.Buffer
}

type Stats struct {
	RecordCounts map[RecordType]int
	DataBytes    uint64
	Covered      uint64
	Overlaps     uint64
	Sum          uint16
}

// segmentTracker holds the rolling base address shared by both passes.
type segmentTracker struct {
	base uint64
}

// update moves the base when r is an address extension record.
func (s *segmentTracker) update(r Record) error {
	switch r.Type {
	case ExtendedSegmentAddress, StartSegmentAddress, ExtendedLinearAddress:
		base, err := r.extendedAddress()
		if err != nil {
			return err
		}
		s.base = base
	}
	return nil
}

func (s *segmentTracker) absolute(r Record) uint64 {
	return s.base + uint64(r.Address)
}

// MeasureExtent is the sizing pass. It walks every record in order, the ones
// after an end of file record included.
func MeasureExtent(records []Record) (Extent, error) {
	var (
		seg     segmentTracker
		ext     Extent
		haveMin bool
	)

	for _, r := range records {
		if err := seg.update(r); err != nil {
			return Extent{}, lineError(r, err)
		}

		start := seg.absolute(r)
		if candidate := start + uint64(r.Length); candidate > ext.End {
			ext.End = candidate
		}

		if r.Type == Data && (!haveMin || start < ext.Origin) {
			ext.Origin = start
			haveMin = true
		}
	}

	return ext, nil
}

// ImageSize returns the output length needed to hold every record.
func ImageSize(records []Record) (uint64, error) {
	ext, err := MeasureExtent(records)
	if err != nil {
		return 0, err
	}
	return ext.End, nil
}

// Assemble converts the text of an Intel HEX file into a flat binary image.
func Assemble(text string, opts ...Option) ([]byte, error) {
	img, err := AssembleImage(text, opts...)
	if err != nil {
		return nil, err
	}
	return img.Bytes, nil
}

func AssembleImage(text string, opts ...Option) (*Image, error) {
	records, err := ParseRecords(text, opts...)
	if err != nil {
		return nil, err
	}
	return AssembleRecords(records, opts...)
}

// AssembleRecords sizes the image from records, allocates it and writes every
// data record up to the first end of file record.
func AssembleRecords(records []Record, opts ...Option) (*Image, error) {
	o := newOptions(opts)

	ext, err := MeasureExtent(records)
	if err != nil {
		return nil, err
	}

	var origin uint64
	if o.compactOutput {
		origin = ext.Origin
	}

	size := ext.End - origin
	if o.maxImageSize > 0 && size > o.maxImageSize {
		return nil, errors.Wrapf(ErrImageTooLarge, "image needs %d bytes, limit is %d", size, o.maxImageSize)
	}
	if size > math.MaxInt {
		return nil, errors.Wrapf(ErrImageTooLarge, "image needs %d bytes", size)
	}

	buf := membuf.New(int(size))
	counts, dataBytes, err := assemble(records, buf, origin)
	if err != nil {
		return nil, err
	}

	return &Image{
		Bytes:   buf.Bytes(),
		Origin:  origin,
		Records: records,
		Stats: Stats{
			RecordCounts: counts,
			DataBytes:    dataBytes,
			Covered:      buf.Covered(),
			Overlaps:     buf.Overlaps(),
			Sum:          buf.Sum(),
		},
		buf: buf,
	}, nil
}

// Gaps returns the half-open offset ranges of the image that no data record
// wrote, relative to Origin.
func (img *Image) Gaps() [][2]int {
	if img.buf == nil {
		return nil
	}
	return img.buf.Gaps()
}

// assemble is the writing pass. buf must already be sized by MeasureExtent.
func assemble(records []Record, buf *membuf.Buffer, origin uint64) (map[RecordType]int, uint64, error) {
	var (
		seg       segmentTracker
		dataBytes uint64
		counts    = make(map[RecordType]int)
	)

	for _, r := range records {
		counts[r.Type]++

		switch r.Type {
		case Data:
			start := seg.absolute(r)
			if start < origin || start-origin > math.MaxInt64 {
				return nil, 0, lineError(r, errors.Wrapf(ErrBufferOverflow, "address 0x%X below image origin 0x%X", start, origin))
			}
			if _, err := buf.WriteAt(r.Data, int64(start-origin)); err != nil {
				return nil, 0, lineError(r, errors.Wrapf(ErrBufferOverflow, "address 0x%X: %v", start, err))
			}
			dataBytes += uint64(len(r.Data))
		case EndOfFile:
			return counts, dataBytes, nil
		case ExtendedSegmentAddress, StartSegmentAddress, ExtendedLinearAddress:
			if err := seg.update(r); err != nil {
				return nil, 0, lineError(r, err)
			}
		default:
			return nil, 0, lineError(r, errors.Wrapf(ErrUnsupportedRecordType, "%s", r.Type))
		}
	}

	return counts, dataBytes, nil
}

// Counts returns a copy of the per-type record counts.
func (s Stats) Counts() map[RecordType]int {
	return maps.Clone(s.RecordCounts)
}

// AbsoluteAddresses returns, for each record, its segment base plus load
// offset.
func AbsoluteAddresses(records []Record) ([]uint64, error) {
	var seg segmentTracker
	addrs := make([]uint64, len(records))
	for i, r := range records {
		if err := seg.update(r); err != nil {
			return nil, lineError(r, err)
		}
		addrs[i] = seg.absolute(r)
	}
	return addrs, nil
}
