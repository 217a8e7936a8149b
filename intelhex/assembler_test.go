package intelhex

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/anupcshan/hexbin/membuf"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexText(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestAssembleEndOfFileOnly(t *testing.T) {
	image, err := Assemble(":00000001FF")
	require.NoError(t, err)
	assert.Empty(t, image)
}

func TestAssembleEmptyInput(t *testing.T) {
	image, err := Assemble("\n\n")
	require.NoError(t, err)
	assert.Empty(t, image)
}

func TestAssembleSingleDataRecord(t *testing.T) {
	image, err := Assemble(hexText(":020000000102FB", ":00000001FF"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, image)
}

func TestAssembleExtendedLinearAddress(t *testing.T) {
	image, err := Assemble(hexText(
		":020000040001F9",
		":01000000AB54",
		":00000001FF",
	))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(image), 0x10001)
	assert.Equal(t, byte(0xAB), image[0x10000])
	assert.Equal(t, make([]byte, 0x10000), image[:0x10000])
}

func TestAssembleExtendedSegmentAddress(t *testing.T) {
	image, err := Assemble(hexText(
		":020000021000EC",
		":01000000AB54",
		":00000001FF",
	))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(image), 0x10001)
	assert.Equal(t, byte(0xAB), image[0x10000])
}

func TestAssembleStartSegmentAddressMovesBase(t *testing.T) {
	// A start segment address record of 0x0001:0x0000 moves the base to 0x10.
	image, err := Assemble(hexText(
		":0400000300010000F8",
		":01000000AB54",
		":00000001FF",
	))
	require.NoError(t, err)
	require.Len(t, image, 0x14)
	assert.Equal(t, byte(0xAB), image[0x10])
}

func TestAssembleStopsAtEndOfFile(t *testing.T) {
	image, err := Assemble(hexText(
		":020000000102FB",
		":00000001FF",
		":01001000559A",
		":0400000500000000F7",
	))
	require.NoError(t, err)
	// Records after the end of file still size the image but are never written.
	require.Len(t, image, 0x11)
	assert.Equal(t, []byte{0x01, 0x02}, image[:2])
	assert.Equal(t, byte(0), image[0x10])
}

func TestAssembleGapsAreZero(t *testing.T) {
	image, err := Assemble(hexText(
		":01001000559A",
		":020000000102FB",
		":00000001FF",
	))
	require.NoError(t, err)
	want := make([]byte, 0x11)
	want[0], want[1], want[0x10] = 0x01, 0x02, 0x55
	assert.Equal(t, want, image)
}

func TestAssembleStartLinearAddressUnsupported(t *testing.T) {
	image, err := Assemble(hexText(
		":020000000102FB",
		":0400000500000000F7",
		":00000001FF",
	))
	assert.Nil(t, image)
	assert.True(t, errors.Is(err, ErrUnsupportedRecordType), "%v", err)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
}

func TestAssembleLegacyTypePolicy(t *testing.T) {
	text := hexText(":020000000102FB", ":00000006FA", ":00000001FF")

	_, err := Assemble(text)
	assert.True(t, errors.Is(err, ErrUnsupportedRecordType), "%v", err)

	_, err = Assemble(text, WithTypePolicy(TypePolicyLegacy))
	assert.True(t, errors.Is(err, ErrUnsupportedRecordType), "%v", err)

	image, err := Assemble(hexText(":020000000102FB", ":00000001FF", ":00000006FA"), WithTypePolicy(TypePolicyLegacy))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, image)
}

func TestAssembleShortExtensionRecord(t *testing.T) {
	_, err := Assemble(hexText(":020000000102FB", ":0100000401FA", ":00000001FF"))
	assert.True(t, errors.Is(err, ErrMalformedLine), "%v", err)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
}

func TestAssembleTruncatedLine(t *testing.T) {
	_, err := Assemble(hexText(":0200000001FB", ":00000001FF"))
	assert.True(t, errors.Is(err, ErrMalformedLine), "%v", err)
}

func TestAssembleCompactOutput(t *testing.T) {
	img, err := AssembleImage(hexText(
		":020000040001F9",
		":01000000AB54",
		":00000001FF",
	), WithCompactOutput())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10000), img.Origin)
	// The extension record itself spans base+0..base+2.
	assert.Equal(t, []byte{0xAB, 0x00}, img.Bytes)
}

func TestAssembleMaxImageSize(t *testing.T) {
	text := hexText(":020000040001F9", ":01000000AB54", ":00000001FF")

	_, err := Assemble(text, WithMaxImageSize(0x100))
	assert.True(t, errors.Is(err, ErrImageTooLarge), "%v", err)

	_, err = Assemble(text, WithMaxImageSize(0x100), WithCompactOutput())
	assert.NoError(t, err)
}

func TestAssembleImageStats(t *testing.T) {
	img, err := AssembleImage(hexText(
		":020000000102FB",
		":020000000102FB",
		":01001000559A",
		":00000001FF",
	))
	require.NoError(t, err)

	assert.Equal(t, map[RecordType]int{Data: 3, EndOfFile: 1}, img.Stats.Counts())
	assert.Equal(t, uint64(5), img.Stats.DataBytes)
	assert.Equal(t, uint64(3), img.Stats.Covered)
	assert.Equal(t, uint64(2), img.Stats.Overlaps)
	assert.Equal(t, uint16(0x01+0x02+0x01+0x02+0x55), img.Stats.Sum)
	assert.Equal(t, [][2]int{{2, 0x10}}, img.Gaps())
	assert.Len(t, img.Records, 4)
}

func TestMeasureExtent(t *testing.T) {
	records, err := ParseRecords(hexText(
		":020000040001F9",
		":01001000559A",
		":020000040000FA",
		":020000000102FB",
		":00000001FF",
	))
	require.NoError(t, err)

	ext, err := MeasureExtent(records)
	require.NoError(t, err)
	assert.Equal(t, Extent{Origin: 0, End: 0x10011}, ext)

	size, err := ImageSize(records)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10011), size)

	addrs, err := AbsoluteAddresses(records)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x10000, 0x10010, 0, 0, 0}, addrs)
}

func TestAssembleUndersizedBufferOverflows(t *testing.T) {
	records, err := ParseRecords(hexText(":020000000102FB", ":00000001FF"))
	require.NoError(t, err)

	_, _, err = assemble(records, membuf.New(1), 0)
	assert.True(t, errors.Is(err, ErrBufferOverflow), "%v", err)
}

func randomRecord(rng *rand.Rand) Record {
	switch rng.Intn(8) {
	case 0:
		return Record{Type: ExtendedLinearAddress, Length: 2, Data: []byte{0, byte(rng.Intn(4))}}
	case 1:
		v := rng.Intn(0x1000)
		return Record{Type: ExtendedSegmentAddress, Length: 2, Data: []byte{byte(v >> 8), byte(v)}}
	case 2:
		v := rng.Intn(0x1000)
		return Record{Type: StartSegmentAddress, Length: 4, Data: []byte{byte(v >> 8), byte(v), 0, 0}}
	default:
		data := make([]byte, rng.Intn(33))
		rng.Read(data)
		return Record{
			Type:    Data,
			Address: uint16(rng.Intn(0x10000)),
			Length:  uint8(len(data)),
			Data:    data,
		}
	}
}

func TestAssembleRandomSequencesNeverOverflow(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for iter := 0; iter < 200; iter++ {
		var lines []string
		expected := make(map[uint64]byte)
		var base uint64

		for n := rng.Intn(40); n > 0; n-- {
			r := randomRecord(rng)
			lines = append(lines, r.String())

			switch r.Type {
			case ExtendedLinearAddress:
				base = (uint64(r.Data[0])<<8 | uint64(r.Data[1])) << 16
			case ExtendedSegmentAddress, StartSegmentAddress:
				base = (uint64(r.Data[0])<<8 | uint64(r.Data[1])) << 4
			case Data:
				for i, b := range r.Data {
					expected[base+uint64(r.Address)+uint64(i)] = b
				}
			}
		}
		lines = append(lines, ":00000001FF")

		image, err := Assemble(hexText(lines...))
		require.NoError(t, err, "iteration %d", iter)

		want := make([]byte, len(image))
		for addr, b := range expected {
			require.Less(t, addr, uint64(len(image)), "iteration %d", iter)
			want[addr] = b
		}
		require.Equal(t, want, image, "iteration %d", iter)
	}
}

func TestImageGapsWithoutBuffer(t *testing.T) {
	assert.Nil(t, (&Image{}).Gaps())
}

func TestAssembleMaxImageSizeExtendedAddress(t *testing.T) {
	text := hexText(
		":02000004FFFFFC",
		":01FFFF00AB56",
		":00000001FF",
	)

	records, err := ParseRecords(text)
	require.NoError(t, err)
	size, err := ImageSize(records)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x100000000), size)

	_, err = Assemble(text, WithMaxImageSize(256<<20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImageTooLarge), "%v", err)
	assert.Contains(t, err.Error(), "image needs 4294967296 bytes, limit is 268435456")
}
