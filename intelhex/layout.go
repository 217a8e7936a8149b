package intelhex

// Character layout of a record line (https://en.wikipedia.org/wiki/Intel_HEX#Format):
//
//	:LLAAAATT[DD...]CC
const (
	startCode = ':'

	startCodeLen  = 1
	byteCountLen  = 2
	addressLen    = 4
	recordTypeLen = 2
	checksumLen   = 2

	byteCountOffset  = startCodeLen
	addressOffset    = byteCountOffset + byteCountLen
	recordTypeOffset = addressOffset + addressLen
	dataOffset       = recordTypeOffset + recordTypeLen

	// MinLineLen is the length of a record line carrying no data bytes.
	MinLineLen = dataOffset + checksumLen
)

// lineLen returns the exact line length for a record declaring n data bytes.
func lineLen(n uint8) int {
	return MinLineLen + 2*int(n)
}

func checksumOffset(n uint8) int {
	return dataOffset + 2*int(n)
}
