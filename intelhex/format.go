package intelhex

import (
	"encoding/hex"
	"strings"
)

// Checksum returns the two's complement of the low byte of the sum of the
// byte count, address, type and data bytes.
func (r Record) Checksum() uint8 {
	recordSum := r.Length + uint8(r.Address>>8) + uint8(r.Address) + uint8(r.Type)
	for _, b := range r.Data {
		recordSum += b
	}
	return ^recordSum + 1 // 2's complement
}

// String renders the record back into its line form, upper-case.
func (r Record) String() string {
	header := []byte{r.Length, uint8(r.Address >> 8), uint8(r.Address), uint8(r.Type)}

	var sb strings.Builder
	sb.Grow(lineLen(r.Length))
	sb.WriteByte(startCode)
	sb.WriteString(hex.EncodeToString(header))
	sb.WriteString(hex.EncodeToString(r.Data))
	sb.WriteString(hex.EncodeToString([]byte{r.Checksum()}))

	return strings.ToUpper(sb.String())
}

func (r Record) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
