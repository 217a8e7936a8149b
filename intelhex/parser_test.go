package intelhex

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: nil},
		{name: "lf", text: ":a\n:b\n", want: []string{":a", ":b"}},
		{name: "crlf", text: ":a\r\n:b\r\n", want: []string{":a", ":b"}},
		{name: "cr", text: ":a\r:b", want: []string{":a", ":b"}},
		{name: "blank lines", text: "\n\n:a\n\n\n:b\n\n", want: []string{":a", ":b"}},
		{name: "trailing blanks", text: ":a  \t\n:b", want: []string{":a", ":b"}},
		{name: "blank only line", text: ":a\n \t\n:b", want: []string{":a", " \t", ":b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.text))
		})
	}
}

func TestParseRecordsLineNumbers(t *testing.T) {
	records, err := ParseRecords(":020000000102FB\r\n\r\n:00000001FF\r\n")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, 3, records[1].Line)
}

func TestParseRecordsReportsOffendingLine(t *testing.T) {
	text := ":020000000102FB\n\n:020000000102FC\n:00000001FF\n"

	records, err := ParseRecords(text)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 3, lineErr.Line)
	assert.Equal(t, ":020000000102FC", lineErr.Text)
	assert.Contains(t, err.Error(), ":020000000102FC")
	assert.Contains(t, err.Error(), "computed FB, line declares FC")
}

func TestParseRecordsRejectsBlankOnlyLine(t *testing.T) {
	_, err := ParseRecords(":020000000102FB\n   \n:00000001FF\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedLine), "%v", err)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
}
