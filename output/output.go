// Package output writes assembled images in the supported on-disk formats.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Format string

const (
	// Raw writes the image bytes unchanged.
	Raw Format = "raw"
	// Decimal writes one byte per line as a decimal number.
	Decimal Format = "decimal"
	// Hex writes one byte per line as two upper-case hex digits.
	Hex Format = "hex"
)

var Formats = []Format{Raw, Decimal, Hex}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Raw, Decimal, Hex:
		return f, nil
	case "":
		return Raw, nil
	default:
		return "", errors.Errorf("unknown output format %q (want raw, decimal or hex)", s)
	}
}

// Extension is the conventional file suffix for the format.
func (f Format) Extension() string {
	if f == Raw {
		return ".bin"
	}
	return ".txt"
}

func (f Format) ContentType() string {
	if f == Raw {
		return "application/octet-stream"
	}
	return "text/plain; charset=utf-8"
}

func Write(w io.Writer, image []byte, f Format) error {
	if f == Raw || f == "" {
		_, err := w.Write(image)
		return errors.Wrap(err, "writing image")
	}

	bw := bufio.NewWriter(w)
	var line []byte
	for _, b := range image {
		line = line[:0]
		switch f {
		case Decimal:
			line = strconv.AppendUint(line, uint64(b), 10)
		case Hex:
			const digits = "0123456789ABCDEF"
			line = append(line, digits[b>>4], digits[b&0x0F])
		default:
			return errors.Errorf("unknown output format %q", f)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return errors.Wrap(err, "writing image")
		}
	}

	return errors.Wrap(bw.Flush(), "writing image")
}
