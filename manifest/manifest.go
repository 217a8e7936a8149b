// Package manifest describes a conversion: where every record landed and
// what the resulting image looks like. It is written next to the image as a
// sidecar file.
package manifest

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/anupcshan/hexbin/intelhex"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Format string

const (
	JSON Format = "json"
	CBOR Format = "cbor"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case JSON, CBOR:
		return f, nil
	case "":
		return JSON, nil
	default:
		return "", errors.Errorf("unknown manifest format %q (want json or cbor)", s)
	}
}

// Extension is appended to the image path to name the sidecar.
func (f Format) Extension() string {
	if f == CBOR {
		return ".records.cbor"
	}
	return ".records"
}

type Entry struct {
	Line     int    `json:"line" cbor:"1,keyasint"`
	Type     string `json:"type" cbor:"2,keyasint"`
	Address  uint16 `json:"address" cbor:"3,keyasint"`
	Absolute uint64 `json:"absolute" cbor:"4,keyasint"`
	Length   uint8  `json:"length" cbor:"5,keyasint"`
}

type Manifest struct {
	ID        string         `json:"id" cbor:"1,keyasint"`
	Source    string         `json:"source" cbor:"2,keyasint"`
	CreatedAt time.Time      `json:"created_at" cbor:"3,keyasint"`
	Size      uint64         `json:"size" cbor:"4,keyasint"`
	Origin    uint64         `json:"origin" cbor:"5,keyasint"`
	DataBytes uint64         `json:"data_bytes" cbor:"6,keyasint"`
	Covered   uint64         `json:"covered" cbor:"7,keyasint"`
	Overlaps  uint64         `json:"overlaps" cbor:"8,keyasint"`
	Sum       uint16         `json:"sum" cbor:"9,keyasint"`
	Counts    map[string]int `json:"counts" cbor:"10,keyasint"`
	Records   []Entry        `json:"records" cbor:"11,keyasint"`
}

// New builds the manifest of an assembled image. source is informational.
func New(source string, img *intelhex.Image) (*Manifest, error) {
	addrs, err := intelhex.AbsoluteAddresses(img.Records)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Size:      uint64(len(img.Bytes)),
		Origin:    img.Origin,
		DataBytes: img.Stats.DataBytes,
		Covered:   img.Stats.Covered,
		Overlaps:  img.Stats.Overlaps,
		Sum:       img.Stats.Sum,
		Counts:    make(map[string]int),
	}

	for t, n := range img.Stats.Counts() {
		m.Counts[t.String()] = n
	}

	for i, r := range img.Records {
		m.Records = append(m.Records, Entry{
			Line:     r.Line,
			Type:     r.Type.String(),
			Address:  r.Address,
			Absolute: addrs[i],
			Length:   r.Length,
		})
	}

	return m, nil
}

func (m *Manifest) Encode(w io.Writer, f Format) error {
	switch f {
	case JSON, "":
		enc := json.NewEncoder(w)
		return errors.Wrap(enc.Encode(m), "encoding manifest")
	case CBOR:
		return errors.Wrap(cbor.NewEncoder(w).Encode(m), "encoding manifest")
	default:
		return errors.Errorf("unknown manifest format %q", f)
	}
}

func Decode(r io.Reader, f Format) (*Manifest, error) {
	var m Manifest
	switch f {
	case JSON, "":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decoding manifest")
		}
	case CBOR:
		if err := cbor.NewDecoder(r).Decode(&m); err != nil {
			return nil, errors.Wrap(err, "decoding manifest")
		}
	default:
		return nil, errors.Errorf("unknown manifest format %q", f)
	}
	return &m, nil
}

// WriteFile writes the manifest to imagePath plus the format's extension and
// returns the sidecar path.
func (m *Manifest) WriteFile(imagePath string, f Format) (string, error) {
	path := imagePath + f.Extension()
	out, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}

	if err := m.Encode(out, f); err != nil {
		_ = out.Close()
		return "", err
	}
	return path, out.Close()
}
