package main

import (
	"flag"
	"log"
	"os"

	"github.com/anupcshan/hexbin/intelhex"
	"github.com/pkg/errors"
)

// lineSum adds up every hex digit pair of the file, start codes excluded.
func lineSum(records []intelhex.Record) uint16 {
	var sum uint16
	for _, r := range records {
		sum += uint16(r.Length) + uint16(r.Address>>8) + uint16(r.Address&0xFF) + uint16(r.Type)
		for _, b := range r.Data {
			sum += uint16(b)
		}
		sum += uint16(r.Checksum())
	}
	return sum
}

type sums struct {
	data, full uint16
}

func checksums(path string, maxSize uint64) (sums, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return sums{}, err
	}

	img, err := intelhex.AssembleImage(string(b),
		intelhex.WithTypePolicy(intelhex.TypePolicyLegacy),
		intelhex.WithMaxImageSize(maxSize),
	)
	if err != nil {
		return sums{}, errors.Wrap(err, path)
	}

	return sums{data: img.Stats.Sum, full: lineSum(img.Records)}, nil
}

func main() {
	maxSize := flag.Uint64("max-size", intelhex.DefaultMaxImageSize, "Largest image to allocate in bytes (0 for no limit)")
	flag.Parse()

	log.SetFlags(log.Lmicroseconds | log.Lshortfile)

	s, err := checksums(flag.Arg(0), *maxSize)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Data checksum: %04x", s.data)
	log.Printf("Full checksum: %04x", s.full)
}
