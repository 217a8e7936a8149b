package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/anupcshan/hexbin/hexfile"
	"github.com/anupcshan/hexbin/intelhex"
	"github.com/anupcshan/hexbin/manifest"
	"github.com/anupcshan/hexbin/output"
	"github.com/pkg/errors"
)

func main() {
	log.SetFlags(log.Lmicroseconds | log.Lshortfile)

	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("hex2bin", flag.ContinueOnError)
	in := fs.String("in", "", "Input hex file")
	out := fs.String("out", "", "Output file (stdout if unset)")
	format := fs.String("format", "decimal", "Output format (raw, decimal or hex)")
	records := fs.Bool("records", false, "Write a JSON records manifest next to the output file")
	compact := fs.Bool("compact", false, "Start the image at the lowest data address")
	typePolicy := fs.String("type-policy", intelhex.TypePolicyStrict.String(), "Record type check at parse time (strict or legacy)")
	maxSize := fs.Uint64("max-size", intelhex.DefaultMaxImageSize, "Largest image to allocate in bytes (0 for no limit)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	outFormat, err := output.ParseFormat(*format)
	if err != nil {
		return err
	}

	policy, err := intelhex.ParseTypePolicy(*typePolicy)
	if err != nil {
		return err
	}

	if *records && *out == "" {
		return errors.New("-records needs -out")
	}

	text, err := hexfile.Load(*in)
	if err != nil {
		return err
	}

	opts := []intelhex.Option{
		intelhex.WithTypePolicy(policy),
		intelhex.WithMaxImageSize(*maxSize),
	}
	if *compact {
		opts = append(opts, intelhex.WithCompactOutput())
	}

	img, err := intelhex.AssembleImage(text, opts...)
	if err != nil {
		return errors.Wrap(err, *in)
	}

	if *out == "" {
		return output.Write(stdout, img.Bytes, outFormat)
	}

	if err := writeImage(*out, img.Bytes, outFormat); err != nil {
		return err
	}

	if *records {
		m, err := manifest.New(*in, img)
		if err != nil {
			return err
		}
		if _, err := m.WriteFile(*out, manifest.JSON); err != nil {
			return errors.Wrapf(err, "writing manifest for %s", *out)
		}
	}
	return nil
}

// writeImage removes a partially written output rather than leaving it behind.
func writeImage(path string, image []byte, format output.Format) error {
	outF, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if err := output.Write(outF, image, format); err != nil {
		_ = outF.Close()
		_ = os.Remove(path)
		return errors.Wrapf(err, "writing %s", path)
	}

	if err := outF.Close(); err != nil {
		_ = os.Remove(path)
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
