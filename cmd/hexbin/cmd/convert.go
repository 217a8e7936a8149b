package cmd

import (
	"context"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/anupcshan/hexbin/hexfile"
	"github.com/anupcshan/hexbin/intelhex"
	"github.com/anupcshan/hexbin/manifest"
	"github.com/anupcshan/hexbin/output"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert Intel HEX files into binary images",
	Long: `Convert one or more Intel HEX files into flat binary images.

With a single input the output path may be given with -o ("-" writes to
stdout). With several inputs each image is written next to its source,
named after it with the output format's extension.

Example:
  hexbin convert -i firmware.hex -o firmware.bin
  hexbin convert -i a.hex -i b.hex --records cbor -j 4`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringSliceP("in", "i", nil, "Input hex file(s) (required)")
	convertCmd.Flags().StringP("out", "o", "", "Output file for a single input, - for stdout")
	convertCmd.Flags().StringP("format", "f", string(output.Raw), "Output format (raw, decimal or hex)")
	convertCmd.Flags().String("records", "", "Also write a records manifest next to each image (json or cbor)")
	convertCmd.Flags().String("metrics-file", "", "Write conversion metrics to this file in Prometheus text format")
	convertCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Number of files converted in parallel")
	addConversionFlags(convertCmd)
	//nolint:errcheck
	convertCmd.MarkFlagRequired("in")
}

type convertJob struct {
	in, out        string
	format         output.Format
	manifestFormat manifest.Format
	writeManifest  bool
	conversion     conversionConfig
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputs, _ := cmd.Flags().GetStringSlice("in")
	outPath, _ := cmd.Flags().GetString("out")
	formatStr, _ := cmd.Flags().GetString("format")
	recordsStr, _ := cmd.Flags().GetString("records")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	jobs, _ := cmd.Flags().GetInt("jobs")

	log.SetFlags(log.Lmicroseconds | log.Lshortfile)

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	manifestFormat, err := manifest.ParseFormat(recordsStr)
	if err != nil {
		return err
	}

	conversion, err := conversionConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	if err := checkOutputFlags(inputs, outPath, recordsStr != ""); err != nil {
		return err
	}

	for _, in := range inputs {
		if err := hexfile.Validate(in); err != nil {
			return err
		}
	}

	if jobs < 1 {
		jobs = 1
	}

	rec := NewRecorder()

	eg, egCtx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(jobs)

	for _, in := range inputs {
		job := convertJob{
			in:             in,
			out:            outPath,
			format:         format,
			manifestFormat: manifestFormat,
			writeManifest:  recordsStr != "",
			conversion:     conversion,
		}
		if job.out == "" {
			job.out = hexfile.OutputPath(in, format.Extension())
		}

		eg.Go(func() error {
			return convertFile(egCtx, job, rec, cmd.OutOrStdout())
		})
	}

	convErr := eg.Wait()

	if metricsFile != "" {
		if err := rec.WriteTextfile(metricsFile); err != nil {
			log.Printf("Unable to write metrics to %s: %v", metricsFile, err)
		}
	}

	return convErr
}

func checkOutputFlags(inputs []string, outPath string, writeManifest bool) error {
	if len(inputs) > 1 && outPath != "" {
		return errors.New("-o can only be used with a single input")
	}
	if outPath == "-" && writeManifest {
		return errors.New("--records cannot be used when writing the image to stdout")
	}
	return nil
}

func convertFile(ctx context.Context, job convertJob, rec *Recorder, stdout io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := hexfile.Load(job.in)
	if err != nil {
		rec.Observe(nil, 0, err)
		return err
	}

	start := time.Now()
	img, err := intelhex.AssembleImage(text, job.conversion.options()...)
	rec.Observe(img, time.Since(start), err)
	if err != nil {
		return errors.Wrap(err, job.in)
	}

	if job.out == "-" {
		return output.Write(stdout, img.Bytes, job.format)
	}

	if err := writeImage(job.out, img.Bytes, job.format); err != nil {
		return err
	}

	if job.writeManifest {
		m, err := manifest.New(job.in, img)
		if err != nil {
			return err
		}
		path, err := m.WriteFile(job.out, job.manifestFormat)
		if err != nil {
			return errors.Wrapf(err, "writing manifest for %s", job.out)
		}
		log.Printf("Wrote records manifest %s", path)
	}

	log.Printf("Converted %s -> %s (%d bytes, %d records)", job.in, job.out, len(img.Bytes), len(img.Records))
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
