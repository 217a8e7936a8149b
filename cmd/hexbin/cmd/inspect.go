package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/anupcshan/hexbin/hexfile"
	"github.com/anupcshan/hexbin/intelhex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const maxReportedGaps = 8

var inspectCmd = &cobra.Command{
	Use:   "inspect file.hex [file.hex...]",
	Short: "Report the layout of Intel HEX files without writing images",
	Long: `Parse and assemble Intel HEX files and print what the resulting image
would look like: its size, record counts per type, how many bytes are
covered by data, overlapping writes, unfilled gaps and the 16-bit additive
sum of the data.

Example:
  hexbin inspect firmware.hex`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	addConversionFlags(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	conversion, err := conversionConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	for _, in := range args {
		text, err := hexfile.Load(in)
		if err != nil {
			return err
		}

		img, err := intelhex.AssembleImage(text, conversion.options()...)
		if err != nil {
			return errors.Wrap(err, in)
		}

		if err := writeReport(cmd.OutOrStdout(), in, img); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(w io.Writer, name string, img *intelhex.Image) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "File:\t%s\n", name)
	fmt.Fprintf(tw, "Image size:\t%d (0x%X)\n", len(img.Bytes), len(img.Bytes))
	fmt.Fprintf(tw, "Origin:\t0x%08X\n", img.Origin)
	fmt.Fprintf(tw, "Data bytes:\t%d\n", img.Stats.DataBytes)
	fmt.Fprintf(tw, "Covered bytes:\t%d\n", img.Stats.Covered)
	fmt.Fprintf(tw, "Overlapping bytes:\t%d\n", img.Stats.Overlaps)
	fmt.Fprintf(tw, "Data sum:\t%04x\n", img.Stats.Sum)

	counts := img.Stats.Counts()
	types := make([]intelhex.RecordType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Fprintf(tw, "Records %s:\t%d\n", t, counts[t])
	}

	gaps := img.Gaps()
	fmt.Fprintf(tw, "Gaps:\t%d\n", len(gaps))
	for i, gap := range gaps {
		if i == maxReportedGaps {
			fmt.Fprintf(tw, "\t... %d more\n", len(gaps)-maxReportedGaps)
			break
		}
		fmt.Fprintf(tw, "\t[0x%08X, 0x%08X) %d bytes\n", img.Origin+uint64(gap[0]), img.Origin+uint64(gap[1]), gap[1]-gap[0])
	}

	fmt.Fprintln(tw)
	return tw.Flush()
}
