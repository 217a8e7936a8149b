package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hexbin",
	Short: "Convert Intel HEX firmware files into flat binary images",
	Long: `hexbin reads firmware files in Intel HEX format and assembles them into a
single zero-filled binary image, placing every data record at its segment
base plus load offset.

Example:
  hexbin convert -i firmware.hex -o firmware.bin`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}
