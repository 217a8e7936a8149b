package cmd

import (
	"github.com/anupcshan/hexbin/intelhex"
	"github.com/spf13/cobra"
)

// conversionConfig holds the flags shared by every command that assembles
// images.
type conversionConfig struct {
	typePolicy   intelhex.TypePolicy
	compact      bool
	maxImageSize uint64
}

func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().String("type-policy", intelhex.TypePolicyStrict.String(), "Record type check at parse time (strict or legacy)")
	cmd.Flags().Bool("compact", false, "Start the image at the lowest data address instead of 0")
	cmd.Flags().Uint64("max-size", intelhex.DefaultMaxImageSize, "Largest image to allocate in bytes (0 for no limit)")
}

func conversionConfigFromFlags(cmd *cobra.Command) (conversionConfig, error) {
	policyStr, _ := cmd.Flags().GetString("type-policy")
	compact, _ := cmd.Flags().GetBool("compact")
	maxSize, _ := cmd.Flags().GetUint64("max-size")

	policy, err := intelhex.ParseTypePolicy(policyStr)
	if err != nil {
		return conversionConfig{}, err
	}

	return conversionConfig{
		typePolicy:   policy,
		compact:      compact,
		maxImageSize: maxSize,
	}, nil
}

func (c conversionConfig) options() []intelhex.Option {
	opts := []intelhex.Option{
		intelhex.WithTypePolicy(c.typePolicy),
		intelhex.WithMaxImageSize(c.maxImageSize),
	}
	if c.compact {
		opts = append(opts, intelhex.WithCompactOutput())
	}
	return opts
}
