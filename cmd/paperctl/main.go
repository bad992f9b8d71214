// Command paperctl drives the paperscan engine without a window: headless
// page rendering, cropping, OCR language and scan device listing.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"paperscan/internal/imgdecode"
	"paperscan/internal/version"
)

var (
	verbose     bool
	decoderName string

	rootCmd = &cobra.Command{
		Use:   "paperctl",
		Short: "Headless tools for paperscan documents and scanners",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			_, err := imgdecode.ForName(decoderName)
			return err
		},
		SilenceUsage: true,
	}
)

func init() {
	logrus.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&decoderName, "decoder", "std", "Image decoder: std or opencv")

	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(cropCmd())
	rootCmd.AddCommand(langsCmd())
	rootCmd.AddCommand(devicesCmd())

	rootCmd.Version = version.Version
	rootCmd.Annotations = map[string]string{"commit": version.GitCommit, "date": version.BuildTime}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

func decoder() imgdecode.Decoder {
	dec, err := imgdecode.ForName(decoderName)
	if err != nil {
		return imgdecode.StdDecoder{}
	}
	return dec
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
