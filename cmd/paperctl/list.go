package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"paperscan/internal/ocr"
	"paperscan/internal/scan"
)

func langsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List the installed OCR languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLangs(cmd.OutOrStdout(), ocr.NewLangFinder(nil))
		},
	}
}

func listLangs(w io.Writer, f *ocr.LangFinder) error {
	langs, err := f.Langs()
	if err != nil {
		return err
	}
	for _, l := range langs {
		if l.Code == "" {
			continue
		}
		fmt.Fprintf(w, "%-8s %s\n", l.Code, l.Name)
	}
	return nil
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices IMAGE...",
		Short: "List the simulated scan devices backed by image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDevices(cmd, scan.NewFileBackend(decoder(), args...))
		},
	}
}

func listDevices(cmd *cobra.Command, b scan.Backend) error {
	w := cmd.OutOrStdout()
	devices, err := b.Devices(cmd.Context())
	if err != nil {
		return err
	}
	for _, dev := range devices {
		res, err := dev.Resolutions(cmd.Context())
		if err != nil {
			return err
		}
		values := res.List()
		fmt.Fprintf(w, "%s\t%s\n", dev.ID(), dev.Name())
		fmt.Fprintf(w, "\tresolutions: %v (calibration %d, recommended %d)\n",
			values, scan.CalibrationResolution(values), scan.RecommendedResolution)
		fmt.Fprintf(w, "\tsources: %v\n\tmodes: %v\n", dev.Sources(), dev.Modes())
	}
	return nil
}
