// Package main provides the entry point for the Paperscan application.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	paperapp "paperscan/internal/app"
	"paperscan/internal/scan"
	"paperscan/internal/version"
	"paperscan/ui/mainwindow"
	"paperscan/ui/prefs"
)

const appTitle = "Paperscan"

// pathList collects a repeatable path flag.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var scanImages pathList
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Var(&scanImages, "scan", "image file backing a simulated scanner (repeatable)")
	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.WithFields(logrus.Fields{"version": version.Version, "commit": version.GitCommit}).Infof("Starting %s", appTitle)

	fyneApp := app.NewWithID("io.paperscan.app")

	appPrefs := prefs.Load()
	state := paperapp.NewState(paperapp.LoadConfig(appPrefs))
	state.Start()
	defer state.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = state.Loop().Run(ctx)
	}()

	backend := scan.NewFileBackend(state.Decoder(), scanImages...)
	win := mainwindow.New(fyneApp, state, appPrefs, backend)
	win.SetTitle(appTitle)

	if flag.NArg() > 0 {
		if err := win.OpenPath(flag.Arg(0)); err != nil {
			logrus.WithError(err).WithField("path", flag.Arg(0)).Error("Failed to open document")
		}
	}

	win.ShowAndRun()
}
