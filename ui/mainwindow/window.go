// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"paperscan/internal/app"
	core "paperscan/internal/canvas"
	"paperscan/internal/document"
	"paperscan/internal/imgcut"
	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/internal/ocr"
	"paperscan/internal/scan"
	"paperscan/internal/version"
	"paperscan/ui/canvas"
	"paperscan/ui/prefs"
)

var log = logrus.WithField("component", "mainwindow")

const prefKeyLastDir = "lastDirectory"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	view      *canvas.View
	statusBar *widget.Label
	progress  *widget.ProgressBar
	langs     *widget.Select

	// loop thread only
	calibrator *app.Calibrator
	layout     *document.Layout
	crop       *imgcut.Handler
	langList   []ocr.Lang

	langFinder *ocr.LangFinder
	recognizer *ocr.Recognizer
}

// New creates the main window. backend provides the scanners listed by the
// calibration.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, backend scan.Backend) *MainWindow {
	win := fyneApp.NewWindow("Paperscan")

	mw := &MainWindow{
		Window:     win,
		app:        fyneApp,
		state:      state,
		prefs:      p,
		langFinder: ocr.NewLangFinder(nil),
		recognizer: ocr.NewRecognizer(),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupCalibrator(backend)
	mw.findLanguages()

	return mw
}

// View returns the canvas widget.
func (mw *MainWindow) View() *canvas.View { return mw.view }

func (mw *MainWindow) setupUI() {
	mw.view = canvas.NewView(mw.state.Loop())
	mw.applyTheme(mw.state.Config())
	mw.statusBar = widget.NewLabel("Ready")
	mw.progress = widget.NewProgressBar()
	mw.progress.Hide()
	mw.langs = widget.NewSelect(nil, mw.onLangSelected)
	mw.langs.PlaceHolder = "OCR language"

	toolbar := container.NewHBox(
		widget.NewButton("Open...", mw.onOpenImages),
		widget.NewButton("Calibrate", mw.onCalibrate),
		widget.NewButton("Save Crop...", mw.onSaveCrop),
		widget.NewButton("OCR", mw.onRecognize),
		mw.langs,
	)

	status := container.NewBorder(nil, nil, nil, container.NewGridWrap(fyne.NewSize(200, 20), mw.progress), mw.statusBar)
	mw.SetContent(container.NewBorder(toolbar, container.NewPadded(status), nil, nil, mw.view))
	mw.Canvas().SetOnTypedKey(mw.view.TypedKey)
	mw.Resize(fyne.NewSize(1000, 800))
}

func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Images...", mw.onOpenImages),
		fyne.NewMenuItem("Open Folder...", mw.onOpenFolder),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Crop...", mw.onSaveCrop),
	)
	scanMenu := fyne.NewMenu("Scan",
		fyne.NewMenuItem("Calibrate", mw.onCalibrate),
		fyne.NewMenuItem("Recognize Crop", mw.onRecognize),
	)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Page Up", func() { mw.view.Do(func(c *core.Canvas) { c.ScrollPage(0, -1) }) }),
		fyne.NewMenuItem("Page Down", func() { mw.view.Do(func(c *core.Canvas) { c.ScrollPage(0, 1) }) }),
		fyne.NewMenuItem("First Page", func() { mw.scrollToPage(0) }),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, scanMenu, viewMenu, helpMenu))
}

func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventDocumentOpened, func(data interface{}) {
		if doc, ok := data.(*document.Document); ok {
			mw.SetTitle("Paperscan - " + doc.Name)
			mw.updateStatus(fmt.Sprintf("%d pages", len(doc.Pages)))
		}
	})
	mw.state.On(app.EventCropChanged, func(data interface{}) {
		if r, ok := data.(image.Rectangle); ok {
			mw.updateStatus(fmt.Sprintf("Crop: (%d, %d) - (%d, %d), %dx%d",
				r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, r.Dx(), r.Dy()))
		}
	})
	mw.state.On(app.EventScanStarted, func(interface{}) {
		mw.progress.SetValue(0)
		mw.progress.Show()
	})
	mw.state.On(app.EventScanFinished, func(interface{}) {
		mw.progress.Hide()
	})
	mw.state.On(app.EventScanFailed, func(data interface{}) {
		mw.progress.Hide()
		if err, ok := data.(error); ok {
			dialog.ShowError(err, mw.Window)
		}
	})
	mw.state.On(app.EventConfigChanged, func(interface{}) {
		cfg := mw.state.Config()
		mw.applyTheme(cfg)
		cfg.Save(mw.prefs)
		if err := mw.prefs.Save(); err != nil {
			log.WithError(err).Warn("cannot save preferences")
		}
	})
}

// applyTheme installs the theme for cfg and paints the canvas with its
// canvas color.
func (mw *MainWindow) applyTheme(cfg app.Config) {
	th := app.NewPaperTheme(cfg)
	mw.app.Settings().SetTheme(th)
	mw.view.SetBackground(th.Color(app.ColorNameCanvas, mw.app.Settings().ThemeVariant()))
}

func (mw *MainWindow) setupCalibrator(backend scan.Backend) {
	mw.state.Loop().Post(func() {
		k := app.NewCalibrator(mw.state, backend, mw.view.Canvas())
		k.OnStatus = mw.updateStatus
		k.OnProgress = mw.progress.SetValue
		k.OnCropReady = func(h *imgcut.Handler) {
			mw.layout = nil
			mw.crop = h
			mw.view.SetHoverer(h)
		}
		mw.calibrator = k
	})
}

func (mw *MainWindow) findLanguages() {
	job := mw.langFinder.Make(func(ev jobs.Event) {
		switch ev.Kind {
		case jobs.EventDone:
			mw.langList, _ = ev.Value.([]ocr.Lang)
			names := make([]string, len(mw.langList))
			selected := ""
			for i, l := range mw.langList {
				names[i] = l.Name
				if l.Code == mw.state.Config().OCRLang {
					selected = l.Name
				}
			}
			mw.langs.SetOptions(names)
			if selected != "" {
				mw.langs.SetSelected(selected)
			}
		case jobs.EventFailed:
			log.WithError(ev.Err).Warn("OCR unavailable")
			mw.langs.Disable()
		}
	})
	if err := mw.state.Main().Schedule(job); err != nil {
		log.WithError(err).Warn("cannot look for OCR languages")
	}
}

func (mw *MainWindow) onLangSelected(name string) {
	mw.state.Loop().Post(func() {
		for _, l := range mw.langList {
			if l.Name != name {
				continue
			}
			cfg := mw.state.Config()
			if cfg.OCRLang != l.Code {
				cfg.OCRLang = l.Code
				mw.state.SetConfig(cfg)
			}
			return
		}
	})
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(dir string) {
	mw.prefs.SetString(prefKeyLastDir, dir)
	if err := mw.prefs.Save(); err != nil {
		log.WithError(err).Warn("cannot save preferences")
	}
}

func (mw *MainWindow) onOpenImages() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(filepath.Dir(path))
		mw.openDocument(document.FromFiles(filepath.Base(path), path))
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imgdecode.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenFolder() {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		dir := uri.Path()
		mw.saveLastDir(dir)
		doc, err := document.FromDir(dir)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.openDocument(doc)
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// OpenPath opens a file or a folder of page images.
func (mw *MainWindow) OpenPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		mw.openDocument(document.FromFiles(filepath.Base(path), path))
		return nil
	}
	doc, err := document.FromDir(path)
	if err != nil {
		return err
	}
	mw.openDocument(doc)
	return nil
}

func (mw *MainWindow) openDocument(doc *document.Document) {
	cfg := mw.state.Config()
	loader := core.NewPageLoader(mw.state.Decoder())
	mw.view.Do(func(c *core.Canvas) {
		if mw.crop != nil {
			mw.crop.Close()
			mw.crop = nil
			mw.view.SetHoverer(nil)
		}
		mw.layout = document.Lay(c, doc, loader, mw.state.Main(), document.Options{
			Ratio:      cfg.PageRatio,
			Background: cfg.BackgroundColor(),
		})
		mw.state.OpenDocument(doc)
	})
}

func (mw *MainWindow) scrollToPage(i int) {
	mw.view.Do(func(c *core.Canvas) {
		if mw.layout != nil {
			mw.layout.ScrollTo(c, i)
		}
	})
}

func (mw *MainWindow) onCalibrate() {
	mw.state.Loop().Post(func() {
		if mw.calibrator == nil {
			return
		}
		if mw.crop != nil {
			mw.view.SetHoverer(nil)
			mw.crop = nil
		}
		if err := mw.calibrator.Start(); err != nil {
			mw.updateStatus(err.Error())
		}
	})
}

func (mw *MainWindow) onSaveCrop() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		mw.state.Loop().Post(func() {
			if mw.crop == nil {
				writer.Close()
				dialog.ShowError(errors.New("no crop selected, run a calibration first"), mw.Window)
				return
			}
			img := mw.crop.Crop()
			go func() {
				defer writer.Close()
				if err := png.Encode(writer, img); err != nil {
					dialog.ShowError(err, mw.Window)
					return
				}
				mw.updateStatus("Saved " + writer.URI().Name())
			}()
		})
	}, mw.Window)
	fd.SetFileName("crop.png")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onRecognize() {
	mw.state.Loop().Post(func() {
		if mw.crop == nil {
			mw.updateStatus("No crop selected")
			return
		}
		lang := mw.state.Config().OCRLang
		job := mw.recognizer.Make(lang, mw.crop.Crop(), func(ev jobs.Event) {
			switch ev.Kind {
			case jobs.EventDone:
				text, _ := ev.Value.(string)
				entry := widget.NewMultiLineEntry()
				entry.SetText(text)
				d := dialog.NewCustom("Recognized text", "Close", container.NewScroll(entry), mw.Window)
				d.Resize(fyne.NewSize(500, 400))
				d.Show()
				mw.updateStatus("OCR done")
			case jobs.EventFailed:
				dialog.ShowError(ev.Err, mw.Window)
			}
		})
		if err := mw.state.Main().Schedule(job); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Recognizing text ...")
	})
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Paperscan",
		fmt.Sprintf("Paperscan %s\n\n"+
			"Scan, browse and crop paper documents.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
