package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"paperscan/pkg/colorutil"
)

// ColorNameCanvas is the color painted behind document pages.
const ColorNameCanvas fyne.ThemeColorName = "paperCanvas"

// PaperTheme is the application theme. Accents use the crop grip color so
// buttons and selections match the outline drawn on scans, and the canvas
// color comes from the configured background.
type PaperTheme struct {
	canvas color.Color
}

var _ fyne.Theme = (*PaperTheme)(nil)

// NewPaperTheme builds the theme for cfg.
func NewPaperTheme(cfg Config) *PaperTheme {
	return &PaperTheme{canvas: cfg.BackgroundColor()}
}

func (t *PaperTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case ColorNameCanvas:
		if t.canvas == nil {
			return colorutil.LightGray
		}
		return t.canvas
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorutil.Blue
	case theme.ColorNameSelection:
		return colorutil.WithAlpha(colorutil.Blue, 0x40)
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *PaperTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *PaperTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size widens the scrollbars; documents are long and mostly scrolled.
func (t *PaperTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 16
	case theme.SizeNameScrollBarSmall:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
