package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"screen-assistant/src/render"
)

// overlayTheme is a fixed light-on-dark theme sized for the answer overlay.
type overlayTheme struct {
	style render.Style
}

func newOverlayTheme(style render.Style) fyne.Theme {
	return &overlayTheme{style: style}
}

func (t *overlayTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground, theme.ColorNameOverlayBackground:
		return color.NRGBA{R: t.style.Background.R, G: t.style.Background.G, B: t.style.Background.B, A: 0xff}
	case theme.ColorNameForeground:
		return t.style.Foreground
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (t *overlayTheme) Font(s fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(s)
}

func (t *overlayTheme) Icon(n fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(n)
}

func (t *overlayTheme) Size(n fyne.ThemeSizeName) float32 {
	switch n {
	case theme.SizeNameText:
		return t.style.FontSize
	case theme.SizeNameLineSpacing:
		return t.style.LineSpacing
	}
	return theme.DefaultTheme().Size(n)
}
