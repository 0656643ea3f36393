package render

import "github.com/gdamore/tcell/v2"

// ColorTheme defines application colors.
type ColorTheme struct {
	Background  tcell.Color
	Foreground  tcell.Color
	HiddenFg    tcell.Color
	SelectionBg tcell.Color
	SelectionFg tcell.Color
	FolderFg    tcell.Color
	FileFg      tcell.Color
	FooterBg    tcell.Color
	FooterFg    tcell.Color
	ErrorFg     tcell.Color
	ProgressFg  tcell.Color
	QueuedFg    tcell.Color
	FailedFg    tcell.Color
	DoneFg      tcell.Color
	PreviewBg   tcell.Color
	PreviewFg   tcell.Color

	// Checkerboard drawn behind transparent thumbnail pixels.
	CheckerLight tcell.Color
	CheckerDark  tcell.Color
}

// GetColorTheme returns the default color scheme.
func GetColorTheme() ColorTheme {
	return ColorTheme{
		Background:   tcell.ColorDefault,
		Foreground:   tcell.ColorDefault,
		HiddenFg:     tcell.ColorLightSlateGray,
		SelectionBg:  tcell.Color33,
		SelectionFg:  tcell.ColorWhite,
		FolderFg:     tcell.Color33,
		FileFg:       tcell.ColorDefault,
		FooterBg:     tcell.ColorDefault,
		FooterFg:     tcell.ColorDefault,
		ErrorFg:      tcell.ColorRed,
		ProgressFg:   tcell.Color44,
		QueuedFg:     tcell.ColorLightSlateGray,
		FailedFg:     tcell.Color167,
		DoneFg:       tcell.Color71,
		PreviewBg:    tcell.ColorDefault,
		PreviewFg:    tcell.ColorDefault,
		CheckerLight: tcell.NewRGBColor(0xcc, 0xcc, 0xcc),
		CheckerDark:  tcell.NewRGBColor(0x99, 0x99, 0x99),
	}
}
