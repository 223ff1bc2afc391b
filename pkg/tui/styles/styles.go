package styles

import (
	"image/color"

	"charm.land/bubbles/v2/textarea"
	"charm.land/lipgloss/v2"
)

// Color hex values of the dark theme.
const (
	ColorAccentBlue      = "#7AA2F7" // Soft blue
	ColorMutedBlue       = "#565F89" // Dark blue-grey
	ColorBorderSecondary = "#414868" // Dark blue-grey
	ColorTextPrimary     = "#C0CAF5" // Light blue-white
	ColorTextSecondary   = "#9AA5CE" // Medium blue-grey
	ColorSuccessGreen    = "#9ECE6A" // Soft green
	ColorErrorRed        = "#F7768E" // Soft red
	ColorWarningYellow   = "#E0AF68" // Soft yellow
	ColorBackground      = "#1A1B26" // Dark blue-black
)

// Palette, updated by SetTheme.
var (
	Background color.Color
	Accent     color.Color

	Success color.Color
	Error   color.Color
	Warning color.Color

	TextPrimary   color.Color
	TextSecondary color.Color
	TextMuted     color.Color

	BorderPrimary    color.Color
	BorderSecondary  color.Color
	PlaceholderColor color.Color
)

var (
	BaseStyle lipgloss.Style
	AppStyle  lipgloss.Style

	HighlightStyle lipgloss.Style
	MutedStyle     lipgloss.Style
	SecondaryStyle lipgloss.Style
	BoldStyle      lipgloss.Style

	SuccessStyle    lipgloss.Style
	ErrorStyle      lipgloss.Style
	WarningStyle    lipgloss.Style
	InProgressStyle lipgloss.Style

	// StatusBarStyle renders the bottom line with the insertion state.
	StatusBarStyle lipgloss.Style
	// PromptStyle frames the attach-file and link prompts.
	PromptStyle lipgloss.Style
	// NoticeStyle frames the size-limit notice.
	NoticeStyle lipgloss.Style

	InputStyle          textarea.Styles
	EditorStyle         lipgloss.Style
	ReadOnlyEditorStyle lipgloss.Style
)

func init() {
	SetTheme(DarkTheme())
}
