package styles

import (
	"charm.land/bubbles/v2/textarea"
	"charm.land/lipgloss/v2"
)

type ThemeType string

const (
	ThemeDark  ThemeType = "dark"
	ThemeLight ThemeType = "light"
)

// Theme is the color scheme of the editor, as hex strings.
type Theme struct {
	Type ThemeType

	Background string
	Accent     string

	Success string
	Error   string
	Warning string

	TextPrimary   string
	TextSecondary string
	TextMuted     string

	BorderPrimary    string
	BorderSecondary  string
	PlaceholderColor string
}

// CurrentTheme holds the active theme.
var CurrentTheme = DarkTheme()

// DarkTheme returns the Tokyo Night-inspired dark theme.
func DarkTheme() Theme {
	return Theme{
		Type: ThemeDark,

		Background: ColorBackground,
		Accent:     ColorAccentBlue,

		Success: ColorSuccessGreen,
		Error:   ColorErrorRed,
		Warning: ColorWarningYellow,

		TextPrimary:   ColorTextPrimary,
		TextSecondary: ColorTextSecondary,
		TextMuted:     ColorMutedBlue,

		BorderPrimary:    ColorAccentBlue,
		BorderSecondary:  ColorBorderSecondary,
		PlaceholderColor: ColorMutedBlue,
	}
}

// LightTheme returns a light theme suitable for bright environments.
func LightTheme() Theme {
	return Theme{
		Type: ThemeLight,

		Background: "#F5F5F5",
		Accent:     "#3B82F6",

		Success: "#10B981",
		Error:   "#EF4444",
		Warning: "#F59E0B",

		TextPrimary:   "#1F2937",
		TextSecondary: "#4B5563",
		TextMuted:     "#6B7280",

		BorderPrimary:    "#3B82F6",
		BorderSecondary:  "#D1D5DB",
		PlaceholderColor: "#9CA3AF",
	}
}

// ThemeByName returns the theme called name, falling back to the dark one.
func ThemeByName(name string) Theme {
	if ThemeType(name) == ThemeLight {
		return LightTheme()
	}
	return DarkTheme()
}

// SetTheme applies theme to every exported color and style.
func SetTheme(theme Theme) {
	CurrentTheme = theme

	Background = lipgloss.Color(theme.Background)
	Accent = lipgloss.Color(theme.Accent)
	Success = lipgloss.Color(theme.Success)
	Error = lipgloss.Color(theme.Error)
	Warning = lipgloss.Color(theme.Warning)
	TextPrimary = lipgloss.Color(theme.TextPrimary)
	TextSecondary = lipgloss.Color(theme.TextSecondary)
	TextMuted = lipgloss.Color(theme.TextMuted)
	BorderPrimary = lipgloss.Color(theme.BorderPrimary)
	BorderSecondary = lipgloss.Color(theme.BorderSecondary)
	PlaceholderColor = lipgloss.Color(theme.PlaceholderColor)

	rebuildStyles()
}

func rebuildStyles() {
	BaseStyle = lipgloss.NewStyle().Foreground(TextPrimary)
	AppStyle = BaseStyle.Padding(0, 1, 0, 1)

	HighlightStyle = BaseStyle.Foreground(Accent)
	MutedStyle = BaseStyle.Foreground(TextMuted)
	SecondaryStyle = BaseStyle.Foreground(TextSecondary)
	BoldStyle = BaseStyle.Bold(true)

	SuccessStyle = BaseStyle.Foreground(Success)
	ErrorStyle = BaseStyle.Foreground(Error)
	WarningStyle = BaseStyle.Foreground(Warning)
	InProgressStyle = BaseStyle.Foreground(Warning)

	StatusBarStyle = BaseStyle.Foreground(TextSecondary).Padding(0, 1)
	PromptStyle = BaseStyle.
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderPrimary).
		Padding(0, 1)
	NoticeStyle = BaseStyle.
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Warning).
		Foreground(Warning).
		Padding(0, 1)

	InputStyle = textarea.Styles{
		Focused: textarea.StyleState{
			Base:        BaseStyle,
			Placeholder: BaseStyle.Foreground(PlaceholderColor),
		},
		Blurred: textarea.StyleState{
			Base:        BaseStyle.Foreground(TextMuted),
			Placeholder: BaseStyle.Foreground(PlaceholderColor),
		},
		Cursor: textarea.CursorStyle{
			Color: Accent,
		},
	}
	EditorStyle = BaseStyle.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(BorderSecondary)
	ReadOnlyEditorStyle = EditorStyle.BorderForeground(Warning)
}

// ToggleTheme switches between the dark and light themes.
func ToggleTheme() Theme {
	next := LightTheme()
	if CurrentTheme.Type == ThemeLight {
		next = DarkTheme()
	}
	SetTheme(next)
	return next
}
