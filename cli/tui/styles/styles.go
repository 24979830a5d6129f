package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	// Textarea
	MinTextareaHeight    = 3
	MaxTextareaHeight    = 12
	DefaultTextareaWidth = 80
	TextAreaPaddingLeft  = 1

	// Viewport
	MinViewportHeight = 1

	// Sidebar
	SidebarWidth         = 30
	MinWidthWithSidebar  = 70
	SidebarTitleMaxWidth = SidebarWidth - 6

	// Layout
	InputBorderHeight  = 2
	HeaderHeight       = 2
	StatusHeight       = 1
	MessagePaddingLeft = 2

	// Truncation
	TruncateSuffix = "…"
)

// Palette is a set of colors for one theme.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	DimText   lipgloss.Color
	Border    lipgloss.Color
	Selected  lipgloss.Color
}

var (
	darkPalette = Palette{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Accent:    lipgloss.Color("#F59E0B"), // Amber
		Success:   lipgloss.Color("#10B981"), // Green
		Error:     lipgloss.Color("#EF4444"), // Red
		Muted:     lipgloss.Color("#6B7280"), // Gray
		Text:      lipgloss.Color("#F9FAFB"),
		DimText:   lipgloss.Color("#9CA3AF"),
		Border:    lipgloss.Color("#4B5563"),
		Selected:  lipgloss.Color("#374151"),
	}

	lightPalette = Palette{
		Primary:   lipgloss.Color("#6D28D9"),
		Secondary: lipgloss.Color("#0E7490"),
		Accent:    lipgloss.Color("#B45309"),
		Success:   lipgloss.Color("#047857"),
		Error:     lipgloss.Color("#B91C1C"),
		Muted:     lipgloss.Color("#6B7280"),
		Text:      lipgloss.Color("#111827"),
		DimText:   lipgloss.Color("#4B5563"),
		Border:    lipgloss.Color("#D1D5DB"),
		Selected:  lipgloss.Color("#E5E7EB"),
	}
)

// Styles holds every style of the interface for one theme.
type Styles struct {
	Palette Palette

	// Title bar
	Title lipgloss.Style

	// Messages
	UserMessage      lipgloss.Style
	AIMessage        lipgloss.Style
	NoticeMessage    lipgloss.Style
	ErrorMessage     lipgloss.Style
	MessageFooter    lipgloss.Style
	MessageInterrupt lipgloss.Style

	// Welcome screen
	WelcomeTitle lipgloss.Style
	Suggestion   lipgloss.Style

	// Sidebar
	Sidebar         lipgloss.Style
	SidebarFocused  lipgloss.Style
	SidebarHeader   lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarActive   lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarConfirm  lipgloss.Style

	// Composer
	TextArea   lipgloss.Style
	Attachment lipgloss.Style
	Spinner    lipgloss.Style
	Help       lipgloss.Style
	Error      lipgloss.Style
	DimText    lipgloss.Style
}

// New returns the styles of the dark or light theme.
func New(dark bool) *Styles {
	p := lightPalette
	if dark {
		p = darkPalette
	}

	message := lipgloss.NewStyle().
		Foreground(p.Text).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	sidebar := lipgloss.NewStyle().
		Width(SidebarWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	return &Styles{
		Palette: p,

		Title: lipgloss.NewStyle().
			Background(p.Primary).
			Foreground(lipgloss.Color("#F9FAFB")).
			Bold(true),

		UserMessage: lipgloss.NewStyle().
			Inherit(message).
			BorderForeground(p.Primary).
			MarginLeft(10),
		AIMessage: lipgloss.NewStyle().
			Inherit(message).
			BorderForeground(p.Secondary).
			MarginRight(10),
		NoticeMessage: lipgloss.NewStyle().
			Inherit(message).
			BorderForeground(p.Accent).
			MarginRight(10),
		ErrorMessage: lipgloss.NewStyle().
			Inherit(message).
			BorderForeground(p.Error).
			MarginRight(10),
		MessageFooter: lipgloss.NewStyle().
			Foreground(p.DimText).
			PaddingLeft(MessagePaddingLeft),
		MessageInterrupt: lipgloss.NewStyle().
			Foreground(p.Accent).
			Italic(true).
			PaddingLeft(MessagePaddingLeft),

		WelcomeTitle: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			MarginBottom(1),
		Suggestion: lipgloss.NewStyle().
			Foreground(p.Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),

		Sidebar:        sidebar,
		SidebarFocused: sidebar.BorderForeground(p.Primary),
		SidebarHeader: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true).
			MarginBottom(1),
		SidebarItem: lipgloss.NewStyle().
			Foreground(p.DimText),
		SidebarActive: lipgloss.NewStyle().
			Foreground(p.Success).
			Bold(true),
		SidebarSelected: lipgloss.NewStyle().
			Background(p.Selected).
			Foreground(p.Text),
		SidebarConfirm: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),

		TextArea: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			PaddingLeft(TextAreaPaddingLeft),
		Attachment: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F472B6")).
			Italic(true),
		Spinner: lipgloss.NewStyle().
			Foreground(p.Secondary),
		Help: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		DimText: lipgloss.NewStyle().
			Foreground(p.DimText),
	}
}

// Truncate shortens s to maxLen runes.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + TruncateSuffix
}
