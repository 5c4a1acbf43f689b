package app

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"go.aimuz.me/labvoz/internal/types"
)

// Console is a terminal host. It renders notifications, shows the login
// prompt and opens navigation targets in the system browser.
type Console struct {
	out     io.Writer
	resolve func(path string) string
	open    func(url string) error

	mu        sync.Mutex
	prompting bool
	styles    map[types.Severity]lipgloss.Style
	muted     lipgloss.Style
}

// NewConsole creates a Console writing to out. resolve turns application
// paths into absolute URLs.
func NewConsole(out io.Writer, resolve func(path string) string) *Console {
	badge := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}
	return &Console{
		out:     out,
		resolve: resolve,
		open:    browser.OpenURL,
		styles: map[types.Severity]lipgloss.Style{
			types.SeverityInfo:      badge("12"),
			types.SeveritySuccess:   badge("10"),
			types.SeverityWarning:   badge("11"),
			types.SeverityDanger:    badge("9"),
			types.SeveritySecondary: badge("8"),
		},
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
	}
}

// Show renders a notification.
func (c *Console) Show(n types.Notification) {
	style, ok := c.styles[n.Severity]
	if !ok {
		style = c.styles[types.SeverityInfo]
	}
	c.printf("%s %s\n", style.Render(fmt.Sprintf("[%s]", n.Severity)), n.Message)
}

// Hide is called when a notification expires. Terminal lines cannot be
// retracted, so it only logs.
func (c *Console) Hide(id string) {
	slog.Debug("notification hidden", "id", id)
}

// Navigate opens path in the browser.
func (c *Console) Navigate(path string) error {
	url := c.resolve(path)
	c.printf("%s %s\n", c.muted.Render("→"), url)
	if err := c.open(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// promptShow presents the login prompt.
func (c *Console) promptShow() {
	c.mu.Lock()
	c.prompting = true
	c.mu.Unlock()
	c.printf("%s\n", c.muted.Render("Inicia sesión: escribe tu ID de usuario y pulsa Enter."))
}

func (c *Console) promptHide() {
	c.mu.Lock()
	c.prompting = false
	c.mu.Unlock()
}

func (c *Console) promptFocus() {
	c.printf("%s\n", c.muted.Render("ID de usuario:"))
}

// Prompting reports whether the next input line is a login identifier.
func (c *Console) Prompting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompting
}

// Prompt returns the login affordance backed by this console.
func (c *Console) Prompt() *ConsolePrompt {
	return &ConsolePrompt{c: c}
}

// ConsolePrompt adapts Console to auth.Prompt.
type ConsolePrompt struct {
	c *Console
}

func (p *ConsolePrompt) Show()  { p.c.promptShow() }
func (p *ConsolePrompt) Hide()  { p.c.promptHide() }
func (p *ConsolePrompt) Focus() { p.c.promptFocus() }

// Emit prints host events.
func (c *Console) Emit(name string, data any) {
	switch name {
	case EventListening:
		if on, _ := data.(bool); on {
			c.printf("%s\n", c.muted.Render("● micrófono activo"))
		} else {
			c.printf("%s\n", c.muted.Render("○ micrófono inactivo"))
		}
	case EventSessionStatus:
		c.printf("%s\n", c.muted.Render(fmt.Sprint(data)))
	default:
		slog.Debug("host event", "name", name, "data", data)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
