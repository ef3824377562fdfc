// Package console renders leveled script output and catalog descriptions for
// a terminal.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

var levelColors = map[domain.Level]string{
	domain.LevelDebug:   "#6b7280",
	domain.LevelInfo:    "#60a5fa",
	domain.LevelSuccess: "#34d399",
	domain.LevelWarning: "#fbbf24",
	domain.LevelError:   "#f87171",
}

// Console writes colorized script output to a terminal.
type Console struct {
	out     io.Writer
	profile termenv.Profile
}

// New creates a Console writing to out. The color profile is detected from
// the environment.
func New(out io.Writer) *Console {
	return &Console{
		out:     out,
		profile: termenv.ColorProfile(),
	}
}

// NewPlain creates a Console without colors, for non-TTY output.
func NewPlain(out io.Writer) *Console {
	return &Console{
		out:     out,
		profile: termenv.Ascii,
	}
}

// PrintLine renders one output line with its level tag.
func (c *Console) PrintLine(message string, level domain.Level) {
	tag := termenv.String(fmt.Sprintf("%-7s", level)).
		Foreground(c.profile.Color(levelColors[level])).
		Bold()
	fmt.Fprintf(c.out, "%s %s\n", tag, message)
}

// Describe renders a script description as terminal markdown.
func (c *Console) Describe(markdown string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return fmt.Errorf("failed to build markdown renderer: %w", err)
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("failed to render description: %w", err)
	}
	_, err = io.WriteString(c.out, rendered)
	return err
}

// PrintBanner outputs the startup banner with the running version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`                _       _      _           _    `, "#818cf8"},
		{` ___  ___  _ __(_)_ __ | |_ __| | ___  ___| | __`, "#a78bfa"},
		{`/ __|/ __|| '__| | '_ \| __/ _' |/ _ \/ __| |/ /`, "#c084fc"},
		{`\__ \ (__ | |  | | |_) | || (_| |  __/ (__|   < `, "#e879f9"},
		{`|___/\___||_|  |_| .__/ \__\__,_|\___|\___|_|\_\`, "#f472b6"},
		{`                 |_|                            `, "#fb7185"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Printf("  scriptdeck %s\n\n", version)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
