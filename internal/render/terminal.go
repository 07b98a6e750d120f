package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	minWidth = 40
	maxWidth = 120
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Terminal renders markdown for the current terminal. Plain is used when
// stdout is not a TTY.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal builds a renderer wrapped to the terminal width. A width of 0
// measures the terminal.
func NewTerminal(width int) (*Terminal, error) {
	if width <= 0 {
		width = termWidth()
	}
	width = clamp(width, minWidth, maxWidth)

	var opts []glamour.TermRendererOption
	if IsTerminal() {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	opts = append(opts, glamour.WithWordWrap(width-4), glamour.WithEmoji())

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Terminal{renderer: r}, nil
}

func (t *Terminal) Render(md string) (string, error) {
	return t.renderer.Render(md)
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const banner = `
     _          _     _                      _
  __| | ___  __(_)___(_) ___  _ __   ___ __ _| |_ __ ___
 / _' |/ _ \/ __| / __| |/ _ \| '_ \ / __/ _' | | '_ ' _ \
| (_| |  __/ (__| \__ \ | (_) | | | | (_| (_| | | | | | | |
 \__,_|\___|\___|_|___/_|\___/|_| |_|\___\__,_|_|_| |_| |_|

          >> one calm step, then your options <<
`

// PrintBanner writes the banner centred on the terminal width.
func PrintBanner(w io.Writer) {
	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
	}
}
