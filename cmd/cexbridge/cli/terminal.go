// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// StdoutProfile returns the colour profile to use for stdout: Ascii
// when stdout is not a terminal, otherwise what the environment
// supports (honouring NO_COLOR and CLICOLOR_FORCE).
func StdoutProfile() termenv.Profile {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return termenv.Ascii
	}
	return termenv.NewOutput(os.Stdout).EnvColorProfile()
}

// chromaFormatter names the chroma formatter for a profile, or "" for
// no colour.
func chromaFormatter(profile termenv.Profile) string {
	switch profile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal"
	default:
		return ""
	}
}

// HighlightC writes code to w, coloured as C when profile allows.
// Highlighting failures fall back to the plain text.
func HighlightC(w io.Writer, code string, profile termenv.Profile) error {
	formatter := chromaFormatter(profile)
	if formatter == "" {
		_, err := io.WriteString(w, code)
		return err
	}

	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, "c", formatter, "monokai"); err != nil {
		_, err := io.WriteString(w, code)
		return err
	}
	_, err := io.WriteString(w, buffer.String())
	return err
}

// Styles renders headings and labels for one output.
type Styles struct {
	heading lipgloss.Style
	label   lipgloss.Style
}

// NewStyles builds styles for output written to w with profile.
func NewStyles(w io.Writer, profile termenv.Profile) *Styles {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return &Styles{
		heading: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		label:   renderer.NewStyle().Faint(true),
	}
}

// Heading styles a section title.
func (s *Styles) Heading(text string) string {
	return s.heading.Render(text)
}

// Label styles the key of a key/value line.
func (s *Styles) Label(text string) string {
	return s.label.Render(text)
}
