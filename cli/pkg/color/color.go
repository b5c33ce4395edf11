// Package color renders ANSI-colored terminal text without external deps.
package color

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const reset = "\033[0m"

// SGR parameters accepted by New.
const (
	Bold      = 1
	Dim       = 2
	Underline = 4

	FgBlack   = 30
	FgRed     = 31
	FgGreen   = 32
	FgYellow  = 33
	FgBlue    = 34
	FgMagenta = 35
	FgCyan    = 36
	FgWhite   = 37
)

// NoColor suppresses escape sequences globally. It is initialized from
// the NO_COLOR environment variable.
var NoColor = os.Getenv("NO_COLOR") != ""

// Color holds a set of SGR parameters to apply to text.
type Color struct {
	prefix string
}

// New builds a Color from SGR parameters, e.g. New(FgGreen, Bold).
func New(attrs ...int) *Color {
	if len(attrs) == 0 {
		return &Color{}
	}
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = strconv.Itoa(a)
	}
	return &Color{prefix: "\033[" + strings.Join(parts, ";") + "m"}
}

func (c *Color) wrap(s string) string {
	if NoColor || c.prefix == "" {
		return s
	}
	return c.prefix + s + reset
}

// Printf writes colored formatted text to stdout.
func (c *Color) Printf(format string, a ...interface{}) {
	fmt.Print(c.wrap(fmt.Sprintf(format, a...)))
}

// Fprintf writes colored formatted text to w.
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, c.wrap(fmt.Sprintf(format, a...)))
}

// Sprint returns the colored concatenation of its arguments.
func (c *Color) Sprint(a ...interface{}) string {
	return c.wrap(fmt.Sprint(a...))
}

// Sprintf returns the colored formatted string.
func (c *Color) Sprintf(format string, a ...interface{}) string {
	return c.wrap(fmt.Sprintf(format, a...))
}
