package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// success prints a green status line with a check mark.
func success(out io.Writer, format string, a ...any) {
	green.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(out io.Writer, format string, a ...any) {
	yellow.Fprintf(out, "! %s\n", fmt.Sprintf(format, a...))
}

// heading prints a cyan section heading.
func heading(out io.Writer, format string, a ...any) {
	cyan.Fprintf(out, "%s\n", fmt.Sprintf(format, a...))
}

// orDash renders empty strings as "-" in tables.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
