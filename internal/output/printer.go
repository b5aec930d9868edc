package output

import (
	"fmt"
	"io"
	"strings"
)

// ansiString is rendered as-is by Printer, only use it for our own
// escape sequences and styled constants.
type ansiString string

// field is a single table cell, tabs and newlines inside it are escaped
type field string

// Printer writes terminal-safe output to an io.Writer
// sanitizing any string-like arguments (string, []byte, error, fmt.Stringer)
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) Printer {
	return Printer{w: w}
}

func (p Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, sanitizePrintArgs(args)...)
}

func (p Printer) Println(args ...any) {
	fmt.Fprintln(p.w, sanitizePrintArgs(args)...)
}

// Row prints cells separated by tabs and terminated by a newline
func (p Printer) Row(cells ...any) {
	clean := sanitizePrintArgs(cells)
	parts := make([]string, len(clean))
	for i, c := range clean {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(p.w, strings.Join(parts, "\t"))
}

func sanitizePrintArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case ansiString:
			out[i] = string(v)
		case field:
			out[i] = SanitizeField(string(v))
		case string:
			out[i] = SanitizeTerminal(v)
		case []byte:
			out[i] = SanitizeTerminal(string(v))
		case error:
			out[i] = SanitizeTerminal(v.Error())
		case fmt.Stringer:
			out[i] = SanitizeTerminal(v.String())
		default:
			out[i] = a
		}
	}
	return out
}

// SafeTerminalWriter sanitizes everything written through it. The log
// output goes through one since log fields carry process command lines.
type SafeTerminalWriter struct {
	W io.Writer
}

func NewSafeTerminalWriter(w io.Writer) io.Writer {
	return SafeTerminalWriter{W: w}
}

func (w SafeTerminalWriter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if _, err := io.WriteString(w.W, SanitizeTerminal(string(b))); err != nil {
		return 0, err
	}
	return len(b), nil
}
