// Package term writes user-facing CLI output. Operational logging lives in
// internal/clog; this package is what the operator reads.
//
// Output written through Print, Printf, Println and Table is dropped in
// silent mode. Warn and Error always reach stderr.
package term

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
)

type console struct {
	mu     sync.Mutex
	out    io.Writer
	err    io.Writer
	silent bool
}

var std = &console{out: os.Stdout, err: os.Stderr}

// stdout runs fn against the output writer unless silent.
func (c *console) stdout(fn func(w io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.silent {
		fn(c.out)
	}
}

func (c *console) stderr(prefix, format string, a []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.err, "%s: %s\n", prefix, fmt.Sprintf(format, a...))
}

// SetSilent turns silent mode on or off.
func SetSilent(s bool) {
	std.mu.Lock()
	std.silent = s
	std.mu.Unlock()
}

func IsSilent() bool {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.silent
}

// SetOutput redirects regular output. nil restores os.Stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	std.mu.Lock()
	std.out = w
	std.mu.Unlock()
}

// SetErrOutput redirects warnings and errors. nil restores os.Stderr.
func SetErrOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	std.mu.Lock()
	std.err = w
	std.mu.Unlock()
}

func Print(a ...any) {
	std.stdout(func(w io.Writer) { _, _ = fmt.Fprint(w, a...) })
}

func Printf(format string, a ...any) {
	std.stdout(func(w io.Writer) { _, _ = fmt.Fprintf(w, format, a...) })
}

func Println(a ...any) {
	std.stdout(func(w io.Writer) { _, _ = fmt.Fprintln(w, a...) })
}

// Warn prints "Warning: <msg>" to stderr.
func Warn(format string, a ...any) { std.stderr("Warning", format, a) }

// Error prints "Error: <msg>" to stderr.
func Error(format string, a ...any) { std.stderr("Error", format, a) }

// Table prints rows as aligned columns under an upper-cased header.
func Table(header []string, rows [][]string) {
	std.stdout(func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
		for _, row := range rows {
			_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		_ = tw.Flush()
	})
}

// Reset restores os.Stdout, os.Stderr and non-silent mode.
func Reset() {
	std.mu.Lock()
	std.out, std.err, std.silent = os.Stdout, os.Stderr, false
	std.mu.Unlock()
}
