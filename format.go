package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/dpres/preingest-go/internal/storage"
)

// statusf prints an informational message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// pollProgress prints one dot per task status poll so the user can see a
// long-running server task is still being waited on. Dots are only written
// to a terminal; redirected output stays clean.
type pollProgress struct {
	printed bool
}

func (p *pollProgress) tick(_ *storage.Task) {
	if flagQuiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return
	}

	fmt.Fprint(os.Stderr, ".")
	p.printed = true
}

// finish terminates the dot line once a wait completes.
func (p *pollProgress) finish() {
	if p.printed {
		fmt.Fprintln(os.Stderr)
		p.printed = false
	}
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// printResource renders a browsed descriptor as labeled sections, one value
// per line, matching the service's field names.
func printResource(w io.Writer, res *storage.Resource) {
	if res.Kind == storage.KindFile {
		printSection(w, "file_path", []string{res.File.FilePath})
		printSection(w, "md5", []string{res.File.MD5})
		printSection(w, "timestamp", []string{res.File.Timestamp})
		printSection(w, "identifier", []string{res.File.Identifier})

		return
	}

	printSection(w, "directories", res.Directory.Directories)
	printSection(w, "files", res.Directory.Files)
	printSection(w, "identifier", []string{res.Directory.Identifier})
}

// printSection writes one "name:" header with indented values.
func printSection(w io.Writer, name string, values []string) {
	fmt.Fprintf(w, "%s:\n", name)

	for _, v := range values {
		fmt.Fprintf(w, "    %s\n", v)
	}

	fmt.Fprintln(w)
}
