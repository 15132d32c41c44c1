package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// outputJSON forces JSON output even on a terminal.
var outputJSON bool

// wantTable reports whether w is an interactive terminal and JSON was not requested.
func wantTable(w io.Writer) bool {
	if outputJSON {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// render writes rows as a table on a terminal and v as JSON otherwise.
func render(w io.Writer, v any, header []string, rows [][]string) error {
	if wantTable(w) {
		return writeTable(w, header, rows)
	}
	return writeJSON(w, v)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print JSON even when stdout is a terminal.")
}
