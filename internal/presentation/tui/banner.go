package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the TraceScribe banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _____                    ____            _ _          ", "#818cf8"},
		{"|_   _| __ __ _  ___ ___ / ___|  ___ _ __(_) |__   ___ ", "#a78bfa"},
		{"  | || '__/ _` |/ __/ _ \\\\___ \\ / __| '__| | '_ \\ / _ \\", "#c084fc"},
		{"  | || | | (_| | (_|  __/ ___) | (__| |  | | |_) |  __/", "#e879f9"},
		{"  |_||_|  \\__,_|\\___\\___||____/ \\___|_|  |_|_.__/ \\___|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
