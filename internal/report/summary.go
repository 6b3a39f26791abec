package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/IvanShishkin/indexscan/pkg/models"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// FormatDuration formats duration to a human-readable string with max 2 decimal places
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	} else if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := d.Seconds() - float64(mins*60)
	return fmt.Sprintf("%dm%.2fs", mins, secs)
}

// FormatBytes formats a byte count with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// isTerminal reports whether w is a terminal that can render colors
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintSummary prints the run statistics. Colors are used only on a terminal.
func PrintSummary(w io.Writer, stats *models.ScanStats) {
	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	if !isTerminal(w) || color.NoColor {
		for _, c := range []*color.Color{bold, gray, green, yellow} {
			c.DisableColor()
		}
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "SCAN COMPLETE")
	fmt.Fprintln(w)

	line := func(label string, value any) {
		gray.Fprintf(w, "  %-12s", label+":")
		fmt.Fprintf(w, "%v\n", value)
	}
	line("Scan ID", stats.ScanID)
	line("Root", stats.Root)
	line("Workers", stats.Workers)
	line("Duration", FormatDuration(stats.Duration))
	line("Directories", stats.Dirs)
	line("Files seen", stats.FilesSeen)

	gray.Fprintf(w, "  %-12s", "Emitted:")
	green.Fprintf(w, "%d", stats.Emitted)
	fmt.Fprintf(w, " (%d binary, %s, %.0f files/s)\n", stats.Binary, FormatBytes(stats.TotalSize), stats.FilesPerSecond())

	line("Ignored", stats.Ignored)
	line("Excluded", stats.Excluded)
	line("Oversize", stats.Oversize)
	line("Non-regular", stats.NonRegular)

	gray.Fprintf(w, "  %-12s", "Errors:")
	if stats.Errors > 0 {
		yellow.Fprintf(w, "%d\n", stats.Errors)
	} else {
		fmt.Fprintf(w, "%d\n", stats.Errors)
	}
	fmt.Fprintln(w)
}
