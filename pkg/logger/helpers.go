package logger

import (
	"fmt"
	"io"
	"strings"
)

// Icons and symbols for different log types
const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconTrain   = "🚆"
	IconTrack   = "🛤️"
	IconClock   = "⏱️"
	IconRefresh = "🔄"
	IconDot     = "•"
	IconArrow   = "→"
)

// output returns the writer of the global logger
func output() io.Writer {
	if l, ok := defaultLogger.(*logger); ok {
		l.sink.mu.Lock()
		defer l.sink.mu.Unlock()
		return l.sink.writer
	}
	return io.Discard
}

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	defaultLogger.Info(IconRefresh + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// LogSection creates a visual section separator
func LogSection(title string) {
	logBanner(title, "=", 50, colorCyan+colorBold)
}

// LogSubSection creates a visual subsection separator
func LogSubSection(title string) {
	logBanner(title, "-", 40, colorGray)
}

func logBanner(title, ch string, width int, titleColor string) {
	w := output()
	line := strings.Repeat(ch, width)
	if colorEnabled() {
		_, _ = fmt.Fprintln(w, colorCyan+line+colorReset)
		_, _ = fmt.Fprintln(w, titleColor+title+colorReset)
		_, _ = fmt.Fprintln(w, colorCyan+line+colorReset)
		return
	}
	_, _ = fmt.Fprintln(w, line)
	_, _ = fmt.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, line)
}

// LogList logs a list of items with bullets
func LogList(title string, items []string) {
	Info(title)
	w := output()
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "  %s %s\n", IconDot, item)
	}
}

// LogKeyValue logs a key-value pair with nice formatting
func LogKeyValue(key string, value interface{}) {
	w := output()
	if colorEnabled() {
		_, _ = fmt.Fprintf(w, "%s%s:%s %v\n", colorCyan, key, colorReset, value)
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %v\n", key, value)
}

// Table represents a simple table for logging
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print prints the table to the global logger output
func (t *Table) Print() {
	t.Fprint(output())
}

// Fprint writes the table to w
func (t *Table) Fprint(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	writeRow(t.headers)
	sep := make([]string, len(t.headers))
	for i := range t.headers {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range t.rows {
		writeRow(row)
	}
}
