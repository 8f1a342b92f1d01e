// Package report renders sampling cycles as a terminal table.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"cpu-sentinel/internal/metrics"
)

const (
	ClearAuto   = "auto"
	ClearAlways = "always"
	ClearNever  = "never"

	// clearSequence homes the cursor and erases the screen.
	clearSequence = "\x1b[H\x1b[2J"

	noCoresLine = "no cores reported"

	bytesPerGiB = 1024 * 1024 * 1024
)

var (
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	usageStyle = cellStyle.Align(lipgloss.Right)
)

type Reporter struct {
	out   io.Writer
	clear bool
}

func New(out io.Writer, clear bool) *Reporter {
	return &Reporter{out: out, clear: clear}
}

// ShouldClear resolves a clear mode for a sink. "auto" clears only when the
// sink is a terminal.
func ShouldClear(mode string, out io.Writer) bool {
	switch mode {
	case ClearAlways:
		return true
	case ClearNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes one complete frame with a single Write so a frame is never
// left half drawn.
func (r *Reporter) Render(c metrics.Cycle) error {
	frame := r.Frame(c)
	if _, err := r.out.Write([]byte(frame)); err != nil {
		return fmt.Errorf("render cycle %d: %w", c.Seq, err)
	}
	return nil
}

func (r *Reporter) Frame(c metrics.Cycle) string {
	var b strings.Builder
	if r.clear {
		b.WriteString(clearSequence)
	}
	b.WriteString(CoreTable(c.Samples))
	b.WriteByte('\n')
	if len(c.Samples) == 0 {
		b.WriteString(noCoresLine)
		b.WriteByte('\n')
	}
	b.WriteString(MemoryLine(c.Memory))
	b.WriteByte('\n')
	return b.String()
}

func CoreTable(samples []metrics.UtilizationSample) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("core", "usage").
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 1 && row != table.HeaderRow {
				return usageStyle
			}
			return cellStyle
		})

	for _, s := range samples {
		t.Row(strconv.Itoa(s.Core), FormatPercent(s.Percent))
	}
	return t.String()
}

func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func MemoryLine(m metrics.MemoryStatus) string {
	return fmt.Sprintf("Memory used %.2f GB / %.2f GB",
		float64(m.UsedBytes())/bytesPerGiB,
		float64(m.TotalBytes)/bytesPerGiB)
}
