package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eunmann/rtbench/pkg/bench"
	"github.com/eunmann/rtbench/pkg/humanfmt"
)

const (
	colorTitle = lipgloss.Color("#7C3AED")
	colorMuted = lipgloss.Color("#6B7280")
	colorOK    = lipgloss.Color("#10B981")
	colorFail  = lipgloss.Color("#EF4444")
	colorSkip  = lipgloss.Color("#F59E0B")
)

// Stat aggregates the samples sharing one label.
type Stat struct {
	Step  string
	Label string
	Count int
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
}

// Mean returns the average sample duration.
func (s Stat) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Stats groups samples by label in first-seen order.
func Stats(r *bench.Report) []Stat {
	var out []Stat
	index := make(map[string]int)
	for _, s := range r.Samples() {
		key := s.Step + "\x00" + s.Label
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Stat{Step: s.Step, Label: s.Label, Min: s.Elapsed, Max: s.Elapsed})
		}
		st := &out[i]
		st.Count++
		st.Total += s.Elapsed
		st.Min = min(st.Min, s.Elapsed)
		st.Max = max(st.Max, s.Elapsed)
	}
	return out
}

// Summary renders a table of per-label timings followed by the status of
// every step. Colors are dropped when w is not a terminal.
func Summary(w io.Writer, r *bench.Report) error {
	re := lipgloss.NewRenderer(w)
	title := re.NewStyle().Bold(true).Foreground(colorTitle)
	muted := re.NewStyle().Foreground(colorMuted)
	status := map[string]lipgloss.Style{
		"ok":      re.NewStyle().Foreground(colorOK),
		"failed":  re.NewStyle().Bold(true).Foreground(colorFail),
		"skipped": re.NewStyle().Foreground(colorSkip),
	}

	stats := Stats(r)
	labelWidth := len("benchmark")
	for _, s := range stats {
		labelWidth = max(labelWidth, lipgloss.Width(s.Label))
	}
	label := re.NewStyle().Width(labelWidth + 2)
	num := re.NewStyle().Width(12).Align(lipgloss.Right)

	var b strings.Builder
	b.WriteString(title.Render("Summary") + " " + muted.Render(r.RunID) + "\n")
	b.WriteString(muted.Render(
		label.Render("benchmark")+num.Render("runs")+num.Render("min ms")+num.Render("mean ms")+num.Render("max ms"),
	) + "\n")
	for _, s := range stats {
		b.WriteString(label.Render(s.Label) +
			num.Render(strconv.Itoa(s.Count)) +
			num.Render(humanfmt.MillisString(s.Min)) +
			num.Render(humanfmt.MillisString(s.Mean())) +
			num.Render(humanfmt.MillisString(s.Max)) + "\n")
	}

	b.WriteString("\n")
	name := re.NewStyle().Width(12)
	for _, st := range r.Steps {
		state := "ok"
		switch {
		case st.Failed():
			state = "failed"
		case st.Skipped:
			state = "skipped"
		}
		line := name.Render(st.Name) + status[state].Render(state)
		if st.Error != "" {
			line += " " + muted.Render(st.Error)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("\n%d steps, %d failed, total %s\n",
		len(r.Steps), len(r.Failed()), humanfmt.Duration(r.Duration)))

	_, err := io.WriteString(w, b.String())
	return err
}
