package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"

	"github.com/wippyai/objbridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// report summarizes a run for printing.
type report struct {
	Stats objbridge.Stats `yaml:"stats"`
	Leaks []leakEntry     `yaml:"leaks,omitempty"`
	Calls int             `yaml:"calls"`
}

type leakEntry struct {
	Handle string `yaml:"handle"`
	Type   string `yaml:"type"`
	State  string `yaml:"state"`
	Trace  string `yaml:"trace,omitempty"`
	Refs   int32  `yaml:"refs"`
}

func newReport(rt *objbridge.Runtime, calls int) report {
	r := report{Stats: rt.Stats(), Calls: calls}
	for _, l := range rt.Leaks() {
		r.Leaks = append(r.Leaks, leakEntry{
			Handle: l.Handle.String(),
			Type:   l.Type,
			State:  l.State.String(),
			Refs:   l.Refs,
			Trace:  l.Trace,
		})
	}
	return r
}

func (r report) writeYAML(w io.Writer) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func (r report) render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge Report"))
	b.WriteString("\n\n")

	m := r.Stats.Memory
	fmt.Fprintf(&b, "calls:        %s\n", resultStyle.Render(fmt.Sprint(r.Calls)))
	fmt.Fprintf(&b, "allocations:  %d (%d freed)\n", m.Allocs, m.Frees)
	fmt.Fprintf(&b, "live bytes:   %d (peak %d)\n", m.LiveBytes, m.PeakBytes)
	fmt.Fprintf(&b, "live objects: %d\n", r.Stats.Objects)

	types := make([]string, 0, len(r.Stats.ByType))
	for t := range r.Stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %s %d\n", typeStyle.Render(t), r.Stats.ByType[t])
	}

	if len(r.Leaks) == 0 {
		b.WriteString("\n")
		b.WriteString(resultStyle.Render("no leaks"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(errorStyle.Render(fmt.Sprintf("%d leaked objects", len(r.Leaks))))
	b.WriteString("\n")
	for _, l := range r.Leaks {
		fmt.Fprintf(&b, "  %s %s refs=%d %s\n", l.Handle, typeStyle.Render(l.Type), l.Refs, l.State)
		if l.Trace != "" {
			b.WriteString(helpStyle.Render(l.Trace))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatValue renders an exported value tree on one line per element.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("%v", v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}
