package observ

import (
	"fmt"
	"time"
)

// Phase records the duration and metadata of one engine phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of engine phases within one update.
type Timer struct {
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary returns a human-readable line per tracked phase.
func (t *Timer) Summary() string {
	out := "timings:\n"
	var total time.Duration
	for _, p := range t.phases {
		out += fmt.Sprintf("  %-20s %7.2f ms", p.Name, float64(p.Dur.Microseconds())/1000)
		if p.Note != "" {
			out += "  // " + p.Note
		}
		out += "\n"
		total += p.Dur
	}
	out += fmt.Sprintf("  %-20s %7.2f ms\n", "total", float64(total.Microseconds())/1000)
	return out
}
