// Package progress reports batch generation progress. On a terminal it
// redraws one bar in place; otherwise it prints a line every tenth of the
// total so logs stay readable.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	barWidth       = 20
	barFilled      = "█"
	barEmpty       = "░"
	carriageReturn = "\r"
)

// Bar tracks progress over a known number of steps. It is safe for
// concurrent use.
type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	message string
	total   int
	current int
	tty     bool
	start   time.Time
	last    int // length of the last inline render
	done    bool
}

// New returns a started bar writing to w. TTY mode is detected from w.
func New(w io.Writer, total int, message string) *Bar {
	return NewWithTTY(w, total, message, isTerminal(w))
}

// NewWithTTY returns a started bar with an explicit TTY mode.
func NewWithTTY(w io.Writer, total int, message string, tty bool) *Bar {
	if total < 1 {
		total = 1
	}
	b := &Bar{w: w, message: message, total: total, tty: tty, start: time.Now()}
	b.mu.Lock()
	b.render()
	b.mu.Unlock()
	return b
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Current returns the number of completed steps.
func (b *Bar) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Increment advances the bar by one step.
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done || b.current >= b.total {
		return
	}
	b.current++
	if b.tty || b.current == b.total || b.current%(b.total/10+1) == 0 {
		b.render()
	}
}

// Finish ends the bar. In TTY mode the final render is terminated with a
// newline.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	if b.tty {
		fmt.Fprintln(b.w)
	}
}

// render writes the current state. Caller must hold the mutex.
func (b *Bar) render() {
	line := b.line()
	if !b.tty {
		fmt.Fprintln(b.w, line)
		return
	}
	if b.last > 0 {
		fmt.Fprint(b.w, carriageReturn+strings.Repeat(" ", b.last)+carriageReturn)
	}
	fmt.Fprint(b.w, line)
	b.last = len(line)
}

// line formats: Message [████████░░░░░░░░░░░░] 40% (8/20) 1.2s
func (b *Bar) line() string {
	filled := b.current * barWidth / b.total
	var sb strings.Builder
	if b.message != "" {
		sb.WriteString(b.message)
		sb.WriteString(" ")
	}
	sb.WriteString("[")
	sb.WriteString(strings.Repeat(barFilled, filled))
	sb.WriteString(strings.Repeat(barEmpty, barWidth-filled))
	fmt.Fprintf(&sb, "] %d%% (%d/%d) %s", b.current*100/b.total, b.current, b.total,
		time.Since(b.start).Round(100*time.Millisecond))
	return sb.String()
}
