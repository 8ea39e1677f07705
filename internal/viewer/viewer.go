// Package viewer renders a single file in the terminal with identifier
// references highlighted from the decoration cache.
package viewer

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/refstorm/internal/token"
)

// Session is the slice of the application service the viewer drives.
type Session interface {
	ReadFile(path string) ([]byte, error)
	ActivateFile(path string, lineCount, firstVisible, lastVisible int)
	VisibleRange(path string, firstVisible, lastVisible int)
	CurrentDecorations(path string) []token.Range
}

// Viewer is a read-only scrolling view of one file.
type Viewer struct {
	svc   Session
	path  string
	lines []string
	top   int

	screen tcell.Screen
}

// New loads the file through the service's content source and prepares a
// viewer for it.
func New(svc Session, path string) (*Viewer, error) {
	data, err := svc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	return &Viewer{svc: svc, path: path, lines: lines}, nil
}

// Run takes over the terminal until the user quits.
func (v *Viewer) Run() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	v.screen = screen
	defer screen.Fini()

	_, height := screen.Size()
	v.svc.ActivateFile(v.path, len(v.lines), 0, v.contentHeight(height)-1)

	for {
		v.draw()

		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			v.reportViewport()
		case *tcell.EventKey:
			if v.handleKey(ev) {
				return nil
			}
		}
	}
}

// handleKey applies one key event; it returns true to quit.
func (v *Viewer) handleKey(ev *tcell.EventKey) bool {
	_, height := v.screen.Size()
	page := v.contentHeight(height)

	switch {
	case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
		return true
	case ev.Key() == tcell.KeyUp || ev.Rune() == 'k':
		v.scrollTo(v.top - 1)
	case ev.Key() == tcell.KeyDown || ev.Rune() == 'j':
		v.scrollTo(v.top + 1)
	case ev.Key() == tcell.KeyPgUp || ev.Key() == tcell.KeyCtrlB:
		v.scrollTo(v.top - page)
	case ev.Key() == tcell.KeyPgDn || ev.Key() == tcell.KeyCtrlF:
		v.scrollTo(v.top + page)
	case ev.Rune() == 'g':
		v.scrollTo(0)
	case ev.Rune() == 'G':
		v.scrollTo(len(v.lines))
	}
	return false
}

// scrollTo clamps and applies a new top line, reporting the viewport so the
// decoration cache can follow.
func (v *Viewer) scrollTo(top int) {
	_, height := v.screen.Size()
	maxTop := len(v.lines) - v.contentHeight(height)
	if top > maxTop {
		top = maxTop
	}
	if top < 0 {
		top = 0
	}
	if top == v.top {
		return
	}
	v.top = top
	v.reportViewport()
}

// reportViewport pushes the visible line range to the decoration cache.
func (v *Viewer) reportViewport() {
	_, height := v.screen.Size()
	last := v.top + v.contentHeight(height) - 1
	if max := len(v.lines) - 1; last > max {
		last = max
	}
	v.svc.VisibleRange(v.path, v.top, last)
}

// contentHeight is the screen height minus the status line.
func (v *Viewer) contentHeight(height int) int {
	if height <= 1 {
		return 1
	}
	return height - 1
}

// draw renders the visible lines with decorations applied.
func (v *Viewer) draw() {
	width, height := v.screen.Size()
	v.screen.Clear()

	base := tcell.StyleDefault
	mark := base.Foreground(tcell.ColorYellow).Underline(true)

	ranges := v.svc.CurrentDecorations(v.path)
	byLine := make(map[int][]token.Range)
	for _, r := range ranges {
		byLine[r.Line] = append(byLine[r.Line], r)
	}

	rows := v.contentHeight(height)
	for row := 0; row < rows; row++ {
		lineNo := v.top + row
		if lineNo >= len(v.lines) {
			break
		}
		line := v.lines[lineNo]
		x := 0
		// Range columns are byte offsets; col tracks bytes while x tracks
		// screen cells, so multi-byte runes do not shift the highlights.
		for col, ch := range line {
			if x >= width {
				break
			}
			style := base
			for _, r := range byLine[lineNo] {
				if col >= r.StartCol && col < r.EndCol {
					style = mark
					break
				}
			}
			v.screen.SetContent(x, row, ch, nil, style)
			x++
		}
	}

	v.drawStatus(width, height, len(ranges))
	v.screen.Show()
}

// drawStatus renders the bottom status line.
func (v *Viewer) drawStatus(width, height, marks int) {
	status := fmt.Sprintf(" %s  line %d/%d  %d refs  (q to quit)", v.path, v.top+1, len(v.lines), marks)
	style := tcell.StyleDefault.Reverse(true)
	for col := 0; col < width; col++ {
		ch := ' '
		if col < len(status) {
			ch = rune(status[col])
		}
		v.screen.SetContent(col, height-1, ch, nil, style)
	}
}
