package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

var (
	headerStyle    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorTeal)
	nodeStyle      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	componentStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// viewer draws a scrollable tree dump. Row 0 is the header, the rest is the tree.
type viewer struct {
	screen     tcell.Screen
	title      string
	lines      []string
	offset     int
	components bool
}

func newViewer(screen tcell.Screen, title string, lines []string) *viewer {
	return &viewer{
		screen:     screen,
		title:      title,
		lines:      lines,
		components: true,
	}
}

func (v *viewer) run() {
	v.draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		if v.handle(ev) {
			return
		}
		v.draw()
	}
}

// handle applies one event and reports whether the viewer should quit.
func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyUp:
			v.scroll(-1)
		case tcell.KeyDown:
			v.scroll(1)
		case tcell.KeyPgUp:
			v.scroll(-v.page())
		case tcell.KeyPgDn:
			v.scroll(v.page())
		case tcell.KeyHome:
			v.offset = 0
		case tcell.KeyEnd:
			v.scroll(len(v.lines))
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return true
			case 'k':
				v.scroll(-1)
			case 'j':
				v.scroll(1)
			case 'c':
				v.components = !v.components
			}
		}
	}
	return false
}

func (v *viewer) page() int {
	_, h := v.screen.Size()
	return max(h-1, 1)
}

func (v *viewer) scroll(delta int) {
	v.offset = max(min(v.offset+delta, len(v.lines)-v.page()), 0)
}

func (v *viewer) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()

	header := fmt.Sprintf(" %s  %d nodes  %d-%d ", v.title, len(v.lines), v.offset+1, min(v.offset+h-1, len(v.lines)))
	for x := range w {
		r := ' '
		if x < len(header) {
			r = rune(header[x])
		}
		v.screen.SetContent(x, 0, r, nil, headerStyle)
	}

	for row := 1; row < h; row++ {
		i := v.offset + row - 1
		if i >= len(v.lines) {
			break
		}
		name, comps, _ := strings.Cut(v.lines[i], " [")
		x := v.put(0, row, name, nodeStyle, w)
		if v.components && comps != "" {
			v.put(x, row, " ["+comps, componentStyle, w)
		}
	}
	v.screen.Show()
}

func (v *viewer) put(x, y int, s string, style tcell.Style, width int) int {
	for _, r := range s {
		if x >= width {
			break
		}
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
