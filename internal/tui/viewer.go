// Package tui is a terminal canvas viewer. It drives the same engine as the
// browser: mouse gestures become pointer events and keys become shortcuts,
// with every terminal cell standing for a CellWidth x CellHeight block of
// screen pixels.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/engine"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/selection"
)

const (
	CellWidth  = 8.0
	CellHeight = 16.0

	panStep = 4 // cells
)

// SaveFunc persists the scene and returns a status message.
type SaveFunc func() (string, error)

var (
	styleShape    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDevice   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleLayer2   = tcell.StyleDefault.Foreground(tcell.ColorSteelBlue)
	styleLayer3   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStatus   = tcell.StyleDefault.Reverse(true)
)

type Viewer struct {
	screen tcell.Screen
	eng    *engine.Engine
	title  string
	save   SaveFunc

	status  string
	pressed bool
}

func New(screen tcell.Screen, eng *engine.Engine, title string, save SaveFunc) *Viewer {
	v := &Viewer{screen: screen, eng: eng, title: title, save: save}
	v.resize()
	return v
}

// Run draws and handles events until the user quits. The caller owns
// screen Init and Fini.
func (v *Viewer) Run() {
	v.screen.EnableMouse()
	for {
		v.Draw()
		v.screen.Show()

		if v.HandleEvent(v.screen.PollEvent()) {
			return
		}
	}
}

func (v *Viewer) Status() string { return v.status }

// HandleEvent applies one terminal event and reports whether to quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case nil:
		return true
	case *tcell.EventResize:
		v.resize()
		v.screen.Sync()
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	}
	return false
}

func (v *Viewer) resize() {
	w, h := v.screen.Size()
	// last row is the status line
	v.eng.SetViewportSize(geom.Size{Width: float64(w) * CellWidth, Height: float64(max(h-1, 0)) * CellHeight})
}

func modifiers(m tcell.ModMask) selection.Modifiers {
	return selection.Modifiers{
		Shift: m&tcell.ModShift != 0,
		Ctrl:  m&tcell.ModCtrl != 0,
		Meta:  m&tcell.ModMeta != 0,
		Alt:   m&tcell.ModAlt != 0,
	}
}

func (v *Viewer) handleKey(ev *tcell.EventKey) bool {
	mods := modifiers(ev.Modifiers())

	arrows := map[tcell.Key]struct {
		key engine.Key
		pan geom.Point
	}{
		tcell.KeyLeft:  {engine.KeyArrowLeft, geom.Pt(panStep*CellWidth, 0)},
		tcell.KeyRight: {engine.KeyArrowRight, geom.Pt(-panStep*CellWidth, 0)},
		tcell.KeyUp:    {engine.KeyArrowUp, geom.Pt(0, panStep*CellHeight)},
		tcell.KeyDown:  {engine.KeyArrowDown, geom.Pt(0, -panStep*CellHeight)},
	}
	if a, ok := arrows[ev.Key()]; ok {
		// Arrows move the selection; with nothing selected they pan.
		if !v.eng.KeyDown(a.key, mods) {
			v.eng.PanBy(a.pan)
		}
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyEscape:
		v.eng.KeyDown(engine.KeyEscape, mods)
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := v.eng.DeleteSelection(); n > 0 {
			v.status = fmt.Sprintf("deleted %d", n)
		}
	case tcell.KeyCtrlA:
		v.eng.KeyDown(engine.KeySelectAll, selection.Modifiers{Ctrl: true})
	case tcell.KeyRune:
		return v.handleRune(ev.Rune())
	}
	return false
}

func (v *Viewer) handleRune(r rune) bool {
	switch r {
	case 'q':
		return true
	case '+', '=':
		v.eng.Zoom(1.25)
	case '-':
		v.eng.Zoom(0.8)
	case 'f':
		v.eng.FitToContent()
	case '0':
		v.eng.ResetView()
	case '2', '3':
		name := "layer" + string(r) + "-links"
		visible := !v.eng.LayerVisibility()[name]
		v.eng.SetLayerVisible(name, visible)
		v.status = fmt.Sprintf("%s %s", name, onOff(visible))
	case 'c':
		if _, err := v.eng.ConnectSelected(""); err != nil {
			v.status = err.Error()
		} else {
			v.status = "connected"
		}
	case 's':
		if v.save == nil {
			v.status = "saving is not available"
			return false
		}
		msg, err := v.save()
		if err != nil {
			v.status = "save failed: " + err.Error()
		} else {
			v.status = msg
		}
	}
	return false
}

func (v *Viewer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	p := cellCenter(x, y)
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		v.eng.Wheel(p, -1)
	case buttons&tcell.WheelDown != 0:
		v.eng.Wheel(p, 1)
	case buttons&tcell.Button1 != 0:
		if !v.pressed {
			v.pressed = true
			v.eng.PointerDown(p, modifiers(ev.Modifiers()))
		} else {
			v.eng.PointerMove(p)
		}
	case v.pressed:
		v.pressed = false
		v.eng.PointerUp(p)
	}
}

func cellCenter(x, y int) geom.Point {
	return geom.Pt((float64(x)+0.5)*CellWidth, (float64(y)+0.5)*CellHeight)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// --- Drawing ---

// Draw paints the scene and status line. It does not call Show.
func (v *Viewer) Draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	if h < 2 {
		return
	}

	view := v.eng.View()
	toCell := func(p geom.Point) (int, int) {
		sx := p.X*view.Scale + view.Offset.X
		sy := p.Y*view.Scale + view.Offset.Y
		return int(math.Floor(sx / CellWidth)), int(math.Floor(sy / CellHeight))
	}
	c := canvas{screen: v.screen, w: w, h: h - 1}

	data := v.eng.Snapshot()
	sel := v.eng.Selection()
	layers := v.eng.LayerVisibility()

	if layers["background-shapes"] || layers["device-shapes"] {
		for _, s := range data.Shapes {
			b := s.Bounds()
			x0, y0 := toCell(geom.Pt(b.X, b.Y))
			x1, y1 := toCell(geom.Pt(b.Right(), b.Bottom()))
			c.box(x0, y0, x1, y1, '.', '.', '.', styleShape)
		}
	}

	for _, p := range v.eng.Paths() {
		style, name := styleLayer2, "layer2-links"
		if p.Layer == document.LinkLayer3 {
			style, name = styleLayer3, "layer3-links"
		}
		if !layers[name] {
			continue
		}
		if sel.Connection == p.ConnectionID {
			style = styleSelected
		}
		for i := 1; i < len(p.Points); i++ {
			x0, y0 := toCell(p.Points[i-1])
			x1, y1 := toCell(p.Points[i])
			c.line(x0, y0, x1, y1, style)
		}
	}

	if layers["devices"] {
		for _, d := range data.Devices {
			style := styleDevice
			if containsInt(sel.Devices, d.ID) {
				style = styleSelected
			}
			b := d.Bounds()
			x0, y0 := toCell(geom.Pt(b.X, b.Y))
			x1, y1 := toCell(geom.Pt(b.Right(), b.Bottom()))
			c.box(x0, y0, x1, y1, '+', '-', '|', style)
			c.text((x0+x1)/2-len(d.Name)/2, y1+1, d.Name, style)
		}
	}

	v.drawStatus(w, h-1, len(data.Devices), len(data.Connections), view.Scale)
}

func (v *Viewer) drawStatus(w, y, devices, links int, scale float64) {
	parts := []string{
		v.title,
		fmt.Sprintf("zoom %.0f%%", scale*100),
		fmt.Sprintf("%d devices %d links", devices, links),
	}
	if v.status != "" {
		parts = append(parts, v.status)
	}
	line := " " + strings.Join(parts, " | ")
	for x := 0; x < w; x++ {
		r := ' '
		if x < len(line) {
			r = rune(line[x])
		}
		v.screen.SetContent(x, y, r, nil, styleStatus)
	}
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// canvas clips drawing to the scene area.
type canvas struct {
	screen tcell.Screen
	w, h   int
}

func (c canvas) set(x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.screen.SetContent(x, y, r, nil, style)
}

func (c canvas) box(x0, y0, x1, y1 int, corner, hz, vt rune, style tcell.Style) {
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, hz, style)
		c.set(x, y1, hz, style)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, vt, style)
		c.set(x1, y, vt, style)
	}
	for _, p := range [][2]int{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		c.set(p[0], p[1], corner, style)
	}
}

func (c canvas) text(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r, style)
	}
}

// line draws a Bresenham line picking a glyph from the overall slope.
func (c canvas) line(x0, y0, x1, y1 int, style tcell.Style) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	var glyph rune
	switch {
	case dy == 0:
		glyph = '-'
	case dx == 0:
		glyph = '|'
	case sx == sy:
		glyph = '\\'
	default:
		glyph = '/'
	}

	err := dx + dy
	for {
		c.set(x0, y0, glyph, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
