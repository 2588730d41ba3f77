package contextmenu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fakeClock                   { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }
func newResolver(c *fakeClock) *Resolver     { return New(WithClock(c.Now)) }

func TestBubbledCanvasClickInsideGuardIsIgnored(t *testing.T) {
	clock := newClock()
	r := newResolver(clock)

	assert.True(t, r.Show(geom.Pt(10, 10), DeviceTarget{DeviceID: 1}))
	clock.Advance(50 * time.Millisecond)
	assert.False(t, r.Show(geom.Pt(10, 10), CanvasTarget{}))

	assert.Equal(t, KindDevice, r.State().Kind())
	assert.Equal(t, DeviceTarget{DeviceID: 1}, r.State().Target)
}

func TestDifferentKindAfterGuardReplaces(t *testing.T) {
	clock := newClock()
	r := newResolver(clock)

	r.Show(geom.Pt(10, 10), DeviceTarget{DeviceID: 1})
	clock.Advance(GuardWindow)
	assert.True(t, r.Show(geom.Pt(20, 20), CanvasTarget{Position: geom.Pt(5, 5)}))
	assert.Equal(t, KindCanvas, r.State().Kind())
	assert.Equal(t, geom.Pt(20, 20), r.State().Position)
}

func TestSameKindInsideGuardReplaces(t *testing.T) {
	clock := newClock()
	r := newResolver(clock)

	r.Show(geom.Pt(0, 0), DeviceTarget{DeviceID: 1})
	clock.Advance(10 * time.Millisecond)
	assert.True(t, r.Show(geom.Pt(0, 0), DeviceTarget{DeviceID: 2}))
	assert.Equal(t, DeviceTarget{DeviceID: 2}, r.State().Target)
}

func TestOutsideClick(t *testing.T) {
	clock := newClock()
	r := newResolver(clock)

	assert.False(t, r.HandleOutsideClick(false), "nothing to close")

	r.Show(geom.Pt(0, 0), ConnectionTarget{ConnectionID: 3})
	assert.False(t, r.HandleOutsideClick(false), "guard window protects a fresh menu")

	clock.Advance(200 * time.Millisecond)
	assert.False(t, r.HandleOutsideClick(true), "clicks inside the menu keep it open")
	assert.True(t, r.State().Visible)

	assert.True(t, r.HandleOutsideClick(false))
	assert.Equal(t, KindNone, r.State().Kind())
}

func TestHideAllowsAnyKind(t *testing.T) {
	clock := newClock()
	r := newResolver(clock)

	r.Show(geom.Pt(0, 0), MultiDeviceTarget{DeviceIDs: []int{1, 2}})
	r.Hide()
	assert.True(t, r.Accepts(KindCanvas))
	assert.True(t, r.Show(geom.Pt(0, 0), CanvasTarget{}))
}

func TestNilTargetIsRejected(t *testing.T) {
	r := New()
	assert.False(t, r.Show(geom.Pt(0, 0), nil))
	assert.False(t, r.State().Visible)
}
