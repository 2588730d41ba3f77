package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCanvasID(t *testing.T) {
	id := NewCanvasID()
	assert.True(t, strings.HasPrefix(id, "canvas_"), id)
	assert.NoError(t, Validate(id, PrefixCanvas))
	assert.NotEqual(t, id, NewCanvasID())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(NewUserID(), PrefixCanvas), ErrWrongPrefix)
	assert.Error(t, Validate("not-an-id", PrefixUser))
}

func TestIsCanvasID(t *testing.T) {
	assert.True(t, IsCanvasID(NewCanvasID()))
	assert.False(t, IsCanvasID(NewUserID()))
	assert.False(t, IsCanvasID("core-lab"))
	assert.False(t, IsCanvasID("canvas_missing"))
}
