package keystroke

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnown(t *testing.T) {
	assert.True(t, Known("F16"))
	assert.True(t, Known("f19"))
	assert.True(t, Known(" pageup "))
	assert.False(t, Known("F25"))
	assert.False(t, Known("HYPER"))
}

func TestModifier(t *testing.T) {
	m, ok := Modifier("Cmd")
	assert.True(t, ok)
	assert.Equal(t, "meta", m)

	_, ok = Modifier("fn")
	assert.False(t, ok)
}

func TestKeyNames_SortedAndComplete(t *testing.T) {
	names := KeyNames()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "F24")
	assert.Contains(t, names, "Z")
	assert.Contains(t, names, "0")
}
