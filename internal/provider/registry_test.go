package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Ordered(t *testing.T) {
	r := NewRegistry()
	generic := &fakeSource{name: "generic"}
	goLow := &fakeSource{name: "go-low"}
	goHigh := &fakeSource{name: "go-high"}
	pyOnly := &fakeSource{name: "python"}

	r.Register("generic", generic, 10, AnyLanguage)
	r.Register("go-low", goLow, 5, "go")
	r.Register("go-high", goHigh, 10, "go")
	r.Register("python", pyOnly, 20, "python")

	assert.Equal(t, []SyntaxSource{goHigh, generic, goLow}, r.Ordered("go"))
	assert.Equal(t, []string{"go-high", "generic", "go-low"}, r.Names("go"))
	assert.Equal(t, []SyntaxSource{generic}, r.Ordered("rust"))
	assert.True(t, r.Has("rust"))
}

func TestRegistry_StableWithinScore(t *testing.T) {
	r := NewRegistry()
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b"}
	r.Register("", a, 1, "go")
	r.Register("", b, 1, "go")

	assert.Equal(t, []string{"a", "b"}, r.Names("go"))
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	unregister := r.Register("x", &fakeSource{}, 1, "go")
	assert.True(t, r.Has("go"))

	unregister()
	assert.False(t, r.Has("go"))
	assert.Empty(t, r.Ordered("go"))
	unregister()
}
