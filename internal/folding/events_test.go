package folding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_OrderAndUnsubscribe(t *testing.T) {
	var e Emitter[int]
	var got []string

	unsubA := e.Subscribe(func(v int) { got = append(got, "a"+itoa(v)) })
	e.Subscribe(func(v int) { got = append(got, "b"+itoa(v)) })

	e.Emit(1)
	unsubA()
	e.Emit(2)

	assert.Equal(t, []string{"a1", "b1", "b2"}, got)
	assert.Equal(t, 1, e.Len())

	e.Clear()
	assert.Equal(t, 0, e.Len())
}

func TestEmitter_ReentrantSubscribe(t *testing.T) {
	var e Emitter[string]
	calls := 0
	e.Subscribe(func(string) {
		calls++
		e.Subscribe(func(string) { calls++ })
	})

	e.Emit("x")
	assert.Equal(t, 1, calls)
	e.Emit("y")
	assert.Equal(t, 3, calls)
}

func TestGutterMarkers(t *testing.T) {
	m := modelWith(20,
		fr(1, 10),
		fr(1, 4),
		fr(2, 3),
		FoldRange{StartLine: 12, EndLine: 15, Source: SourceUserDefined},
		FoldRange{StartLine: 16, EndLine: 19, Source: SourceUserDefined, Collapsed: true},
	)
	m.SetCollapseState([]Region{m.Regions().ToRegion(1)}, true)
	h := NewHiddenRangeModel(m)

	markers := GutterMarkers(m.Regions(), h.IsHidden)

	assert.Equal(t, []LineMarker{
		{Line: 1, Marker: MarkerExpanded},
		{Line: 2, Marker: MarkerHidden},
		{Line: 12, Marker: MarkerExpandedManual},
		{Line: 16, Marker: MarkerCollapsedManual},
	}, markers)
	assert.Equal(t, "collapsed-manual", MarkerCollapsedManual.String())
	assert.Equal(t, "unknown", GutterMarker(99).String())
}
