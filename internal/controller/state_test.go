package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateUninitialized, StateEnabled, true},
		{StateUninitialized, StateActive, false},
		{StateEnabled, StateActive, true},
		{StateEnabled, StateComputing, false},
		{StateActive, StateComputing, true},
		{StateActive, StateEnabled, true},
		{StateComputing, StateActive, true},
		{StateComputing, StateUninitialized, true},
		{StateComputing, StateComputing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := tt.from.CanTransition(tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestState_HasModel(t *testing.T) {
	assert.False(t, StateUninitialized.HasModel())
	assert.False(t, StateEnabled.HasModel())
	assert.True(t, StateActive.HasModel())
	assert.True(t, StateComputing.HasModel())
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(100*time.Millisecond, time.Second)
	assert.Equal(t, 100*time.Millisecond, d.Delay("indent"))

	assert.Equal(t, 100*time.Millisecond, d.Update("indent", 10*time.Millisecond))
	assert.Equal(t, 255*time.Millisecond, d.Update("indent", 500*time.Millisecond))
	assert.Equal(t, time.Second, d.Update("syntax", 3*time.Second))
	assert.Equal(t, 255*time.Millisecond, d.Delay("indent"))
}

func TestDebouncer_SlidingWindow(t *testing.T) {
	d := NewDebouncer(0, time.Hour)
	for i := 0; i < debounceWindow; i++ {
		d.Update("p", time.Second)
	}
	for i := 0; i < debounceWindow; i++ {
		d.Update("p", 2*time.Second)
	}
	assert.Equal(t, 2*time.Second, d.Delay("p"))
}

func TestDebouncer_MaxBelowMin(t *testing.T) {
	d := NewDebouncer(time.Second, time.Millisecond)
	assert.Equal(t, time.Second, d.Update("p", time.Hour))
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{MaxRegions: 10}.withDefaults()
	assert.Equal(t, 10, cfg.MaxRegions)
	assert.Equal(t, StrategyAuto, cfg.Strategy)
	assert.Equal(t, DefaultConfig().MaxDocumentLines, cfg.MaxDocumentLines)
}
