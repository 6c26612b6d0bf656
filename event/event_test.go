package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit(t *testing.T) {
	t.Run("stamps timestamp", func(t *testing.T) {
		ch := make(chan Event, 1)
		Emit(ch, Event{Type: RunStart})

		ev := <-ch
		assert.Equal(t, RunStart, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	})

	t.Run("does not block on a full channel", func(t *testing.T) {
		ch := make(chan Event, 1)
		Emit(ch, Event{Type: MessageDelta, Delta: "kept"})
		Emit(ch, Event{Type: MessageDelta, Delta: "dropped"})

		ev := <-ch
		assert.Equal(t, "kept", ev.Delta)

		select {
		case extra := <-ch:
			t.Fatalf("unexpected second event: %+v", extra)
		default:
		}
	})
}

func TestNewChannel(t *testing.T) {
	ch := NewChannel()
	require.NotNil(t, ch)
	assert.Equal(t, 256, cap(ch))
}
