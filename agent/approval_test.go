package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/zPy52/taichat"
)

func TestGate(t *testing.T) {
	t.Run("approve resolves request", func(t *testing.T) {
		g := NewGate()
		call := ai.ToolCall{ID: "call-1", Name: "write_file"}

		done := make(chan Decision, 1)
		go func() {
			d, err := g.Request(context.Background(), call)
			require.NoError(t, err)
			done <- d
		}()

		// Wait for the call to become pending.
		require.Eventually(t, func() bool {
			_, ok := g.Pending()
			return ok
		}, time.Second, time.Millisecond)

		assert.True(t, g.Approve("call-1"))
		assert.Equal(t, DecisionApproved, <-done)
	})

	t.Run("deny resolves request", func(t *testing.T) {
		g := NewGate()

		done := make(chan Decision, 1)
		go func() {
			d, _ := g.Request(context.Background(), ai.ToolCall{ID: "call-2"})
			done <- d
		}()

		require.Eventually(t, func() bool {
			_, ok := g.Pending()
			return ok
		}, time.Second, time.Millisecond)

		assert.True(t, g.Deny("call-2"))
		assert.Equal(t, DecisionDenied, <-done)
	})

	t.Run("duplicate resolution is a no-op", func(t *testing.T) {
		g := NewGate()

		done := make(chan Decision, 1)
		go func() {
			d, _ := g.Request(context.Background(), ai.ToolCall{ID: "call-3"})
			done <- d
		}()

		require.Eventually(t, func() bool {
			_, ok := g.Pending()
			return ok
		}, time.Second, time.Millisecond)

		assert.True(t, g.Approve("call-3"))
		// The second decision must not override or panic.
		assert.False(t, g.Deny("call-3"))
		assert.False(t, g.Approve("call-3"))

		assert.Equal(t, DecisionApproved, <-done)
	})

	t.Run("unknown call id is a no-op", func(t *testing.T) {
		g := NewGate()
		assert.False(t, g.Approve("nope"))
		assert.False(t, g.Deny("nope"))
	})

	t.Run("wrong call id leaves request pending", func(t *testing.T) {
		g := NewGate()

		done := make(chan Decision, 1)
		go func() {
			d, _ := g.Request(context.Background(), ai.ToolCall{ID: "call-4"})
			done <- d
		}()

		require.Eventually(t, func() bool {
			_, ok := g.Pending()
			return ok
		}, time.Second, time.Millisecond)

		assert.False(t, g.Approve("other"))
		_, stillPending := g.Pending()
		assert.True(t, stillPending)

		g.Approve("call-4")
		assert.Equal(t, DecisionApproved, <-done)
	})

	t.Run("context cancellation unblocks request", func(t *testing.T) {
		g := NewGate()
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			_, err := g.Request(ctx, ai.ToolCall{ID: "call-5"})
			errCh <- err
		}()

		require.Eventually(t, func() bool {
			_, ok := g.Pending()
			return ok
		}, time.Second, time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-errCh, context.Canceled)

		// A late decision after cancellation is ignored.
		assert.False(t, g.Approve("call-5"))
	})

	t.Run("second concurrent request rejected", func(t *testing.T) {
		g := NewGate()

		go g.Request(context.Background(), ai.ToolCall{ID: "first"})
		require.Eventually(t, func() bool {
			_, ok := g.Pending()
			return ok
		}, time.Second, time.Millisecond)

		_, err := g.Request(context.Background(), ai.ToolCall{ID: "second"})
		assert.ErrorIs(t, err, ErrApprovalInFlight)

		g.Approve("first")
	})

	t.Run("on request callback fires", func(t *testing.T) {
		seen := make(chan ai.ToolCall, 1)
		g := NewGate(WithOnRequest(func(call ai.ToolCall) {
			seen <- call
		}))

		go g.Request(context.Background(), ai.ToolCall{ID: "call-6", Name: "execute_command"})

		call := <-seen
		assert.Equal(t, "call-6", call.ID)
		assert.Equal(t, "execute_command", call.Name)

		g.Deny("call-6")
	})

	t.Run("resolves synchronously from the request callback", func(t *testing.T) {
		// A UI may decide inside the callback itself, before Request
		// reaches its select. The buffered decision channel makes that
		// safe without any event round trip.
		var g *Gate
		g = NewGate(WithOnRequest(func(call ai.ToolCall) {
			assert.True(t, g.Approve(call.ID))
		}))

		d, err := g.Request(context.Background(), ai.ToolCall{ID: "call-7"})
		require.NoError(t, err)
		assert.Equal(t, DecisionApproved, d)
	})

	t.Run("pending is empty when idle", func(t *testing.T) {
		g := NewGate()
		_, ok := g.Pending()
		assert.False(t, ok)
	})
}
