package tui

import (
	"sync"

	"github.com/mmcdole/haul/internal/queue"
)

// ChannelObserver adapts queue.Observer to a channel for Bubble Tea.
// The channel holds at most one state; a newer state replaces an unread one
// and older states are dropped.
type ChannelObserver struct {
	mu   sync.Mutex
	ch   chan queue.ViewState
	last uint64
}

// NewChannelObserver creates a new channel-based observer
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan queue.ViewState, 1)}
}

// Updates returns the channel the model listens on
func (o *ChannelObserver) Updates() <-chan queue.ViewState {
	return o.ch
}

// OnQueueUpdate publishes state without blocking the synchronizer
func (o *ChannelObserver) OnQueueUpdate(state queue.ViewState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if state.Seq <= o.last {
		return
	}
	o.last = state.Seq

	select {
	case <-o.ch: // Drop the unread older state
	default:
	}
	o.ch <- state
}
