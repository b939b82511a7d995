package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/testmesh/core"
)

type recorder struct {
	mu     sync.Mutex
	events []core.Event
	cmds   []core.Command
}

func (r *recorder) OnEvent(_ context.Context, ev core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) OnCommand(_ context.Context, cmd core.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

func TestBus_PublishDeliversToAllSubscribersInOrder(t *testing.T) {
	b := New()
	r1, r2 := &recorder{}, &recorder{}
	b.Subscribe(r1)
	b.Subscribe(r2)

	ev1 := core.NewEvent("Keyword", "k1", "first", core.StatusFail, "")
	ev2 := core.NewEvent("Keyword", "k2", "second", core.StatusPass, "")
	require.NoError(t, b.Publish(context.Background(), ev1))
	require.NoError(t, b.Publish(context.Background(), ev2))
	b.Close()

	for _, r := range []*recorder{r1, r2} {
		require.Len(t, r.events, 2)
		assert.Equal(t, ev1.ID, r.events[0].ID)
		assert.Equal(t, ev2.ID, r.events[1].ID)
	}
}

func TestBus_PublishDoesNotWaitForSubscribers(t *testing.T) {
	b := New()
	release := make(chan struct{})
	b.Subscribe(SubscriberFunc(func(context.Context, core.Event) error {
		<-release
		return nil
	}))

	start := time.Now()
	require.NoError(t, b.Publish(context.Background(), core.NewEvent("Keyword", "k", "n", core.StatusFail, "")))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	b.Close()
}

func TestBus_SubscriberErrorsAndPanicsAreContained(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.Subscribe(SubscriberFunc(func(context.Context, core.Event) error { return errors.New("boom") }))
	b.Subscribe(SubscriberFunc(func(context.Context, core.Event) error { panic("kaboom") }))
	b.Subscribe(rec)

	require.NoError(t, b.Publish(context.Background(), core.NewEvent("Keyword", "k", "n", core.StatusFail, "")))
	b.Close()

	assert.Len(t, rec.events, 1)
}

func TestBus_CommandsTravelOnSeparateChannel(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.Subscribe(rec)
	b.SubscribeCommands(rec)

	require.NoError(t, b.PublishCommand(context.Background(), core.CommandPause, "sess-1", map[string]any{"reason": "popup"}))
	require.NoError(t, b.PublishCommand(context.Background(), core.CommandResume, "sess-1", nil))
	b.Close()

	assert.Empty(t, rec.events)
	require.Len(t, rec.cmds, 2)
	assert.Equal(t, core.CommandPause, rec.cmds[0].Type)
	assert.Equal(t, "popup", rec.cmds[0].Reason())
	assert.Equal(t, core.CommandResume, rec.cmds[1].Type)
	assert.Equal(t, "sess-1", rec.cmds[1].SessionID)
}

func TestBus_CommandsFromSubscribersDuringDrainAreDelivered(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.SubscribeCommands(rec)
	b.Subscribe(SubscriberFunc(func(ctx context.Context, ev core.Event) error {
		sid, _ := ev.SessionID()
		return b.PublishCommand(ctx, core.CommandPause, sid, nil)
	}))

	ev := core.NewEvent("Keyword", "k", "n", core.StatusFail, "").WithSession("sess-9")
	require.NoError(t, b.Publish(context.Background(), ev))
	b.Close()

	require.Len(t, rec.cmds, 1)
	assert.Equal(t, "sess-9", rec.cmds[0].SessionID)
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New()
	b.Close()
	b.Close()

	assert.ErrorIs(t, b.Publish(context.Background(), core.Event{}), ErrBusClosed)
	assert.ErrorIs(t, b.PublishCommand(context.Background(), core.CommandResume, "s", nil), ErrBusClosed)
}

func TestBus_PublishRespectsContextWhenQueueFull(t *testing.T) {
	b := New(func(o *Options) { o.QueueSize = 1 })
	release := make(chan struct{})
	b.Subscribe(SubscriberFunc(func(context.Context, core.Event) error {
		<-release
		return nil
	}))

	ev := core.NewEvent("Keyword", "k", "n", core.StatusFail, "")
	require.NoError(t, b.Publish(context.Background(), ev)) // picked up by the loop, blocks in subscriber
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), ev)) // fills the queue

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Publish(ctx, ev), context.DeadlineExceeded)

	close(release)
	b.Close()
}
