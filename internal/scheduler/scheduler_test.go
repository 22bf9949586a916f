package scheduler

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/habii/habii-server/internal/relay"
	"github.com/habii/habii-server/internal/testutil"
	"github.com/habii/habii-server/internal/types"
)

func newTestScheduler(t *testing.T) (*Scheduler, *clockwork.FakeClock, chan Transition) {
	clock := clockwork.NewFakeClock()
	sched := New(testutil.TestLogger(t), clock, "abc123", map[types.AnimationType]Asset{
		types.AnimationFeed: {Duration: time.Second},
	})

	transitions := make(chan Transition, 16)
	unsubscribe := sched.Subscribe(func(tr Transition) {
		transitions <- tr
	})
	t.Cleanup(unsubscribe)

	return sched, clock, transitions
}

func event(clock clockwork.Clock, animation types.AnimationType, in time.Duration) *relay.AnimationEvent {
	return &relay.AnimationEvent{
		Type:        animation,
		CreatureId:  "abc123",
		UserId:      1,
		Username:    "alice",
		ScheduledAt: clock.Now().Add(in).UnixMilli(),
	}
}

func nextTransition(t *testing.T, transitions chan Transition) Transition {
	t.Helper()
	select {
	case tr := <-transitions:
		return tr
	case <-time.After(time.Second):
		t.Fatal("expected a state transition")
		return Transition{}
	}
}

func assertNoTransition(t *testing.T, transitions chan Transition) {
	t.Helper()
	select {
	case tr := <-transitions:
		t.Fatalf("expected no transition, got %s %s", tr.State, tr.Animation)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerPlaybackChain(t *testing.T) {
	sched, clock, transitions := newTestScheduler(t)

	sched.Handle(event(clock, types.AnimationFeed, 250*time.Millisecond))
	assert.Equal(t, StateIdle, sched.State(), "expected playback to wait for the scheduled instant")

	clock.Advance(250 * time.Millisecond)

	tr := nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningIn, tr.State)
	assert.Equal(t, "feed", tr.Animation)

	clock.Advance(TransitionDuration)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StatePlaying, tr.State)
	assert.Equal(t, "feed", tr.Animation)

	// the feed asset plays for its configured one second
	clock.Advance(time.Second)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningOut, tr.State)
	assert.Equal(t, BaselineAnimation, tr.Animation)

	clock.Advance(TransitionDuration)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StateIdle, tr.State)
	assert.Equal(t, BaselineAnimation, tr.Animation)
	assert.Equal(t, BaselineAnimation, sched.Current())
}

func TestSchedulerDropsWhileBusy(t *testing.T) {
	sched, clock, transitions := newTestScheduler(t)

	sched.Handle(event(clock, types.AnimationFeed, 0))
	tr := nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningIn, tr.State)

	clock.Advance(TransitionDuration)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StatePlaying, tr.State)

	// a second event arriving mid-playback is dropped, not queued
	sched.Handle(event(clock, types.AnimationPet, 0))
	assertNoTransition(t, transitions)
	assert.Equal(t, StatePlaying, sched.State())
	assert.Equal(t, "feed", sched.Current())

	clock.Advance(time.Second)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningOut, tr.State)

	clock.Advance(TransitionDuration)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StateIdle, tr.State)

	// nothing further plays: the dropped event is gone
	clock.Advance(10 * time.Second)
	assertNoTransition(t, transitions)
}

func TestSchedulerIgnoresOtherCreatures(t *testing.T) {
	sched, clock, transitions := newTestScheduler(t)

	ev := event(clock, types.AnimationFeed, 0)
	ev.CreatureId = "someone-else"
	sched.Handle(ev)

	assertNoTransition(t, transitions)
	assert.Equal(t, StateIdle, sched.State())
}

func TestSchedulerStaleEvents(t *testing.T) {
	t.Run("slightly late events play immediately", func(t *testing.T) {
		sched, clock, transitions := newTestScheduler(t)

		sched.Handle(event(clock, types.AnimationFeed, -time.Second))

		tr := nextTransition(t, transitions)
		assert.Equal(t, StateTransitioningIn, tr.State)
	})

	t.Run("events older than the staleness bound are discarded", func(t *testing.T) {
		sched, clock, transitions := newTestScheduler(t)

		sched.Handle(event(clock, types.AnimationFeed, -(MaxStaleness + time.Second)))

		assertNoTransition(t, transitions)
		assert.Equal(t, StateIdle, sched.State())
	})
}

func TestSchedulerLastEventWins(t *testing.T) {
	sched, clock, transitions := newTestScheduler(t)

	sched.Handle(event(clock, types.AnimationFeed, 300*time.Millisecond))
	sched.Handle(event(clock, types.AnimationPet, 100*time.Millisecond))

	clock.Advance(300 * time.Millisecond)

	tr := nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningIn, tr.State)
	assert.Equal(t, "pet", tr.Animation, "expected the later event to supersede the armed one")
	assertNoTransition(t, transitions)
}

func TestSchedulerMediaDuration(t *testing.T) {
	sched, clock, transitions := newTestScheduler(t)

	ev := event(clock, types.AnimationMedia, 0)
	ev.Media = &relay.MediaPayload{Kind: "video", Src: "https://example.com/clip.mp4", DurationMs: 500}
	sched.Handle(ev)

	tr := nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningIn, tr.State)

	clock.Advance(TransitionDuration)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StatePlaying, tr.State)
	assert.Equal(t, "media", tr.Animation)

	// the media clip's own duration bounds the playing phase
	clock.Advance(500 * time.Millisecond)
	tr = nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningOut, tr.State)
}

func TestSchedulerStop(t *testing.T) {
	sched, clock, transitions := newTestScheduler(t)

	sched.Handle(event(clock, types.AnimationFeed, 0))
	tr := nextTransition(t, transitions)
	assert.Equal(t, StateTransitioningIn, tr.State)

	sched.Stop()
	tr = nextTransition(t, transitions)
	assert.Equal(t, StateIdle, tr.State)

	// the canceled chain never resumes
	clock.Advance(10 * time.Second)
	assertNoTransition(t, transitions)
}

func TestSchedulerUnsubscribe(t *testing.T) {
	sched := New(testutil.TestLogger(t), clockwork.NewFakeClock(), "abc123", nil)

	calls := 0
	unsubscribe := sched.Subscribe(func(Transition) { calls++ })
	unsubscribe()

	notify := sched.transitionLocked(StatePlaying, "feed")
	notify()
	assert.Zero(t, calls, "expected no callbacks after unsubscribing")
}
