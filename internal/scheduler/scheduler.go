// Package scheduler drives a creature's animation playback from synchronized
// relay events. Every viewer runs the same state machine against the same
// shared wall-clock instants, so playback lines up across screens without any
// further coordination.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/habii/habii-server/internal/relay"
	"github.com/habii/habii-server/internal/types"
)

// State is the current phase of the playback state machine.
type State int

const (
	// StateIdle plays the looping baseline animation.
	StateIdle State = iota
	// StateTransitioningIn blends from the baseline into the triggered
	// animation.
	StateTransitioningIn
	// StatePlaying runs the triggered animation.
	StatePlaying
	// StateTransitioningOut blends back to the baseline.
	StateTransitioningOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransitioningIn:
		return "transitioning_in"
	case StatePlaying:
		return "playing"
	case StateTransitioningOut:
		return "transitioning_out"
	}
	return "unknown"
}

const (
	// BaselineAnimation loops whenever nothing else is playing.
	BaselineAnimation = "walking"
	// TransitionDuration is how long each blend phase lasts.
	TransitionDuration = 300 * time.Millisecond
	// DefaultPlayDuration is used when neither the event's media nor the
	// asset table specifies one.
	DefaultPlayDuration = 2 * time.Second
	// MaxStaleness bounds how far in the past an event's scheduled instant
	// may be and still start playback. Anything older is discarded; starting
	// it late would break the synchronization it exists for.
	MaxStaleness = 5 * time.Second
)

// Asset describes one playable animation.
type Asset struct {
	Duration time.Duration
	Loop     bool
}

// Transition is delivered to subscribers on every state change.
type Transition struct {
	State     State
	Animation string
	At        time.Time
}

// Scheduler turns relay animation events into a timed sequence of state
// transitions. Events for other creatures are ignored, and events arriving
// while an animation is in flight are dropped rather than queued: the next
// trigger after the creature returns to idle wins.
type Scheduler struct {
	log        *log.Logger
	clock      clockwork.Clock
	creatureId string
	assets     map[types.AnimationType]Asset

	mu      sync.Mutex
	state   State
	current string
	pending clockwork.Timer
	gen     int
	nextSub int
	subs    map[int]func(Transition)
}

func New(logger *log.Logger, clock clockwork.Clock, creatureId string, assets map[types.AnimationType]Asset) *Scheduler {
	return &Scheduler{
		log:        logger,
		clock:      clock,
		creatureId: creatureId,
		assets:     assets,
		state:      StateIdle,
		current:    BaselineAnimation,
		subs:       make(map[int]func(Transition)),
	}
}

// State returns the machine's current phase.
func (sc *Scheduler) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// Current returns the animation currently shown.
func (sc *Scheduler) Current() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.current
}

// Subscribe registers fn to be called on every state transition. The returned
// function removes the subscription.
func (sc *Scheduler) Subscribe(fn func(Transition)) func() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	id := sc.nextSub
	sc.nextSub++
	sc.subs[id] = fn

	return func() {
		sc.mu.Lock()
		defer sc.mu.Unlock()
		delete(sc.subs, id)
	}
}

// Handle processes one synchronized animation event. Playback begins at the
// event's scheduled instant; if that instant already passed, playback begins
// immediately unless the event is older than MaxStaleness.
func (sc *Scheduler) Handle(ev *relay.AnimationEvent) {
	if ev == nil || ev.CreatureId != sc.creatureId {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.state != StateIdle {
		sc.log.Printf("scheduler: dropping %s event, animation in progress", ev.Type)
		return
	}

	scheduledAt := time.UnixMilli(ev.ScheduledAt)
	delay := scheduledAt.Sub(sc.clock.Now())
	if delay < -MaxStaleness {
		sc.log.Printf("scheduler: discarding stale %s event scheduled at %s", ev.Type, scheduledAt)
		return
	}
	if delay < 0 {
		delay = 0
	}

	playDuration := sc.playDuration(ev)

	// A later event for the same idle window supersedes any armed timer.
	if sc.pending != nil {
		sc.pending.Stop()
	}
	sc.gen++
	gen := sc.gen

	animation := string(ev.Type)
	sc.pending = sc.clock.AfterFunc(delay, func() {
		sc.beginPlayback(gen, animation, playDuration)
	})
}

func (sc *Scheduler) playDuration(ev *relay.AnimationEvent) time.Duration {
	if ev.Media != nil && ev.Media.DurationMs > 0 {
		return time.Duration(ev.Media.DurationMs) * time.Millisecond
	}
	if asset, ok := sc.assets[ev.Type]; ok && asset.Duration > 0 {
		return asset.Duration
	}
	return DefaultPlayDuration
}

func (sc *Scheduler) beginPlayback(gen int, animation string, playDuration time.Duration) {
	sc.mu.Lock()
	if gen != sc.gen || sc.state != StateIdle {
		sc.mu.Unlock()
		return
	}
	notify := sc.transitionLocked(StateTransitioningIn, animation)
	sc.pending = sc.clock.AfterFunc(TransitionDuration, func() {
		sc.startPlaying(gen, animation, playDuration)
	})
	sc.mu.Unlock()
	notify()
}

func (sc *Scheduler) startPlaying(gen int, animation string, playDuration time.Duration) {
	sc.mu.Lock()
	if gen != sc.gen {
		sc.mu.Unlock()
		return
	}
	notify := sc.transitionLocked(StatePlaying, animation)
	sc.pending = sc.clock.AfterFunc(playDuration, func() {
		sc.beginTransitionOut(gen)
	})
	sc.mu.Unlock()
	notify()
}

func (sc *Scheduler) beginTransitionOut(gen int) {
	sc.mu.Lock()
	if gen != sc.gen {
		sc.mu.Unlock()
		return
	}
	notify := sc.transitionLocked(StateTransitioningOut, BaselineAnimation)
	sc.pending = sc.clock.AfterFunc(TransitionDuration, func() {
		sc.returnToIdle(gen)
	})
	sc.mu.Unlock()
	notify()
}

func (sc *Scheduler) returnToIdle(gen int) {
	sc.mu.Lock()
	if gen != sc.gen {
		sc.mu.Unlock()
		return
	}
	sc.pending = nil
	notify := sc.transitionLocked(StateIdle, BaselineAnimation)
	sc.mu.Unlock()
	notify()
}

// transitionLocked updates the state and returns a function that notifies
// subscribers. Callers hold sc.mu and must invoke the returned function after
// releasing it, so subscriber callbacks may call back into the scheduler.
func (sc *Scheduler) transitionLocked(state State, animation string) func() {
	sc.state = state
	sc.current = animation

	t := Transition{
		State:     state,
		Animation: animation,
		At:        sc.clock.Now(),
	}
	subs := make([]func(Transition), 0, len(sc.subs))
	for _, fn := range sc.subs {
		subs = append(subs, fn)
	}

	return func() {
		for _, fn := range subs {
			fn(t)
		}
	}
}

// Stop cancels any armed timer and returns the machine to idle.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	if sc.pending != nil {
		sc.pending.Stop()
		sc.pending = nil
	}
	sc.gen++
	notify := func() {}
	if sc.state != StateIdle {
		notify = sc.transitionLocked(StateIdle, BaselineAnimation)
	}
	sc.mu.Unlock()
	notify()
}
