// Package reveal paces the display of an already complete text, one word at a time.
package reveal

import (
	"context"
	"errors"
	"iter"
	"time"
	"unicode"

	"golang.org/x/time/rate"
)

// DefaultInterval between two frames.
const DefaultInterval = 30 * time.Millisecond

// ErrStopped is returned by Run when the reveal was stopped before the last frame.
var ErrStopped = errors.New("reveal stopped")

// Frames yields growing prefixes of text, each ending at the end of a word.
// The last frame is the full text. Empty or blank text yields nothing.
func Frames(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		inWord, sawWord, last := false, false, 0
		for i, r := range text {
			space := unicode.IsSpace(r)
			if inWord && space {
				if !yield(text[:i]) {
					return
				}
				last = i
			}
			inWord = !space
			sawWord = sawWord || inWord
		}
		if sawWord && last != len(text) {
			yield(text)
		}
	}
}

// Count returns the number of frames text produces.
func Count(text string) int {
	n := 0
	for range Frames(text) {
		n++
	}
	return n
}

// Run pushes every frame of text to sink, at most one per interval.
// It returns ErrStopped if ctx is done before the last frame was pushed.
// Stopping never affects frames that were already pushed.
func Run(ctx context.Context, interval time.Duration, text string, sink func(frame string)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for frame := range Frames(text) {
		if err := limiter.Wait(ctx); err != nil {
			return ErrStopped
		}
		sink(frame)
	}
	return nil
}

// Player pulls frames one at a time. It suits event loops that schedule their own ticks.
type Player struct {
	next    func() (string, bool)
	stop    func()
	text    string
	current string
	done    bool
	stopped bool
}

// NewPlayer returns a player over the frames of text.
func NewPlayer(text string) *Player {
	next, stop := iter.Pull(Frames(text))
	return &Player{next: next, stop: stop, text: text}
}

// Step advances to the next frame. It returns false once all frames were shown or the player was stopped.
func (p *Player) Step() (string, bool) {
	if p.done {
		return p.current, false
	}
	frame, ok := p.next()
	if !ok {
		p.finish()
		return p.current, false
	}
	p.current = frame
	return frame, true
}

// Stop ends the reveal. The current frame stays valid.
// Stopping a player that already showed all its frames has no effect.
func (p *Player) Stop() {
	if p.done {
		return
	}
	p.stopped = true
	p.finish()
}

func (p *Player) finish() {
	p.done = true
	p.stop()
}

// Current frame.
func (p *Player) Current() string { return p.current }

// Done returns true once the player will not produce any more frames.
func (p *Player) Done() bool { return p.done }

// Stopped returns true if Stop cut the reveal short.
func (p *Player) Stopped() bool { return p.stopped }

// Text returns the full text being revealed.
func (p *Player) Text() string { return p.text }
