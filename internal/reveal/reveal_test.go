package reveal

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "three words", text: "alpha beta gamma", want: []string{"alpha", "alpha beta", "alpha beta gamma"}},
		{name: "empty", text: "", want: nil},
		{name: "blank", text: "  \n ", want: nil},
		{name: "single word", text: "hello", want: []string{"hello"}},
		{name: "trailing space", text: "one two ", want: []string{"one", "one two", "one two "}},
		{name: "newlines kept", text: "a\n\nb", want: []string{"a", "a\n\nb"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, slices.Collect(Frames(tc.text)))
		})
	}
}

func TestRun(t *testing.T) {
	var frames []string
	err := Run(context.Background(), time.Millisecond, "alpha beta gamma", func(frame string) {
		frames = append(frames, frame)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "alpha beta", "alpha beta gamma"}, frames)
}

func TestRun_Stopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var frames []string
	err := Run(ctx, time.Hour, "alpha beta gamma", func(frame string) {
		frames = append(frames, frame)
		cancel()
	})
	require.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, []string{"alpha"}, frames)
}

func TestPlayer(t *testing.T) {
	player := NewPlayer("alpha beta gamma")
	var frames []string
	for {
		frame, ok := player.Step()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}
	assert.Equal(t, []string{"alpha", "alpha beta", "alpha beta gamma"}, frames)
	assert.True(t, player.Done())
	player.Stop()
	assert.False(t, player.Stopped())

	// Does not re-trigger.
	frame, ok := player.Step()
	assert.False(t, ok)
	assert.Equal(t, "alpha beta gamma", frame)
}

func TestPlayer_Stop(t *testing.T) {
	player := NewPlayer("alpha beta gamma")
	_, ok := player.Step()
	require.True(t, ok)
	player.Stop()
	player.Stop()
	frame, ok := player.Step()
	assert.False(t, ok)
	assert.Equal(t, "alpha", frame)
	assert.Equal(t, "alpha beta gamma", player.Text())
	assert.True(t, player.Stopped())
}

func TestPlayer_BlankText(t *testing.T) {
	player := NewPlayer(" \n ")
	frame, ok := player.Step()
	assert.False(t, ok)
	assert.Empty(t, frame)
	assert.True(t, player.Done())
	assert.False(t, player.Stopped())
}

func TestCount(t *testing.T) {
	assert.Equal(t, 3, Count("alpha beta gamma"))
	assert.Equal(t, 0, Count(""))
}
