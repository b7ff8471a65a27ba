package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func fail() (interface{}, error)    { return nil, errUpstream }
func succeed() (interface{}, error) { return "ok", nil }

func TestClosedPassesThrough(t *testing.T) {
	b := New("test", Settings{TripAfter: 3})

	result, err := b.Execute(succeed)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, Closed, b.State())
}

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	b := New("test", Settings{TripAfter: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(fail)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, Open, b.State())

	_, err := b.Execute(succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := New("test", Settings{TripAfter: 3})

	b.Execute(fail)
	b.Execute(fail)
	b.Execute(succeed)
	b.Execute(fail)
	b.Execute(fail)

	assert.Equal(t, Closed, b.State())
}

func TestProbeReclosesCircuit(t *testing.T) {
	b := New("test", Settings{TripAfter: 1, Cooldown: 10 * time.Millisecond, Probes: 1})

	b.Execute(fail)
	require.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	_, err := b.Execute(succeed)
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestFailedProbeReopens(t *testing.T) {
	b := New("test", Settings{TripAfter: 1, Cooldown: 10 * time.Millisecond})

	b.Execute(fail)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, Open, b.State())
}

func TestProbeBudgetBoundsHalfOpen(t *testing.T) {
	b := New("test", Settings{TripAfter: 1, Cooldown: 10 * time.Millisecond, Probes: 1})

	b.Execute(fail)
	time.Sleep(20 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Execute(func() (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	_, err := b.Execute(succeed)
	assert.ErrorIs(t, err, ErrProbeBudget)
	close(release)
	<-done
}

func TestPanicCountsAsFailure(t *testing.T) {
	b := New("test", Settings{TripAfter: 1, Cooldown: time.Minute})

	assert.Panics(t, func() {
		b.Execute(func() (interface{}, error) { panic("boom") })
	})
	assert.Equal(t, Open, b.State())
}

func TestStateChangeNotification(t *testing.T) {
	var transitions []string
	b := New("upstream", Settings{
		TripAfter: 1,
		Cooldown:  time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	b.Execute(fail)
	require.Equal(t, []string{"closed>open"}, transitions)
}
