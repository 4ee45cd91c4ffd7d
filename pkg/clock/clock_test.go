package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFake_SleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	require.NoError(t, clk.Sleep(context.Background(), 3*time.Second))
	require.Equal(t, start.Add(3*time.Second), clk.Now())
	require.Equal(t, 1, clk.Sleeps())
}

func TestFake_SleepCancelled(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clk.Sleep(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, time.Unix(0, 0), clk.Now())
}

func TestFake_OnTick(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	var seen []time.Time
	clk.OnTick(func(now time.Time) { seen = append(seen, now) })

	clk.Advance(time.Second)
	require.NoError(t, clk.Sleep(context.Background(), time.Second))

	require.Equal(t, []time.Time{time.Unix(1, 0), time.Unix(2, 0)}, seen)
}

func TestReal_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Real{}.Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestOr(t *testing.T) {
	require.Equal(t, Real{}, Or(nil))
	fake := NewFake(time.Unix(0, 0))
	require.Same(t, fake, Or(fake))
}
