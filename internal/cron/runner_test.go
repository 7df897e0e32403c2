package cronrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSpec(t *testing.T) {
	r := New(context.Background(), nil)
	_, err := r.Add("daily_scan", "not a spec", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily_scan")
}

func TestRunnerFiresJobsWithBaseContext(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "base")
	r := New(base, nil)

	var fired, sawBase int32
	_, err := r.Add("every_second", "* * * * * *", func(ctx context.Context) error {
		atomic.AddInt32(&fired, 1)
		if ctx.Value(key{}) == "base" {
			atomic.AddInt32(&sawBase, 1)
		}
		return errors.New("failures are logged only")
	})
	require.NoError(t, err)
	_, err = r.Add("panics", "* * * * * *", func(context.Context) error { panic("boom") })
	require.NoError(t, err)

	r.Start()
	defer r.Stop()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&fired) > 0 }, 3*time.Second, 20*time.Millisecond)
	assert.Positive(t, atomic.LoadInt32(&sawBase))
}

func TestNextIsScheduledAfterStart(t *testing.T) {
	r := New(context.Background(), nil)
	id, err := r.Add("daily_scan", "0 0 0 * * *", func(context.Context) error { return nil })
	require.NoError(t, err)
	r.Start()
	defer r.Stop()
	next := r.Next(id)
	require.False(t, next.IsZero())
	assert.Equal(t, 0, next.UTC().Hour())
}
