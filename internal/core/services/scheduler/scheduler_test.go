package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/domain"
)

// fakeCore is a minimal CoreController used to exercise AddCore/health-check
// behavior without a real worker loop.
type fakeCore struct {
	name  string
	alive bool
}

func (f *fakeCore) Alive() bool { return f.alive }
func (f *fakeCore) Name() string { return f.name }

func TestSchedulerEnqueueDequeueFIFO(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a", "b"}, false))
	require.NoError(t, s.Enqueue("net1", []string{"c"}, false))

	wu, err := s.Gather(2, 0)
	require.NoError(t, err)
	require.NotNil(t, wu)
	assert.Equal(t, "net1", wu.ESSID)
	assert.Equal(t, []string{"a", "b"}, wu.Passwords)

	results := make([][32]byte, len(wu.Passwords))
	for i := range results {
		results[i] = [32]byte{byte(i + 1)}
	}
	require.NoError(t, s.Scatter(wu, results))

	out, err := s.Dequeue(false, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Password)
	assert.Equal(t, "b", out[1].Password)
}

func TestSchedulerDequeueReturnsNilWhenNothingOutstanding(t *testing.T) {
	s := New()
	defer s.Close()

	out, err := s.Dequeue(false, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSchedulerDequeueNonBlockingNotReady(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a"}, false))
	out, err := s.Dequeue(false, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSchedulerGatherNeverMixesESSIDs(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a", "b"}, false))
	require.NoError(t, s.Enqueue("net2", []string{"c", "d"}, false))

	wu, err := s.Gather(10, 0)
	require.NoError(t, err)
	require.NotNil(t, wu)
	assert.Equal(t, "net1", wu.ESSID)
	assert.Equal(t, []string{"a", "b"}, wu.Passwords)

	wu2, err := s.Gather(10, 0)
	require.NoError(t, err)
	require.NotNil(t, wu2)
	assert.Equal(t, "net2", wu2.ESSID)
	assert.Equal(t, []string{"c", "d"}, wu2.Passwords)
}

func TestSchedulerGatherCoalescesSameTrailingESSID(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a"}, false))
	require.NoError(t, s.Enqueue("net1", []string{"b"}, false))

	assert.Equal(t, 1, len(s.inqueue))

	wu, err := s.Gather(10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, wu.Passwords)
}

func TestSchedulerGatherTimesOutWhenEmpty(t *testing.T) {
	s := New()
	defer s.Close()

	start := time.Now()
	wu, err := s.Gather(10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, wu)
	assert.True(t, time.Since(start) >= 40*time.Millisecond)
}

func TestSchedulerScatterRejectsLengthMismatch(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a", "b"}, false))
	wu, err := s.Gather(2, 0)
	require.NoError(t, err)

	err = s.Scatter(wu, [][32]byte{{1}})
	assert.Error(t, err)
}

func TestSchedulerScatterMergesContiguousOutqueue(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a", "b"}, false))
	require.NoError(t, s.Enqueue("net1", []string{"c", "d"}, false))

	wu1, err := s.Gather(2, 0)
	require.NoError(t, err)
	wu2, err := s.Gather(2, 0)
	require.NoError(t, err)

	// Scatter the second-gathered workunit first; its results should sit in
	// outqueue until the first workunit's results arrive and merge with them.
	require.NoError(t, s.Scatter(wu2, [][32]byte{{3}, {4}}))
	require.NoError(t, s.Scatter(wu1, [][32]byte{{1}, {2}}))

	out, err := s.Dequeue(false, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Password)

	out2, err := s.Dequeue(false, 0)
	require.NoError(t, err)
	require.Len(t, out2, 2)
	assert.Equal(t, "c", out2[0].Password)
}

func TestSchedulerRevokeReinsertsAtHead(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a", "b"}, false))
	wu, err := s.Gather(2, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, wu.Passwords)

	require.NoError(t, s.Enqueue("net1", []string{"z"}, false))
	s.Revoke(wu)

	wu2, err := s.Gather(2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, wu2.Passwords)
}

func TestSchedulerPendingTracksIngress(t *testing.T) {
	s := New()
	defer s.Close()

	assert.Equal(t, 0, s.Pending())
	require.NoError(t, s.Enqueue("net1", []string{"a", "b", "c"}, false))
	assert.Equal(t, 3, s.Pending())

	_, err := s.Gather(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Pending())
}

func TestSchedulerPeakPerformanceZeroWithoutCores(t *testing.T) {
	s := New()
	defer s.Close()

	assert.Equal(t, float64(0), s.PeakPerformance())
}

func TestSchedulerChecksCoreHealthOnGather(t *testing.T) {
	s := New()
	defer s.Close()

	s.AddCore(&fakeCore{name: "dead-core", alive: false})

	_, err := s.Gather(1, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCoreDead))
}

func TestSchedulerChecksCoreHealthOnDequeue(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Enqueue("net1", []string{"a"}, false))
	s.AddCore(&fakeCore{name: "dead-core", alive: false})

	_, err := s.Dequeue(true, 500*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCoreDead))
}
