package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUpstream struct {
	mu      sync.Mutex
	levels  []Level
	err     error
	delay   time.Duration
	fetches atomic.Int32

	detail     *ProgramDetail
	groups     []Group
	curriculum []CurriculumLevel
	calls      map[string]int
}

func (f *fakeUpstream) FetchPrograms(ctx context.Context) ([]Level, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.levels, nil
}

func (f *fakeUpstream) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeUpstream) FetchProgram(_ context.Context, id int) (*ProgramDetail, error) {
	f.count("detail")
	if f.detail == nil || f.detail.ID != id {
		return nil, ErrNotFound
	}
	return f.detail, nil
}

func (f *fakeUpstream) FetchGroups(context.Context, int) ([]Group, error) {
	f.count("groups")
	return f.groups, f.err
}

func (f *fakeUpstream) FetchCurriculum(context.Context, int) ([]CurriculumLevel, error) {
	f.count("curriculum")
	return f.curriculum, f.err
}

func (f *fakeUpstream) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func sampleLevels() []Level {
	return []Level{
		{Name: "grado", Areas: []Area{
			{Name: "Ciencias Sociales", Programs: []Program{
				{ID: 1, Name: "Derecho", Title: "Abogado"},
				{ID: 2, Name: "Psicología Clínica", Title: "Psicólogo Clínico"},
			}},
			{Name: "Tecnología", Programs: []Program{
				{ID: 3, Name: "Software", Title: "Ingeniero de Software"},
			}},
		}},
		{Name: "postgrado", Areas: []Area{
			{Name: "Derecho", Programs: []Program{
				{ID: 10, Name: "Maestría en Derecho Procesal"},
			}},
		}},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(up Upstream, mirror SnapshotMirror) (*Cache, *clock) {
	c := &clock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	return NewCache(up, CacheOptions{Mirror: mirror, Now: c.Now}, zap.NewNop()), c
}

func TestCacheServesFreshSnapshotWithoutUpstream(t *testing.T) {
	up := &fakeUpstream{levels: sampleLevels()}
	cache, clk := newTestCache(up, nil)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Programs(), 4)

	clk.Advance(59 * time.Minute)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), up.fetches.Load())

	clk.Advance(2 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.fetches.Load())
}

func TestCacheServesStaleOnFailure(t *testing.T) {
	up := &fakeUpstream{levels: sampleLevels()}
	cache, clk := newTestCache(up, nil)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	up.setErr(errors.New("503 service unavailable"))
	clk.Advance(2 * time.Hour)

	stale, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, stale)
	assert.Equal(t, int32(2), up.fetches.Load())
}

func TestCacheFailsWithoutPriorSnapshot(t *testing.T) {
	up := &fakeUpstream{err: errors.New("connection refused")}
	cache, _ := newTestCache(up, nil)

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	// the next call retries upstream
	up.setErr(nil)
	up.levels = sampleLevels()
	snap, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Levels)
}

func TestCacheSingleRefreshInFlight(t *testing.T) {
	up := &fakeUpstream{levels: sampleLevels(), delay: 50 * time.Millisecond}
	cache, _ := newTestCache(up, nil)

	var wg sync.WaitGroup
	results := make([]*Snapshot, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := cache.Get(context.Background())
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), up.fetches.Load())
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestCacheWaitersShareFailedRefresh(t *testing.T) {
	up := &fakeUpstream{err: errors.New("down"), delay: 50 * time.Millisecond}
	cache, _ := newTestCache(up, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Get(context.Background())
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		}()
	}
	wg.Wait()
	assert.Less(t, up.fetches.Load(), int32(10))
}

type memMirror struct {
	snap  *Snapshot
	saves int
}

func (m *memMirror) Save(_ context.Context, s *Snapshot) error {
	m.snap = s
	m.saves++
	return nil
}

func (m *memMirror) Load(context.Context) (*Snapshot, error) { return m.snap, nil }

func TestCacheFallsBackToMirror(t *testing.T) {
	mirror := &memMirror{}
	up := &fakeUpstream{levels: sampleLevels()}
	warm, _ := newTestCache(up, mirror)
	_, err := warm.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.saves)

	// a new process with upstream down
	down := &fakeUpstream{err: errors.New("down")}
	cold, clk := newTestCache(down, mirror)
	clk.Advance(3 * time.Hour)
	snap, err := cold.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Programs(), 4)
}

func TestCacheInvalidate(t *testing.T) {
	up := &fakeUpstream{levels: sampleLevels()}
	cache, _ := newTestCache(up, nil)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.fetches.Load())
}
