package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultDetailTTL   = 10 * time.Minute
	detailNumCounters  = 1e4
	detailMaxCost      = 1 << 24 // 16MB
	detailBufferItems  = 64
	detailBaseItemCost = 256
)

// Details caches per-program upstream responses (detail, groups and
// curriculum). Unlike the snapshot these are plain TTL entries: a miss goes
// to upstream and an upstream failure is returned to the caller.
type Details struct {
	upstream Upstream
	cache    *ristretto.Cache
	ttl      time.Duration
}

// NewDetails creates a detail cache in front of upstream.
func NewDetails(upstream Upstream, ttl time.Duration) (*Details, error) {
	if ttl <= 0 {
		ttl = defaultDetailTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: detailNumCounters,
		MaxCost:     detailMaxCost,
		BufferItems: detailBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create detail cache: %w", err)
	}
	return &Details{upstream: upstream, cache: cache, ttl: ttl}, nil
}

func (d *Details) Program(ctx context.Context, id int) (*ProgramDetail, error) {
	key := fmt.Sprintf("detail:%d", id)
	if v, ok := d.cache.Get(key); ok {
		if detail, ok := v.(*ProgramDetail); ok {
			return detail, nil
		}
	}
	detail, err := d.upstream.FetchProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	d.set(key, detail, detailBaseItemCost+int64(len(detail.Sessions)+len(detail.Modes))*32)
	return detail, nil
}

func (d *Details) Groups(ctx context.Context, programID int) ([]Group, error) {
	key := fmt.Sprintf("groups:%d", programID)
	if v, ok := d.cache.Get(key); ok {
		if groups, ok := v.([]Group); ok {
			return groups, nil
		}
	}
	groups, err := d.upstream.FetchGroups(ctx, programID)
	if err != nil {
		return nil, err
	}
	d.set(key, groups, detailBaseItemCost+int64(len(groups))*128)
	return groups, nil
}

func (d *Details) Curriculum(ctx context.Context, programID int) ([]CurriculumLevel, error) {
	key := fmt.Sprintf("curriculum:%d", programID)
	if v, ok := d.cache.Get(key); ok {
		if levels, ok := v.([]CurriculumLevel); ok {
			return levels, nil
		}
	}
	levels, err := d.upstream.FetchCurriculum(ctx, programID)
	if err != nil {
		return nil, err
	}
	var cost int64 = detailBaseItemCost
	for _, l := range levels {
		cost += int64(len(l.Subjects)) * 64
	}
	d.set(key, levels, cost)
	return levels, nil
}

func (d *Details) set(key string, v interface{}, cost int64) {
	d.cache.SetWithTTL(key, v, cost, d.ttl)
	d.cache.Wait()
}

// Close releases the cache's background goroutines.
func (d *Details) Close() {
	d.cache.Close()
}
