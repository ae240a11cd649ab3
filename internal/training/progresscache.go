package training

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultProgressCacheTTL is how long computed goal progress is reused for an unchanged activity batch.
const DefaultProgressCacheTTL = 10 * time.Minute

type progressKey struct {
	userID      int
	fingerprint string
}

// progressInputs is what a goal's progress depends on besides the activities.
type progressInputs struct {
	goalType GoalType
	period   Period
	// stored is the goal's current value for types that report it unchanged.
	stored float64
}

func inputsOf(g Goal) progressInputs {
	in := progressInputs{goalType: g.GoalType, period: g.Period, stored: 0}
	if spec, ok := goalTypeRegistry[g.GoalType]; ok && spec.storedValue {
		in.stored = g.CurrentValue
	}
	return in
}

type progressEntry struct {
	progress   map[string]Progress
	inputs     map[string]progressInputs
	computedAt time.Time
}

// ProgressCache remembers goal progress per user and activity batch so repeated syncs of the same activities skip
// the calculation. Concurrent misses for the same batch are computed once.
type ProgressCache struct {
	store *memoryStore[progressKey, progressEntry]
	group singleflight.Group
}

// NewProgressCache creates a cache whose entries expire after ttl.
func NewProgressCache(ttl time.Duration) *ProgressCache {
	if ttl <= 0 {
		ttl = DefaultProgressCacheTTL
	}
	return &ProgressCache{
		store: newMemoryStore[progressKey, progressEntry](ttl),
		group: singleflight.Group{},
	}
}

type progressResult struct {
	entry progressEntry
	hit   bool
}

// GetOrCompute returns the progress of every goal keyed by goal ID and whether it came from the cache.
func (c *ProgressCache) GetOrCompute(
	ctx context.Context,
	userID int,
	goals []Goal,
	activities []Activity,
	profile *Profile,
) (map[string]Progress, bool, error) {
	fingerprint, err := ActivityFingerprint(activities)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint activities: %w", err)
	}
	key := progressKey{userID: userID, fingerprint: fingerprint}
	ids := make([]string, 0, len(goals))
	signature := make([]string, 0, len(goals))
	for _, g := range goals {
		ids = append(ids, g.ID)
		in := inputsOf(g)
		signature = append(signature, fmt.Sprintf("%s/%s/%s/%g", g.ID, in.goalType, in.period, in.stored))
	}

	// An entry is reusable only when every goal was computed from the same type, period and stored value.
	covers := func(e progressEntry) bool {
		for _, g := range goals {
			if _, ok := e.progress[g.ID]; !ok {
				return false
			}
			if in, ok := e.inputs[g.ID]; !ok || in != inputsOf(g) {
				return false
			}
		}
		return true
	}
	compute := func(context.Context) (progressEntry, error) {
		now := time.Now()
		computed := ComputeAll(goals, activities, profile, now)
		entry := progressEntry{
			progress:   make(map[string]Progress, len(goals)),
			inputs:     make(map[string]progressInputs, len(goals)),
			computedAt: now,
		}
		for i, g := range goals {
			entry.progress[g.ID] = computed[i]
			entry.inputs[g.ID] = inputsOf(g)
		}
		return entry, nil
	}

	flightKey := fmt.Sprintf("%d:%s:%s", userID, fingerprint, strings.Join(signature, ","))
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		entry, hit, computeErr := getOrCompute(ctx, c.store, key, covers, compute)
		return progressResult{entry: entry, hit: hit}, computeErr
	})
	if err != nil {
		return nil, false, fmt.Errorf("get or compute progress: %w", err)
	}
	result, _ := v.(progressResult)

	progress := make(map[string]Progress, len(ids))
	for _, id := range ids {
		progress[id] = result.entry.progress[id]
	}
	return progress, result.hit, nil
}
