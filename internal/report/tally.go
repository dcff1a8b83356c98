package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tagattend/internal/attendance"
	"tagattend/internal/schedule"
)

// TallyTTL bounds how long per-day counters are kept.
const TallyTTL = 35 * 24 * time.Hour

// Tally keeps live per course and session date status counters in Redis.
// It is fed from recorded events and is not the source of truth.
type Tally struct {
	client *redis.Client
	prefix string
}

// NewTally creates a Tally whose keys start with prefix.
func NewTally(client *redis.Client, prefix string) *Tally {
	if prefix == "" {
		prefix = "tagattend:tally"
	}
	return &Tally{client: client, prefix: prefix}
}

func (t *Tally) key(courseID, sessionDate string) string {
	return t.prefix + ":" + courseID + ":" + sessionDate
}

func (t *Tally) seenKey(courseID, sessionDate string) string {
	return t.key(courseID, sessionDate) + ":seen"
}

// applyScript increments the counters and only then marks the record seen,
// so a failed increment leaves the record free to be counted on redelivery.
// KEYS: counters, seen set. ARGV: record id, status field, ttl seconds.
var applyScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
	return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[2], 1)
redis.call('HINCRBY', KEYS[1], 'total', 1)
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
redis.call('EXPIRE', KEYS[2], ARGV[3])
return 1
`)

// Apply counts ev once. Redelivered events for the same record are ignored.
func (t *Tally) Apply(ctx context.Context, ev attendance.RecordedEvent) error {
	if ev.CourseID == "" || ev.SessionDate == "" || !ev.Status.Valid() {
		return fmt.Errorf("tally: incomplete event %q", ev.RecordID)
	}
	keys := []string{t.key(ev.CourseID, ev.SessionDate), t.seenKey(ev.CourseID, ev.SessionDate)}
	err := applyScript.Run(ctx, t.client, keys, ev.RecordID, string(ev.Status), int(TallyTTL/time.Second)).Err()
	if err != nil {
		return fmt.Errorf("tally apply %s: %w", ev.RecordID, err)
	}
	return nil
}

// Get returns the counters of a course on a session date.
func (t *Tally) Get(ctx context.Context, courseID, sessionDate string) (Stats, error) {
	vals, err := t.client.HGetAll(ctx, t.key(courseID, sessionDate)).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("tally get: %w", err)
	}
	n := func(field string) int {
		v, _ := strconv.Atoi(vals[field])
		return v
	}
	return Stats{
		Total:  n("total"),
		Early:  n(string(schedule.StatusEarly)),
		OnTime: n(string(schedule.StatusOnTime)),
		Late:   n(string(schedule.StatusLate)),
	}, nil
}
