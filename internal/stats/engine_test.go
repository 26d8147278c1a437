package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"statsink/internal/db"
	"statsink/internal/metrics"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func gathererDomain(t *testing.T) Domain {
	t.Helper()
	for _, d := range BuiltinDomains() {
		if d.Name == "resource-gatherers" {
			return d
		}
	}
	t.Fatal("resource-gatherers schema missing")
	return Domain{}
}

func newGathererEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(newTestDB(t), gathererDomain(t), time.Hour)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func submission(uid string, gatherers int) map[string]any {
	return map[string]any{
		"server_uid":  uid,
		"server_type": "survival",
		"version":     "1.20",
		"players":     10,
		"gatherers":   gatherers,
	}
}

func TestSubmitThenSummarize(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 5), now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sum, err := eng.Summarize(now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Entries != 1 || sum.Players != 10 {
		t.Fatalf("expected 1 entry with 10 players, got %d/%d", sum.Entries, sum.Players)
	}
	if sum.MetricSums["gatherers"] != 5 || sum.MetricMaxes["gatherers"] != 5 {
		t.Fatalf("expected gatherers sum/max 5/5, got %d/%d", sum.MetricSums["gatherers"], sum.MetricMaxes["gatherers"])
	}
	if len(sum.ServerTypes) != 1 || sum.ServerTypes[0].Label != "survival" || sum.ServerTypes[0].Count != 1 {
		t.Fatalf("unexpected server type distribution: %+v", sum.ServerTypes)
	}
}

func TestResubmitOverwritesSameServer(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 5), now); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := eng.Submit(submission("abc", 8), now.Add(time.Minute)); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	sum, err := eng.Summarize(now.Add(time.Minute))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Entries != 1 {
		t.Fatalf("expected 1 entry after resubmit, got %d", sum.Entries)
	}
	if sum.MetricSums["gatherers"] != 8 || sum.MetricMaxes["gatherers"] != 8 {
		t.Fatalf("expected gatherers 8/8 after overwrite, got %d/%d", sum.MetricSums["gatherers"], sum.MetricMaxes["gatherers"])
	}
}

func TestWindowExcludesStaleSnapshots(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 5), now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sum, err := eng.Summarize(now.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Entries != 0 || sum.Players != 0 {
		t.Fatalf("stale snapshot leaked into window: %+v", sum)
	}
	if sum.MetricSums["gatherers"] != 0 || sum.MetricMaxes["gatherers"] != 0 {
		t.Fatalf("stale snapshot leaked into metric aggregates: %+v", sum)
	}
	if len(sum.ServerTypes) != 0 || len(sum.Versions) != 0 {
		t.Fatalf("stale snapshot leaked into distributions: %+v", sum)
	}
}

func TestWindowLowerBoundInclusive(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now().Truncate(time.Second)

	if err := eng.Submit(submission("abc", 5), now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sum, err := eng.Summarize(now.Add(time.Hour))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Entries != 1 {
		t.Fatalf("snapshot exactly at window edge should count, got %d entries", sum.Entries)
	}
}

func TestSubmitValidation(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	cases := []struct {
		name   string
		fields map[string]any
	}{
		{"missing server_uid", map[string]any{"server_type": "survival", "version": "1.20", "players": 1, "gatherers": 1}},
		{"missing server_type", map[string]any{"server_uid": "a", "version": "1.20", "players": 1, "gatherers": 1}},
		{"missing required metric", map[string]any{"server_uid": "a", "server_type": "survival", "version": "1.20", "players": 1}},
		{"non-numeric players", map[string]any{"server_uid": "a", "server_type": "survival", "version": "1.20", "players": "lots", "gatherers": 1}},
		{"non-numeric metric", map[string]any{"server_uid": "a", "server_type": "survival", "version": "1.20", "players": 1, "gatherers": "many"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := eng.Submit(tc.fields, now)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	sum, err := eng.Summarize(now)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Entries != 0 {
		t.Fatalf("rejected submissions must not be stored, found %d entries", sum.Entries)
	}
}

func TestHighscoreFirstAdvance(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 8), now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	advanced, state, err := eng.UpdateHighscore(now)
	if err != nil {
		t.Fatalf("update highscore: %v", err)
	}
	if !advanced {
		t.Fatal("expected first non-zero aggregate to advance the ledger")
	}
	want := HighscoreState{"server_count": 1, "total_gatherers": 8, "gatherers": 8, "players": 10}
	for dim, v := range want {
		if state[dim] != v {
			t.Fatalf("dimension %s: expected %d, got %d", dim, v, state[dim])
		}
	}
}

func TestHighscoreEmptyWindowDoesNotRegress(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 8), now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if advanced, _, err := eng.UpdateHighscore(now); err != nil || !advanced {
		t.Fatalf("expected initial advance, got advanced=%v err=%v", advanced, err)
	}

	// Window empties: candidate is all zero, nothing improves.
	advanced, state, err := eng.UpdateHighscore(now.Add(3 * time.Hour))
	if err != nil {
		t.Fatalf("update highscore: %v", err)
	}
	if advanced {
		t.Fatal("empty window must not advance the ledger")
	}
	if state["gatherers"] != 8 || state["players"] != 10 {
		t.Fatalf("highscore regressed: %+v", state)
	}

	hs, err := eng.Highscore()
	if err != nil {
		t.Fatalf("highscore: %v", err)
	}
	if hs["total_gatherers"] != 8 {
		t.Fatalf("ledger state changed without an advance: %+v", hs)
	}
}

func TestHighscoreTieAppendsNothing(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 8), now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := eng.UpdateHighscore(now); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Same aggregate again: equality in every dimension is not an improvement.
	if advanced, _, err := eng.UpdateHighscore(now.Add(time.Minute)); err != nil {
		t.Fatalf("second update: %v", err)
	} else if advanced {
		t.Fatal("tie must not append a ledger entry")
	}

	var count int64
	if err := eng.gdb.Model(&db.Highscore{}).Where("domain = ?", eng.domain.Name).Count(&count).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 ledger entry, got %d", count)
	}
}

func TestHighscorePartialImprovementMergesVector(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()

	if err := eng.Submit(submission("abc", 8), now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := eng.UpdateHighscore(now); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Later window: more servers, but each with fewer gatherers. Only the
	// improved dimensions move; the rest carry the old peak forward.
	later := now.Add(2 * time.Hour)
	for _, uid := range []string{"s1", "s2", "s3"} {
		if err := eng.Submit(submission(uid, 2), later); err != nil {
			t.Fatalf("submit %s: %v", uid, err)
		}
	}

	advanced, state, err := eng.UpdateHighscore(later)
	if err != nil {
		t.Fatalf("update highscore: %v", err)
	}
	if !advanced {
		t.Fatal("server count improved, expected an advance")
	}
	if state["server_count"] != 3 {
		t.Fatalf("expected server_count 3, got %d", state["server_count"])
	}
	if state["gatherers"] != 8 {
		t.Fatalf("gatherers peak regressed: got %d, want 8", state["gatherers"])
	}
	if state["players"] != 30 {
		t.Fatalf("expected players 30, got %d", state["players"])
	}
}

func TestHighscoreAdvanceIncrementsCounter(t *testing.T) {
	eng := newGathererEngine(t)
	now := time.Now()
	counter := metrics.HighscoreAdvances.WithLabelValues(eng.domain.Name)
	before := testutil.ToFloat64(counter)

	if err := eng.Submit(submission("abc", 8), now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if advanced, _, err := eng.UpdateHighscore(now); err != nil || !advanced {
		t.Fatalf("expected advance, got advanced=%v err=%v", advanced, err)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected 1 advance counted, got %v", got)
	}

	// A tie appends nothing and must not count as an advance.
	if advanced, _, err := eng.UpdateHighscore(now.Add(time.Minute)); err != nil || advanced {
		t.Fatalf("expected tie, got advanced=%v err=%v", advanced, err)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("tie incremented the advance counter: %v", got)
	}
}

func TestHighscoreMonotonicity(t *testing.T) {
	eng := newGathererEngine(t)
	base := time.Now()

	inputs := []struct {
		uid       string
		gatherers int
	}{
		{"a", 4}, {"b", 9}, {"c", 1}, {"d", 12}, {"e", 3},
	}

	prev := HighscoreState{}
	for i, in := range inputs {
		now := base.Add(time.Duration(i) * 2 * time.Hour)
		if err := eng.Submit(submission(in.uid, in.gatherers), now); err != nil {
			t.Fatalf("submit %s: %v", in.uid, err)
		}
		if _, _, err := eng.UpdateHighscore(now); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		state, err := eng.Highscore()
		if err != nil {
			t.Fatalf("highscore %d: %v", i, err)
		}
		for dim, v := range state {
			if v < prev[dim] {
				t.Fatalf("cycle %d: dimension %s regressed from %d to %d", i, dim, prev[dim], v)
			}
		}
		prev = state
	}
}

func TestEnginesDoNotShareState(t *testing.T) {
	gdb := newTestDB(t)
	var gatherers, buildTools Domain
	for _, d := range BuiltinDomains() {
		switch d.Name {
		case "resource-gatherers":
			gatherers = d
		case "build-tools":
			buildTools = d
		}
	}

	engA, err := NewEngine(gdb, gatherers, time.Hour)
	if err != nil {
		t.Fatalf("engine A: %v", err)
	}
	engB, err := NewEngine(gdb, buildTools, time.Hour)
	if err != nil {
		t.Fatalf("engine B: %v", err)
	}

	now := time.Now()
	if err := engA.Submit(submission("abc", 5), now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sumB, err := engB.Summarize(now)
	if err != nil {
		t.Fatalf("summarize B: %v", err)
	}
	if sumB.Entries != 0 {
		t.Fatalf("domain B sees domain A's snapshots: %d entries", sumB.Entries)
	}
}
