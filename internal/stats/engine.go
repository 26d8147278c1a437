package stats

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"statsink/internal/db"
	"statsink/internal/metrics"
)

// Engine runs one domain: snapshot upserts, windowed aggregation and the
// highscore ledger. All three shipped domains are instances of this type,
// differing only in their Domain schema.
type Engine struct {
	gdb    *gorm.DB
	domain Domain
	window time.Duration

	// mu serializes the highscore read-modify-append. The single
	// scheduler never races with itself, but monotonicity must not
	// depend on that.
	mu sync.Mutex
}

// NewEngine builds the engine for one domain schema.
func NewEngine(gdb *gorm.DB, domain Domain, window time.Duration) (*Engine, error) {
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	if window <= 0 {
		return nil, fmt.Errorf("domain %s: window must be positive", domain.Name)
	}
	return &Engine{gdb: gdb, domain: domain, window: window}, nil
}

// Domain returns the engine's schema.
func (e *Engine) Domain() Domain { return e.domain }

// Submit validates fields against the domain schema and replaces the
// snapshot for the submission's server UID, stamped with now. The write
// is a single upsert statement; a partially updated row is never visible.
func (e *Engine) Submit(fields map[string]any, now time.Time) error {
	uid, ok := stringField(fields, "server_uid")
	if !ok || uid == "" {
		return &ValidationError{Field: "server_uid", Reason: "is required"}
	}
	serverType, ok := stringField(fields, "server_type")
	if !ok || serverType == "" {
		return &ValidationError{Field: "server_type", Reason: "is required"}
	}
	version, ok := stringField(fields, "version")
	if !ok {
		return &ValidationError{Field: "version", Reason: "must be a string"}
	}
	players, ok := intField(fields, "players")
	if !ok {
		return &ValidationError{Field: "players", Reason: "must be a number"}
	}

	metricValues := datatypes.JSONMap{}
	for _, m := range e.domain.Metrics {
		v, present := fields[m.Name]
		if !present {
			if m.Required {
				return &ValidationError{Field: m.Name, Reason: "is required"}
			}
			metricValues[m.Name] = int64(0)
			continue
		}
		n, numeric := asInt64(v)
		if !numeric {
			return &ValidationError{Field: m.Name, Reason: "must be a number"}
		}
		metricValues[m.Name] = n
	}

	return db.UpsertSnapshot(e.gdb, &db.Snapshot{
		Domain:     e.domain.Name,
		ServerUID:  uid,
		ServerType: serverType,
		Version:    version,
		Players:    players,
		Metrics:    metricValues,
		Timestamp:  now,
	})
}

// Summarize computes the window aggregates as of now. All quantities are
// derived from a single snapshot read, so they describe the same set of
// rows; an empty window yields all zeros.
func (e *Engine) Summarize(now time.Time) (*Summary, error) {
	snaps, err := db.SnapshotsSince(e.gdb, e.domain.Name, now.Add(-e.window))
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		MetricSums:  make(map[string]int64, len(e.domain.Metrics)),
		MetricMaxes: make(map[string]int64, len(e.domain.Metrics)),
	}
	for _, m := range e.domain.Metrics {
		sum.MetricSums[m.Name] = 0
		sum.MetricMaxes[m.Name] = 0
	}

	types := map[string]int64{}
	versions := map[string]int64{}
	for _, s := range snaps {
		sum.Entries++
		sum.Players += s.Players
		types[s.ServerType]++
		versions[s.Version]++
		for _, m := range e.domain.Metrics {
			v, _ := asInt64(s.Metrics[m.Name])
			sum.MetricSums[m.Name] += v
			if v > sum.MetricMaxes[m.Name] {
				sum.MetricMaxes[m.Name] = v
			}
		}
	}
	sum.ServerTypes = sortedDistribution(types)
	sum.Versions = sortedDistribution(versions)
	metrics.WindowServers.WithLabelValues(e.domain.Name).Set(float64(sum.Entries))
	return sum, nil
}

// Highscore returns the current ledger state: the newest entry's
// dimension vector, or all zeros when nothing has been recorded yet.
func (e *Engine) Highscore() (HighscoreState, error) {
	latest, err := db.LatestHighscore(e.gdb, e.domain.Name)
	if err != nil {
		return nil, err
	}
	state := make(HighscoreState, len(e.domain.Dimensions))
	for _, dim := range e.domain.Dimensions {
		if latest != nil {
			state[dim.Name], _ = asInt64(latest.Values[dim.Name])
		} else {
			state[dim.Name] = 0
		}
	}
	return state, nil
}

// UpdateHighscore merges the current window aggregate into the ledger:
// element-wise max against the latest entry, appended as a new entry only
// if at least one dimension strictly improved. Ties append nothing.
// Returns the resulting state either way.
func (e *Engine) UpdateHighscore(now time.Time) (bool, HighscoreState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sum, err := e.Summarize(now)
	if err != nil {
		return false, nil, err
	}
	current, err := e.Highscore()
	if err != nil {
		return false, nil, err
	}

	advanced := false
	candidate := make(HighscoreState, len(e.domain.Dimensions))
	values := datatypes.JSONMap{}
	for _, dim := range e.domain.Dimensions {
		v := sum.Dimension(dim)
		if cur := current[dim.Name]; v < cur {
			v = cur
		} else if v > cur {
			advanced = true
		}
		candidate[dim.Name] = v
		values[dim.Name] = v
	}

	if !advanced {
		return false, candidate, nil
	}
	if err := db.AppendHighscore(e.gdb, &db.Highscore{
		Domain:    e.domain.Name,
		Values:    values,
		CreatedAt: now,
	}); err != nil {
		return false, nil, err
	}
	metrics.HighscoreAdvances.WithLabelValues(e.domain.Name).Inc()
	return true, candidate, nil
}

// Report builds the formatted report for the domain as of now.
func (e *Engine) Report(now time.Time) (*Report, error) {
	sum, err := e.Summarize(now)
	if err != nil {
		return nil, err
	}
	hs, err := e.Highscore()
	if err != nil {
		return nil, err
	}
	return FormatReport(e.domain, sum, hs), nil
}

func sortedDistribution(counts map[string]int64) []LabelCount {
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func stringField(fields map[string]any, name string) (string, bool) {
	v, ok := fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intField(fields map[string]any, name string) (int64, bool) {
	v, ok := fields[name]
	if !ok {
		return 0, false
	}
	return asInt64(v)
}

// asInt64 accepts the numeric shapes a value takes between JSON decoding
// and a JSONMap read back from the database.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	default:
		return 0, false
	}
}
