package stats

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Registry holds one engine per enabled domain. It is built once at
// startup and passed explicitly to the handlers and the scheduler; there
// is no package-level instance.
type Registry struct {
	engines map[string]*Engine
	order   []string
}

// NewRegistry builds engines for the enabled subset of the given schemas.
// Enabling a name no schema exists for is a startup error.
func NewRegistry(gdb *gorm.DB, schemas []Domain, enabled []string, window time.Duration) (*Registry, error) {
	byName := make(map[string]Domain, len(schemas))
	for _, d := range schemas {
		byName[d.Name] = d
	}

	r := &Registry{engines: make(map[string]*Engine, len(enabled))}
	for _, name := range enabled {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("enabled domain %q has no schema", name)
		}
		if _, dup := r.engines[name]; dup {
			return nil, fmt.Errorf("domain %q enabled twice", name)
		}
		eng, err := NewEngine(gdb, d, window)
		if err != nil {
			return nil, err
		}
		r.engines[name] = eng
		r.order = append(r.order, name)
	}
	return r, nil
}

// IsEnabled reports whether the registry was built with the domain.
func (r *Registry) IsEnabled(name string) bool {
	_, ok := r.engines[name]
	return ok
}

// Domains returns the enabled domain names in configuration order.
func (r *Registry) Domains() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Engine returns the engine for name, or ErrUnknownDomain.
func (r *Registry) Engine(name string) (*Engine, error) {
	eng, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}
	return eng, nil
}

// Submit routes a validated submission to its domain engine. An unknown
// domain is rejected before anything is written.
func (r *Registry) Submit(name string, fields map[string]any, now time.Time) error {
	eng, err := r.Engine(name)
	if err != nil {
		return err
	}
	return eng.Submit(fields, now)
}

// UpdateHighscore runs the ledger merge for one domain.
func (r *Registry) UpdateHighscore(name string, now time.Time) (bool, HighscoreState, error) {
	eng, err := r.Engine(name)
	if err != nil {
		return false, nil, err
	}
	return eng.UpdateHighscore(now)
}

// Report builds one domain's formatted report.
func (r *Registry) Report(name string, now time.Time) (*Report, error) {
	eng, err := r.Engine(name)
	if err != nil {
		return nil, err
	}
	return eng.Report(now)
}

// AllReports builds reports for every enabled domain, keyed by name. A
// failing domain is skipped; the others still report.
func (r *Registry) AllReports(now time.Time) map[string]*Report {
	out := make(map[string]*Report, len(r.order))
	for _, name := range r.order {
		rep, err := r.engines[name].Report(now)
		if err != nil {
			continue
		}
		out[name] = rep
	}
	return out
}
