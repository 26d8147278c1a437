package stats

import (
	"context"
	"time"

	"statsink/internal/logging"
	"statsink/internal/metrics"
)

// ChartRenderer turns a report's chart descriptors into one composite
// image. Implemented by the external chart service client.
type ChartRenderer interface {
	Render(charts []Chart) ([]byte, error)
}

// Dispatcher delivers a report body and optional image to the configured
// endpoint.
type Dispatcher interface {
	Send(content string, image []byte) error
}

// Scheduler drives the periodic broadcast: every interval it updates each
// enabled domain's highscores, formats its report and dispatches it. One
// cycle runs at a time; the next tick waits for the current cycle.
type Scheduler struct {
	registry   *Registry
	renderer   ChartRenderer
	dispatcher Dispatcher
	interval   time.Duration
}

// NewScheduler wires the scheduler. It owns no state beyond its
// collaborators.
func NewScheduler(registry *Registry, renderer ChartRenderer, dispatcher Dispatcher, interval time.Duration) *Scheduler {
	return &Scheduler{
		registry:   registry,
		renderer:   renderer,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

// Run ticks until ctx is cancelled. The first cycle fires after one full
// interval. Cancellation stops before the next tick; a cycle that already
// started runs to completion.
func (s *Scheduler) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting broadcast scheduler", "interval", s.interval, "domains", s.registry.Domains())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case t := <-ticker.C:
			s.RunCycle(ctx, t)
		case <-ctx.Done():
			log.Info("stopping broadcast scheduler")
			return
		}
	}
}

// RunCycle processes every enabled domain once, as of now. Each domain is
// independent: a render or dispatch failure is logged and counted, and
// the remaining domains still run. The highscore update happens before
// any dispatch attempt, so a delivery failure never loses a highscore.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) {
	log := logging.FromContext(ctx)
	for _, name := range s.registry.Domains() {
		advanced, _, err := s.registry.UpdateHighscore(name, now)
		if err != nil {
			log.Error("highscore update failed", "domain", name, "error", err)
			metrics.CycleFailures.WithLabelValues(name, "aggregate").Inc()
			continue
		}
		if advanced {
			log.Info("new highscore recorded", "domain", name)
		}

		report, err := s.registry.Report(name, now)
		if err != nil {
			log.Error("report build failed", "domain", name, "error", err)
			metrics.CycleFailures.WithLabelValues(name, "aggregate").Inc()
			continue
		}
		var image []byte
		if len(report.Charts) > 0 {
			image, err = s.renderer.Render(report.Charts)
			if err != nil {
				log.Error("chart render failed", "domain", name, "error", err)
				metrics.CycleFailures.WithLabelValues(name, "render").Inc()
				continue
			}
		}

		body := "## " + report.DisplayName + " Stats\n"
		for _, line := range report.Summary {
			body += line + "\n"
		}
		if err := s.dispatcher.Send(body, image); err != nil {
			log.Error("report dispatch failed", "domain", name, "error", err)
			metrics.CycleFailures.WithLabelValues(name, "dispatch").Inc()
			continue
		}
		metrics.DispatchesTotal.WithLabelValues(name).Inc()
	}
}
