package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"statsink/internal/metrics"
	"statsink/internal/stats"
)

// SubmitHandler accepts one telemetry submission. Missing version and
// players are defaulted before the domain sees the payload; an unknown
// domain or malformed field is rejected without touching storage.
func SubmitHandler(registry *stats.Registry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var fields map[string]any
		if err := json.Unmarshal(ctx.PostBody(), &fields); err != nil || fields == nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "Bad Request: Expected JSON")
			return
		}

		if _, ok := fields["version"]; !ok {
			fields["version"] = "-1"
		}
		if _, ok := fields["players"]; !ok {
			fields["players"] = 0
		}

		domain, _ := fields["handler"].(string)
		if !registry.IsEnabled(domain) {
			metrics.SubmissionsTotal.WithLabelValues("unknown", "rejected").Inc()
			errResponse(ctx, fasthttp.StatusBadRequest, "Invalid handler")
			return
		}

		if err := registry.Submit(domain, fields, time.Now()); err != nil {
			if stats.IsValidationError(err) {
				metrics.SubmissionsTotal.WithLabelValues(domain, "rejected").Inc()
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			metrics.SubmissionsTotal.WithLabelValues(domain, "error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "Failed to add stats")
			return
		}

		metrics.SubmissionsTotal.WithLabelValues(domain, "accepted").Inc()
		jsonResponse(ctx, map[string]bool{"success": true})
	}
}

// StatsHandler returns the current formatted report for every enabled
// domain, keyed by domain name.
func StatsHandler(registry *stats.Registry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, registry.AllReports(time.Now()))
	}
}
