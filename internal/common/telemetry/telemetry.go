// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/plainlyai/enablr/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	leadsCreated *expvar.Int
	leadsUpdated *expvar.Int

	llmCalls     *expvar.Map
	llmFailures  *expvar.Map
	llmLatencyMS *expvar.Map

	discoveryRuns     *expvar.Int
	candidatesKept    *expvar.Int
	candidatesDropped *expvar.Int

	trackingFailures *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		leadsCreated = expvar.NewInt("enablr_leads_created_total")
		leadsUpdated = expvar.NewInt("enablr_leads_updated_total")

		llmCalls = expvar.NewMap("enablr_llm_calls_total")
		llmFailures = expvar.NewMap("enablr_llm_failures_total")
		llmLatencyMS = expvar.NewMap("enablr_llm_latency_ms")

		discoveryRuns = expvar.NewInt("enablr_discovery_runs_total")
		candidatesKept = expvar.NewInt("enablr_candidates_kept_total")
		candidatesDropped = expvar.NewInt("enablr_candidates_dropped_total")

		trackingFailures = expvar.NewInt("enablr_tracking_failures_total")
	})
}

// StartSpan logs the start of a named operation at debug level and returns a
// func that logs its end with the elapsed duration.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", time.Since(sp.start)}, attrs...)...)
	}
}

// SpanDuration returns the time elapsed since the span in ctx started.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func RecordLeadSubmission(created bool) {
	ensureInit()
	if created {
		leadsCreated.Add(1)
		return
	}
	leadsUpdated.Add(1)
}

// RecordLLMCall counts one provider call for feature (chat, discovery,
// content_analysis).
func RecordLLMCall(feature string, duration time.Duration, err error) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(feature))
	if key == "" {
		key = "unknown"
	}
	llmCalls.Add(key, 1)
	if err != nil {
		llmFailures.Add(key, 1)
	}
	if duration > 0 {
		llmLatencyMS.Add(key, duration.Milliseconds())
	}
}

func RecordDiscoveryRun(kept, dropped int) {
	ensureInit()
	discoveryRuns.Add(1)
	candidatesKept.Add(int64(kept))
	candidatesDropped.Add(int64(dropped))
}

func RecordTrackingFailure() {
	ensureInit()
	trackingFailures.Add(1)
}
