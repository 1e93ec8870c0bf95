package internaldefs

import (
	"strconv"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
	internalmetrics "github.com/MrEthical07/goGuard/internal/metrics"
)

type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const AuditDroppedName = "goguard_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: goGuard.MetricCSRFTokenIssued, Name: "goguard_csrf_token_issued_total", Help: "CSRF tokens issued or refreshed."},
	{ID: goGuard.MetricCSRFValidationSuccess, Name: "goguard_csrf_validation_success_total", Help: "CSRF validations that admitted the request."},
	{ID: goGuard.MetricCSRFTokenMissing, Name: "goguard_csrf_token_missing_total", Help: "State-changing requests without a CSRF token."},
	{ID: goGuard.MetricCSRFTokenNotFound, Name: "goguard_csrf_token_not_found_total", Help: "CSRF tokens that were unknown or malformed."},
	{ID: goGuard.MetricCSRFTokenExpired, Name: "goguard_csrf_token_expired_total", Help: "CSRF tokens presented after expiry."},
	{ID: goGuard.MetricCSRFTokenReused, Name: "goguard_csrf_token_reused_total", Help: "Single-use CSRF tokens presented again."},
	{ID: goGuard.MetricCSRFIdentifierMismatch, Name: "goguard_csrf_identifier_mismatch_total", Help: "CSRF tokens presented by a different requester."},
	{ID: goGuard.MetricCSRFTokensPurged, Name: "goguard_csrf_tokens_purged_total", Help: "Expired CSRF token records removed by purge."},
	{ID: goGuard.MetricCSRFTokensCleared, Name: "goguard_csrf_tokens_cleared_total", Help: "CSRF token records removed by identifier clears."},
	{ID: goGuard.MetricRateLimitAllowed, Name: "goguard_rate_limit_allowed_total", Help: "Rate-limit checks that admitted the request."},
	{ID: goGuard.MetricRateLimitHit, Name: "goguard_rate_limit_hit_total", Help: "Rate-limit checks that denied the request."},
	{ID: goGuard.MetricRateLimitCleared, Name: "goguard_rate_limit_cleared_total", Help: "Rate-limit clear operations."},
	{ID: goGuard.MetricBackendError, Name: "goguard_backend_error_total", Help: "Cache backend faults seen by either guard."},
	{ID: goGuard.MetricFailOpen, Name: "goguard_fail_open_total", Help: "Checks admitted because the backend failed under the fail-open policy."},
}

var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricCSRFCheckLatency, Name: "goguard_csrf_check_latency_seconds", Help: "CSRF validation latency."},
	{ID: goGuard.MetricRateLimitCheckLatency, Name: "goguard_rate_limit_check_latency_seconds", Help: "Rate-limit check latency."},
}

// HistogramBounds are the Prometheus "le" labels, "+Inf" last.
var HistogramBounds = buildBounds()

// HistogramBoundSuffix are the bounds rewritten for use in instrument names.
var HistogramBoundSuffix = buildSuffixes(HistogramBounds)

func buildBounds() []string {
	out := make([]string, 0, internalmetrics.BucketCount)
	for _, d := range internalmetrics.BucketBounds {
		out = append(out, strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

func buildSuffixes(bounds []string) []string {
	out := make([]string, len(bounds))
	for i, b := range bounds {
		if b == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(b, ".", "_")
	}
	return out
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [internalmetrics.BucketCount]uint64 {
	var out [internalmetrics.BucketCount]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [internalmetrics.BucketCount]uint64) [internalmetrics.BucketCount]uint64 {
	var out [internalmetrics.BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
