// Package metrics provides lock-free counters and latency histograms for
// goGuard observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]. Histograms use 8 fixed buckets
// (≤1ms … +Inf), sized for checks that are one cache round trip. Both are
// allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage. Metric naming lives in the root package
// and export (Prometheus, OTel) lives in metrics/export/.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import goGuard or any sibling package.
//   - Expose global metric registries.
package metrics
