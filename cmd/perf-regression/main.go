// Command perf-regression compares two `go test -bench` outputs and fails when
// a tracked guard benchmark got slower than the allowed ratio.
//
//	go test -run '^$' -bench . -count 5 ./ > base.txt
//	go test -run '^$' -bench . -count 5 ./ > cand.txt
//	go run ./cmd/perf-regression -baseline base.txt -candidate cand.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

var trackedMetrics = map[string][]string{
	"BenchmarkCheckRateLimit":         {"ns/op", "allocs/op"},
	"BenchmarkCheckRateLimitRejected": {"ns/op", "allocs/op"},
	"BenchmarkCheckCSRFHeader":        {"ns/op", "allocs/op"},
	"BenchmarkValidateCSRF":           {"ns/op", "allocs/op"},
	"BenchmarkIssueAndConsumeCSRF":    {"ns/op"},
}

// sampleSet maps benchmark -> unit -> samples.
type sampleSet map[string]map[string][]float64

type comparison struct {
	benchmark string
	metric    string
	baseline  float64
	candidate float64
	delta     float64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("perf-regression", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		baselinePath  = fs.String("baseline", "", "path to baseline benchmark output")
		candidatePath = fs.String("candidate", "", "path to candidate benchmark output")
		threshold     = fs.Float64("threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *baselinePath == "" || *candidatePath == "" {
		fmt.Fprintln(stderr, "-baseline and -candidate are required")
		return 2
	}
	if *threshold < 0 {
		fmt.Fprintln(stderr, "-threshold must be >= 0")
		return 2
	}

	baseline, err := parseBenchmarkFile(*baselinePath)
	if err != nil {
		fmt.Fprintf(stderr, "parse baseline: %v\n", err)
		return 1
	}
	candidate, err := parseBenchmarkFile(*candidatePath)
	if err != nil {
		fmt.Fprintf(stderr, "parse candidate: %v\n", err)
		return 1
	}

	rows, failures := compare(baseline, candidate, trackedMetrics, *threshold)

	fmt.Fprintln(stdout, "perf regression check:")
	fmt.Fprintln(stdout, "benchmark metric baseline candidate delta")
	for _, row := range rows {
		fmt.Fprintf(stdout, "%s %s %.3f %.3f %+0.2f%%\n", row.benchmark, row.metric, row.baseline, row.candidate, row.delta*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(stderr, "  - %s\n", failure)
		}
		return 1
	}
	return 0
}

// compare reports one row per tracked metric present in both sets, in name
// order, plus a failure for every missing or regressed metric.
func compare(baseline, candidate sampleSet, tracked map[string][]string, threshold float64) ([]comparison, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []comparison
		failures []string
	)
	for _, benchmark := range names {
		for _, metric := range tracked[benchmark] {
			baseSamples := baseline[benchmark][metric]
			candidateSamples := candidate[benchmark][metric]
			if len(baseSamples) == 0 || len(candidateSamples) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(baseSamples)
			candidateMedian := median(candidateSamples)

			var delta float64
			switch {
			case baseMedian > 0:
				delta = (candidateMedian - baseMedian) / baseMedian
			case candidateMedian > 0:
				// 0 allocs/op growing to any allocation is a regression.
				failures = append(failures, fmt.Sprintf("%s %s grew from zero to %.3f", benchmark, metric, candidateMedian))
				continue
			}

			rows = append(rows, comparison{
				benchmark: benchmark,
				metric:    metric,
				baseline:  baseMedian,
				candidate: candidateMedian,
				delta:     delta,
			})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseBenchmarkFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file, trackedMetrics)
}

func parseBenchmarks(r io.Reader, tracked map[string][]string) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// normalizeBenchmarkName strips the -GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
