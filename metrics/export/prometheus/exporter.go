package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/metrics/export/internaldefs"
)

// Source is what the exporter reads. *goGuard.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goGuard.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	source Source
}

func New(engine *goGuard.Engine) *Exporter {
	return &Exporter{source: engine}
}

func NewFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render as text/plain.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text, or "" when metrics are disabled and
// nothing was dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}

	writeCounter(&b, internaldefs.AuditDroppedName, "Audit events dropped because the dispatcher queue was full.", dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name string, value uint64) {
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	writeSample(b, name, value)
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString(`_bucket{le="`)
		b.WriteString(le)
		b.WriteString(`"} `)
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	writeSample(b, name+"_count", cumulative[len(cumulative)-1])
	// Snapshots keep bucket counts only.
	writeSample(b, name+"_sum", 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}
