package security

import "time"

// Report summarizes the protections an engine configuration enforces.
type Report struct {
	ProductionMode          bool
	FailClosed              bool
	CSRFTokenLifetime       time.Duration
	CSRFEntropyBits         int
	QueryTokenAllowed       bool
	ExpiredTokensReported   bool
	ForwardedHeadersTrusted bool
	TrustedHeaders          []string
	StrictBudgetPerMinute   float64
	AuditActive             bool
	AuditLossy              bool
	MetricsActive           bool
}

type ReportInput struct {
	ProductionMode    bool
	FailClosed        bool
	CSRFTokenLifetime time.Duration
	CSRFTokenBytes    int
	AllowQueryToken   bool
	ExpiredRetention  time.Duration
	TrustedHeaders    []string
	StrictMaxRequests int
	StrictWindow      time.Duration
	AuditEnabled      bool
	AuditDropIfFull   bool
	MetricsEnabled    bool
}

func BuildReport(input ReportInput) Report {
	var perMinute float64
	if input.StrictWindow > 0 {
		perMinute = float64(input.StrictMaxRequests) / input.StrictWindow.Minutes()
	}

	return Report{
		ProductionMode:          input.ProductionMode,
		FailClosed:              input.FailClosed,
		CSRFTokenLifetime:       input.CSRFTokenLifetime,
		CSRFEntropyBits:         input.CSRFTokenBytes * 8,
		QueryTokenAllowed:       input.AllowQueryToken,
		ExpiredTokensReported:   input.ExpiredRetention > 0,
		ForwardedHeadersTrusted: len(input.TrustedHeaders) > 0,
		TrustedHeaders:          append([]string(nil), input.TrustedHeaders...),
		StrictBudgetPerMinute:   perMinute,
		AuditActive:             input.AuditEnabled,
		AuditLossy:              input.AuditEnabled && input.AuditDropIfFull,
		MetricsActive:           input.MetricsEnabled,
	}
}
