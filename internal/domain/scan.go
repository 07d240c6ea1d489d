package domain

// ScanResult is the response of a scan/grade run over a shop's catalog.
type ScanResult struct {
	Shop                *Shop       `json:"shop"`
	Images              []*ImageLog `json:"images"` // heavy subset, sorted by descending original size
	TotalImages         int         `json:"totalImages"`
	TotalHeavyImages    int         `json:"totalHeavyImages"`
	TotalHeavyBytes     int64       `json:"totalHeavyBytes"`
	PotentialSavedBytes int64       `json:"potentialSavedBytes"`
	PotentialTimeSaved  float64     `json:"potentialTimeSaved"` // seconds
	Grade               string      `json:"grade"`
	CatalogSource       string      `json:"catalogSource"` // "live" or "mock"
	Vitals              *WebVitals  `json:"vitals,omitempty"`
}

// WebVitals carries the Core Web Vitals block derived from a page-speed
// lookup, classified against fixed thresholds.
type WebVitals struct {
	LCP              float64 `json:"lcp"` // seconds
	INP              float64 `json:"inp"` // milliseconds
	CLS              float64 `json:"cls"`
	PerformanceScore int     `json:"performanceScore"`
	Status           string  `json:"status"` // good | needs-improvement | poor
}

const (
	VitalsGood             = "good"
	VitalsNeedsImprovement = "needs-improvement"
	VitalsPoor             = "poor"
)

// ClassifyVitals applies the fixed LCP/CLS thresholds: LCP above 4.0s or CLS
// above 0.25 is poor, LCP above 2.5s or CLS above 0.1 needs improvement.
func ClassifyVitals(lcpSeconds, cls float64) string {
	if lcpSeconds > 4.0 || cls > 0.25 {
		return VitalsPoor
	}
	if lcpSeconds > 2.5 || cls > 0.1 {
		return VitalsNeedsImprovement
	}
	return VitalsGood
}
