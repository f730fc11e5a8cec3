package pipeline

import "strings"

type DetectResult struct {
	IsReport bool
	Score    float64
	Reason   string
}

// Labels printed by the diagnostic tool; a handful of them is enough to tell
// a report apart from an ordinary mail body.
var detectKeywords = []string{
	"device model", "device color", "hard disk capacity", "serial number",
	"imei", "battery life", "battery health", "product type", "ios version",
	"verification report", "3utools",
}

// DetectReport scores text by how many report labels it carries.
func DetectReport(text string) DetectResult {
	lower := strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
		}
	}
	if strings.Count(lower, "normal") >= 3 {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}

	isReport := score >= 0.45
	reason := "rules_negative"
	if isReport {
		reason = "rules_positive"
	}

	return DetectResult{IsReport: isReport, Score: score, Reason: reason}
}
