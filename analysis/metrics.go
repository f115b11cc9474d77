package analysis

import (
	"github.com/flanksource/quality-unit/models"
)

// computeMetrics aggregates merged issues and parsed files into overall
// quality scores. Scores are 0-100, higher is better.
func computeMetrics(issues []models.Issue, files []models.ParsedFile) models.QualityMetrics {
	metrics := models.QualityMetrics{
		CategoryScores: make(map[models.IssueCategory]float64),
		TotalIssues:    len(issues),
	}

	totalLines := 0
	for _, f := range files {
		totalLines += f.LineCount
	}
	metrics.TotalLines = totalLines

	if len(issues) == 0 {
		metrics.OverallScore = 100
		metrics.MaintainabilityIndex = 100
		for _, category := range models.AllCategories() {
			metrics.CategoryScores[category] = 100
		}
		return metrics
	}

	totalWeight := 0.0
	categoryCounts := make(map[models.IssueCategory]int)
	for _, issue := range issues {
		totalWeight += issue.Severity.Weight()
		categoryCounts[issue.Category]++
	}

	if totalLines > 0 {
		issueDensity := totalWeight / float64(totalLines)
		metrics.OverallScore = clampScore(100 - issueDensity*1000)
		metrics.TechnicalDebtRatio = issueDensity * 1000
	}

	for _, category := range models.AllCategories() {
		ratio := float64(categoryCounts[category]) / float64(len(issues))
		metrics.CategoryScores[category] = clampScore(100 - ratio*100)
	}

	// Declaration density stands in for per-function complexity here;
	// the analyzers carry the detailed complexity findings
	avgDecls := 0.0
	if len(files) > 0 {
		declCount := 0
		for _, f := range files {
			declCount += len(f.Functions) + len(f.Classes)
		}
		avgDecls = float64(declCount) / float64(len(files))
	}
	metrics.MaintainabilityIndex = clampScore(100 - avgDecls*2 - totalWeight/10)

	return metrics
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
