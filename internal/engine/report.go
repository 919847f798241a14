package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/tagwarden/tagwarden/internal/models"
)

// severityRank orders findings for report output.
var severityRank = map[models.Severity]int{
	models.SeverityHigh:   4,
	models.SeverityMedium: 3,
	models.SeverityLow:    2,
	models.SeverityInfo:   1,
}

// statusRank orders results so problems surface first.
var statusRank = map[models.ApplyStatus]int{
	models.StatusFailed:    5,
	models.StatusBlocked:   4,
	models.StatusTagged:    3,
	models.StatusPlanned:   2,
	models.StatusCompliant: 1,
}

// buildReport assembles the final RunReport from a completed pass.
func buildReport(
	opts RunOptions,
	profileName, accountID string,
	regions []string,
	results []models.ApplyResult,
	findings []models.Finding,
) *models.RunReport {
	return &models.RunReport{
		ReportID:    fmt.Sprintf("%s-%d", opts.Mode, time.Now().UnixNano()),
		GeneratedAt: time.Now().UTC(),
		Mode:        string(opts.Mode),
		DryRun:      opts.DryRun,
		Profile:     profileName,
		AccountID:   accountID,
		Regions:     regions,
		Summary:     computeSummary(results, findings),
		Results:     results,
		Findings:    findings,
	}
}

// computeSummary aggregates per-status and per-severity counts.
func computeSummary(results []models.ApplyResult, findings []models.Finding) models.RunSummary {
	s := models.RunSummary{
		ResourcesScanned: len(results),
		TotalFindings:    len(findings),
	}
	for _, r := range results {
		switch r.Status {
		case models.StatusCompliant:
			s.Compliant++
		case models.StatusTagged:
			s.Tagged++
		case models.StatusPlanned:
			s.Planned++
		case models.StatusFailed:
			s.Failed++
		case models.StatusBlocked:
			s.Blocked++
		}
	}
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityHigh:
			s.HighFindings++
		case models.SeverityMedium:
			s.MediumFindings++
		case models.SeverityLow:
			s.LowFindings++
		}
	}
	return s
}

// sortFindings orders findings by severity (highest first), then region,
// then resource ID for deterministic output.
func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if severityRank[findings[i].Severity] != severityRank[findings[j].Severity] {
			return severityRank[findings[i].Severity] > severityRank[findings[j].Severity]
		}
		if findings[i].Region != findings[j].Region {
			return findings[i].Region < findings[j].Region
		}
		return findings[i].ResourceID < findings[j].ResourceID
	})
}

// sortResults orders results by status (problems first), then region, then
// resource ID for deterministic output.
func sortResults(results []models.ApplyResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if statusRank[results[i].Status] != statusRank[results[j].Status] {
			return statusRank[results[i].Status] > statusRank[results[j].Status]
		}
		if results[i].Region != results[j].Region {
			return results[i].Region < results[j].Region
		}
		return results[i].ResourceID < results[j].ResourceID
	})
}
