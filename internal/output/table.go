package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/tagwarden/tagwarden/internal/models"
)

// ANSI color codes for status and severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiGreen   = "\033[0;32m"
	ansiBlue    = "\033[0;34m"
)

// TableOptions controls how RenderResults and RenderFindings colour and
// extend their output.
type TableOptions struct {
	// Colored wraps status and severity labels with ANSI codes.
	// Default false (CI-safe).
	Colored bool

	// IncludeProfile adds a PROFILE column to the findings table (useful
	// with --all-profiles).
	IncludeProfile bool
}

// ShortenMessage truncates msg to at most max runes, appending "..." when
// truncated. max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// truncateField shortens s to at most max runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// coloredCell pads text to width characters, wrapping only the text with the
// ANSI code so trailing padding spaces stay plain and columns align on
// terminals without ANSI support.
func coloredCell(text, code string, width int, colored bool) string {
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

func statusColor(status models.ApplyStatus) string {
	switch status {
	case models.StatusFailed:
		return ansiBoldRed
	case models.StatusBlocked:
		return ansiRed
	case models.StatusTagged:
		return ansiGreen
	case models.StatusPlanned:
		return ansiYellow
	case models.StatusCompliant:
		return ansiBlue
	default:
		return ""
	}
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityHigh:
		return ansiRed
	case models.SeverityMedium:
		return ansiYellow
	case models.SeverityLow:
		return ansiBlue
	default:
		return ""
	}
}

// RenderResults writes a formatted per-resource result table to w.
//
// Column order:
//
//	RESOURCE ID  TYPE  REGION  STATUS  TAGS
//
// TAGS lists the keys written (or planned); failed rows show the error
// message instead.
func RenderResults(w io.Writer, results []models.ApplyResult, opts TableOptions) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No resources in scope.")
		return
	}

	const (
		wResource = 30
		wType     = 14
		wRegion   = 15
		wStatus   = 10
		wTags     = 50
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s",
		wResource, "RESOURCE ID",
		wType, "TYPE",
		wRegion, "REGION",
		wStatus, "STATUS",
		wTags, "TAGS")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range results {
		detail := strings.Join(r.TagsApplied, ", ")
		if r.Status == models.StatusFailed && r.Error != "" {
			detail = r.Error
		}
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(r.ResourceID, wResource)))
		rb.WriteString(fmt.Sprintf("  %-*s", wType, truncateField(string(r.Kind), wType)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(r.Region, wRegion)))
		rb.WriteString("  " + coloredCell(string(r.Status), statusColor(r.Status), wStatus, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wTags, ShortenMessage(detail, wTags)))
		fmt.Fprintln(w, rb.String())
	}
}

// RenderFindings writes a formatted compliance findings table to w.
//
// Column order:
//
//	RESOURCE ID  [PROFILE]  REGION  SEVERITY  CHECK  MESSAGE
func RenderFindings(w io.Writer, findings []models.Finding, opts TableOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	const (
		wResource = 30
		wProfile  = 12
		wRegion   = 15
		wSeverity = 10
		wCheck    = 20
		wMessage  = 55
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE ID"))
	if opts.IncludeProfile {
		hb.WriteString(fmt.Sprintf("  %-*s", wProfile, "PROFILE"))
	}
	hb.WriteString(fmt.Sprintf("  %-*s", wRegion, "REGION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wSeverity, "SEVERITY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wCheck, "CHECK"))
	hb.WriteString(fmt.Sprintf("  %-*s", wMessage, "MESSAGE"))
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, f := range findings {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(f.ResourceID, wResource)))
		if opts.IncludeProfile {
			rb.WriteString(fmt.Sprintf("  %-*s", wProfile, truncateField(f.Profile, wProfile)))
		}
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(f.Region, wRegion)))
		rb.WriteString("  " + coloredCell(string(f.Severity), severityColor(f.Severity), wSeverity, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wCheck, truncateField(f.CheckID, wCheck)))
		rb.WriteString(fmt.Sprintf("  %-*s", wMessage, ShortenMessage(f.Explanation, wMessage)))
		fmt.Fprintln(w, rb.String())
	}
}
