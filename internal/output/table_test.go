package output_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/output"
)

func renderResults(results []models.ApplyResult, opts output.TableOptions) string {
	var buf bytes.Buffer
	output.RenderResults(&buf, results, opts)
	return buf.String()
}

func renderFindings(findings []models.Finding, opts output.TableOptions) string {
	var buf bytes.Buffer
	output.RenderFindings(&buf, findings, opts)
	return buf.String()
}

func oneResult(overrides ...func(*models.ApplyResult)) models.ApplyResult {
	r := models.ApplyResult{
		ResourceID:  "i-0123456789abcdef0",
		Kind:        models.ResourceEC2Instance,
		Region:      "us-east-1",
		Status:      models.StatusTagged,
		TagsApplied: []string{"owner", "env"},
	}
	for _, fn := range overrides {
		fn(&r)
	}
	return r
}

func oneFinding(overrides ...func(*models.Finding)) models.Finding {
	f := models.Finding{
		ResourceID:  "i-0123456789abcdef0",
		CheckID:     "MISSING_TAG",
		Kind:        models.ResourceEC2Instance,
		Region:      "us-east-1",
		Profile:     "prod",
		Severity:    models.SeverityHigh,
		Explanation: "missing required tag keys: env, owner",
	}
	for _, fn := range overrides {
		fn(&f)
	}
	return f
}

func TestRenderResults_Columns(t *testing.T) {
	out := renderResults([]models.ApplyResult{oneResult()}, output.TableOptions{})
	for _, want := range []string{"RESOURCE ID", "TYPE", "REGION", "STATUS", "TAGS",
		"i-0123456789abcdef0", "EC2_INSTANCE", "tagged", "owner, env"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output\ngot:\n%s", want, out)
		}
	}
}

func TestRenderResults_FailedRowShowsError(t *testing.T) {
	out := renderResults([]models.ApplyResult{oneResult(func(r *models.ApplyResult) {
		r.Status = models.StatusFailed
		r.TagsApplied = nil
		r.Error = "AccessDenied while tagging"
	})}, output.TableOptions{})
	if !strings.Contains(out, "AccessDenied while tagging") {
		t.Errorf("expected error message in failed row\ngot:\n%s", out)
	}
}

func TestRenderResults_Empty(t *testing.T) {
	out := renderResults(nil, output.TableOptions{})
	if !strings.Contains(out, "No resources in scope.") {
		t.Errorf("got:\n%s", out)
	}
}

func TestRenderResults_ColoredStatus(t *testing.T) {
	out := renderResults([]models.ApplyResult{oneResult()}, output.TableOptions{Colored: true})
	if !strings.Contains(out, "\033[0;32mtagged\033[0m") {
		t.Errorf("expected green tagged status\ngot:\n%q", out)
	}

	plain := renderResults([]models.ApplyResult{oneResult()}, output.TableOptions{})
	if strings.Contains(plain, "\033[") {
		t.Errorf("uncolored output must not contain ANSI codes\ngot:\n%q", plain)
	}
}

func TestRenderResults_TruncatesMultibyteID(t *testing.T) {
	out := renderResults([]models.ApplyResult{oneResult(func(r *models.ApplyResult) {
		r.ResourceID = strings.Repeat("ü", 40)
	})}, output.TableOptions{})
	if !utf8.ValidString(out) {
		t.Fatalf("truncation split a rune\ngot:\n%q", out)
	}
	if !strings.Contains(out, strings.Repeat("ü", 29)+"…") {
		t.Errorf("expected 29 runes plus ellipsis\ngot:\n%s", out)
	}
}

func TestRenderFindings_ProfileColumn(t *testing.T) {
	out := renderFindings([]models.Finding{oneFinding()}, output.TableOptions{IncludeProfile: true})
	if !strings.Contains(out, "PROFILE") || !strings.Contains(out, "prod") {
		t.Errorf("expected PROFILE column with value\ngot:\n%s", out)
	}

	out = renderFindings([]models.Finding{oneFinding()}, output.TableOptions{})
	if strings.Contains(out, "PROFILE") {
		t.Errorf("PROFILE column must not appear by default\ngot:\n%s", out)
	}
}

func TestRenderFindings_Empty(t *testing.T) {
	out := renderFindings(nil, output.TableOptions{})
	if !strings.Contains(out, "No findings.") {
		t.Errorf("got:\n%s", out)
	}
}

func TestShortenMessage(t *testing.T) {
	if got := output.ShortenMessage("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := output.ShortenMessage("a very long explanation", 10); got != "a very ..." {
		t.Errorf("got %q", got)
	}
}
