package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	regionsResult []string
	regionsErr    error
	lastProfile   string // records the profile name passed to LoadProfile
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) LoadAllProfiles(_ context.Context) ([]*common.ProfileConfig, error) {
	if m.profileResult != nil {
		return []*common.ProfileConfig{m.profileResult}, nil
	}
	return nil, m.profileErr
}

func (m *mockAWSProvider) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	return m.regionsResult, m.regionsErr
}

func (m *mockAWSProvider) ConfigForRegion(_ *common.ProfileConfig, _ string) aws.Config {
	return aws.Config{}
}

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			AccountID: "123456789012",
			Region:    "us-east-1",
		},
		regionsResult: []string{"us-east-1", "eu-west-1"},
	}
}

const validPolicyYAML = "version: 1\ntags:\n  owner: platform\n"

// writeTempPolicy writes a policy fixture and returns its path.
func writeTempPolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagwarden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runDoctorWith runs runDoctor against a mock provider with explicit policy
// and config paths, returning the captured output and result.
func runDoctorWith(t *testing.T, awsP common.AWSClientProvider, format, profile, policyPath, configPath string) (string, DoctorResult, error) {
	t.Helper()
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "no-config.yaml")
	}
	var buf bytes.Buffer
	result, runErr := runDoctor(context.Background(), awsP, &buf, format, profile, policyPath, configPath)
	return buf.String(), result, runErr
}

func TestDoctorAllOK(t *testing.T) {
	policyPath := writeTempPolicy(t, validPolicyYAML)

	out, result, err := runDoctorWith(t, goodMockAWS(), "table", "", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Errorf("expected OverallHealthy=true; got %+v", result)
	}
	for _, want := range []string{
		"Credentials: OK",
		"STS Identity: OK",
		"Regions API: OK",
		"Policy valid: OK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestDoctorCredentialsFail(t *testing.T) {
	awsP := &mockAWSProvider{profileErr: errors.New("no credentials found")}
	policyPath := writeTempPolicy(t, validPolicyYAML)

	out, result, err := runDoctorWith(t, awsP, "table", "", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "Credentials: FAIL (no credentials found)") {
		t.Errorf("output missing credentials failure;\ngot:\n%s", out)
	}
}

func TestDoctorRegionsFail(t *testing.T) {
	awsP := goodMockAWS()
	awsP.regionsErr = errors.New("describe regions denied")
	policyPath := writeTempPolicy(t, validPolicyYAML)

	_, result, err := runDoctorWith(t, awsP, "table", "", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.AWS.RegionsOK {
		t.Errorf("regions failure must be unhealthy; got %+v", result.AWS)
	}
}

func TestDoctorPolicyMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	out, result, err := runDoctorWith(t, goodMockAWS(), "table", "", missing, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.Policy.Present {
		t.Errorf("missing policy must be unhealthy; got %+v", result.Policy)
	}
	if !strings.Contains(out, "Not found") {
		t.Errorf("output missing policy status;\ngot:\n%s", out)
	}
}

func TestDoctorPolicyInvalid(t *testing.T) {
	policyPath := writeTempPolicy(t, "version: 1\ntags:\n  aws:reserved: x\n")

	_, result, err := runDoctorWith(t, goodMockAWS(), "table", "", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.Policy.Valid {
		t.Errorf("invalid policy must be unhealthy; got %+v", result.Policy)
	}
	if len(result.Policy.Errors) == 0 {
		t.Error("expected validation errors")
	}
}

func TestDoctorProfileForwarded(t *testing.T) {
	awsP := goodMockAWS()
	policyPath := writeTempPolicy(t, validPolicyYAML)

	_, _, err := runDoctorWith(t, awsP, "table", "prod", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if awsP.lastProfile != "prod" {
		t.Errorf("profile: got %q, want prod", awsP.lastProfile)
	}
}

func TestDoctorJSONFormat(t *testing.T) {
	policyPath := writeTempPolicy(t, validPolicyYAML)

	out, _, err := runDoctorWith(t, goodMockAWS(), "json", "", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	var decoded DoctorResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("doctor JSON output does not parse: %v\ngot:\n%s", err, out)
	}
	if !decoded.OverallHealthy || decoded.AWS.AccountID != "123456789012" {
		t.Errorf("decoded result: %+v", decoded)
	}
}

// writeTempConfig writes an app config fixture and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDoctorWebhookReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	policyPath := writeTempPolicy(t, validPolicyYAML)
	configPath := writeTempConfig(t, "notify:\n  webhook_url: "+srv.URL+"\n")

	out, result, err := runDoctorWith(t, goodMockAWS(), "table", "", policyPath, configPath)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy || !result.Notify.Configured || !result.Notify.Reachable {
		t.Errorf("reachable webhook must be healthy; got %+v", result.Notify)
	}
	if !strings.Contains(out, "Webhook: OK") {
		t.Errorf("output missing webhook status;\ngot:\n%s", out)
	}
}

func TestDoctorWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens on the URL anymore

	policyPath := writeTempPolicy(t, validPolicyYAML)
	configPath := writeTempConfig(t, "notify:\n  webhook_url: "+srv.URL+"\n")

	out, result, err := runDoctorWith(t, goodMockAWS(), "table", "", policyPath, configPath)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.Notify.Reachable || result.Notify.Error == "" {
		t.Errorf("unreachable webhook must be unhealthy; got %+v", result.Notify)
	}
	if !strings.Contains(out, "Webhook: FAIL") {
		t.Errorf("output missing webhook failure;\ngot:\n%s", out)
	}
}

func TestDoctorWebhookNotConfigured(t *testing.T) {
	policyPath := writeTempPolicy(t, validPolicyYAML)

	out, result, err := runDoctorWith(t, goodMockAWS(), "table", "", policyPath, "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy || result.Notify.Configured {
		t.Errorf("missing webhook must stay healthy; got %+v", result.Notify)
	}
	if !strings.Contains(out, "Not configured (optional)") {
		t.Errorf("output missing webhook status;\ngot:\n%s", out)
	}
}

func TestDoctorConfigMalformed(t *testing.T) {
	policyPath := writeTempPolicy(t, validPolicyYAML)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("aws: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, result, err := runDoctorWith(t, goodMockAWS(), "table", "", policyPath, configPath)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.Config.Error == "" {
		t.Errorf("malformed config must be unhealthy; got %+v", result.Config)
	}
}
