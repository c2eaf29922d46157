package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aerae/accelerator/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultScanTimeout = 120 * time.Second

	redacted = "REDACTED"
)

// Finding is a single gitleaks report entry, kept as the tool wrote it apart from redaction.
type Finding map[string]any

// ScanResult is what the pipeline records about a secret scan. When Success is false
// SecretsFound is zero and Error says why.
type ScanResult struct {
	SecretsFound int       `json:"secrets_found"`
	Findings     []Finding `json:"findings"`
	Success      bool      `json:"scan_successful"`
	Error        string    `json:"error,omitempty"`
}

type SecretScanner struct {
	binary  string
	timeout time.Duration
}

func NewSecretScanner(binary string, timeout time.Duration) *SecretScanner {
	if binary == "" {
		binary = "gitleaks"
	}
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	return &SecretScanner{binary: binary, timeout: timeout}
}

// Scan runs gitleaks over dir without git history. Tool failures and timeouts are reported in
// the result; only a missing binary or a bad target are returned as errors.
func (s *SecretScanner) Scan(ctx context.Context, dir string) (*ScanResult, error) {
	logger := zap.S().Named("secret_scanner")

	bin, err := exec.LookPath(s.binary)
	if err != nil {
		metrics.IncreaseSecretScanMetric("not_installed")
		return nil, errors.Wrapf(ErrScannerNotInstalled, "looking up %q", s.binary)
	}

	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, errors.Errorf("scan target is not a directory: %s", dir)
	}

	report, err := os.CreateTemp("", "gitleaks_report_*.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gitleaks report file")
	}
	reportPath := report.Name()
	_ = report.Close()
	defer func() {
		_ = os.Remove(reportPath)
	}()

	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(scanCtx, bin,
		"detect",
		"--source", dir,
		"--report-format", "json",
		"--report-path", reportPath,
		"--no-git",
	)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()

	if scanCtx.Err() == context.DeadlineExceeded {
		logger.Errorf("gitleaks scan timed out for %s", dir)
		metrics.IncreaseSecretScanMetric("timeout")
		return failedScan(fmt.Sprintf("Gitleaks scan timed out after %d seconds", int(s.timeout.Seconds()))), nil
	}

	code := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			metrics.IncreaseSecretScanMetric("error")
			return failedScan(runErr.Error()), nil
		}
		code = exitErr.ExitCode()
	}

	// 0 means clean, 1 means leaks were found, anything else is a tool error
	if code > 1 || code < 0 {
		logger.Errorf("gitleaks returned error code %d: %s", code, stderr.String())
		metrics.IncreaseSecretScanMetric("error")
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = fmt.Sprintf("Gitleaks exit code %d", code)
		}
		return failedScan(msg), nil
	}

	findings := parseReport(reportPath)
	logger.Infof("gitleaks scan complete for %s: %d secret(s) found", dir, len(findings))
	metrics.IncreaseSecretScanMetric("success")

	return &ScanResult{
		SecretsFound: len(findings),
		Findings:     findings,
		Success:      true,
	}, nil
}

func failedScan(msg string) *ScanResult {
	return &ScanResult{
		Findings: []Finding{},
		Error:    msg,
	}
}

func parseReport(reportPath string) []Finding {
	findings := []Finding{}

	data, err := os.ReadFile(reportPath)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return findings
	}

	if err := json.Unmarshal(data, &findings); err != nil {
		zap.S().Named("secret_scanner").Warnf("failed to parse gitleaks report: %v", err)
		return []Finding{}
	}

	for _, f := range findings {
		f.redact()
	}
	return findings
}

func (f Finding) redact() {
	for _, k := range []string{"Secret", "Match"} {
		if _, ok := f[k]; ok {
			f[k] = redacted
		}
	}
}
