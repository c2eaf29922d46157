package opa

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

//go:embed policies/*.rego
var bundled embed.FS

const policiesDirEnv = "OPA_POLICIES_DIR"

var defaultPoliciesDirs = []string{"/app/policies", "/usr/share/aerae/policies"}

// PolicyReader Handle policy discovery and file reading
type PolicyReader struct{}

func NewPolicyReader() *PolicyReader {
	return &PolicyReader{}
}

// DiscoverPoliciesDirectory returns the directory named by OPA_POLICIES_DIR, or the first default
// location holding .rego files. It returns "" when none qualifies.
func (pr *PolicyReader) DiscoverPoliciesDirectory() string {
	if dir := os.Getenv(policiesDirEnv); dir != "" {
		if isPoliciesDirectory(dir) {
			return dir
		}
		zap.S().Named("opa").Warnf("%s is set to %s which holds no policies", policiesDirEnv, dir)
		return ""
	}

	for _, dir := range defaultPoliciesDirs {
		if isPoliciesDirectory(dir) {
			return dir
		}
	}
	return ""
}

// ReadPolicies Read all .rego policy files from the specified directory
func (pr *PolicyReader) ReadPolicies(policiesDir string) (map[string]string, error) {
	if _, err := os.Stat(policiesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("policies directory does not exist: %s", policiesDir)
	}

	entries, err := os.ReadDir(policiesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read policies directory: %w", err)
	}

	policies := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isPolicyFile(entry.Name()) {
			continue
		}

		path := filepath.Join(policiesDir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
		}

		policies[entry.Name()] = string(content)
		zap.S().Named("opa").Debugf("Read policy: %s", entry.Name())
	}

	if len(policies) == 0 {
		return nil, fmt.Errorf("no .rego policy files found in directory: %s", policiesDir)
	}

	zap.S().Named("opa").Infof("Successfully read %d policy files from: %s", len(policies), policiesDir)
	return policies, nil
}

// BundledPolicies returns the ethical gates policy shipped with the binary.
func (pr *PolicyReader) BundledPolicies() map[string]string {
	policies := make(map[string]string)
	_ = fs.WalkDir(bundled, "policies", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isPolicyFile(d.Name()) {
			return err
		}
		content, err := bundled.ReadFile(path)
		if err != nil {
			return err
		}
		policies[d.Name()] = string(content)
		return nil
	})
	return policies
}

// WriteBundledPolicies copies the bundled policies into dir.
func (pr *PolicyReader) WriteBundledPolicies(dir string) error {
	for name, content := range pr.BundledPolicies() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write policy %s: %w", name, err)
		}
	}
	return nil
}

func isPolicyFile(name string) bool {
	return strings.HasSuffix(name, ".rego") && !strings.HasSuffix(name, "_test.rego")
}

func isPoliciesDirectory(dir string) bool {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return false
	}

	return len(files) > 0
}
