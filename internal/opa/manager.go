package opa

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// Manager owns a local OPA server and the client talking to it.
type Manager struct {
	server  *Server
	client  *Client
	config  *Config
	tempDir string
	running bool
}

type Config struct {
	Host           string
	Port           string
	PoliciesDir    string
	StartupTimeout time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

var _ Gatekeeper = (*Manager)(nil)

// NewManager serves policiesDir on address. An empty policiesDir serves the bundled policy.
func NewManager(address, policiesDir string, requestTimeout time.Duration) (*Manager, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid OPA address %q: %w", address, err)
	}
	return &Manager{
		config: &Config{
			Host:           host,
			Port:           port,
			PoliciesDir:    policiesDir,
			StartupTimeout: 60 * time.Second,
			PollInterval:   500 * time.Millisecond,
			RequestTimeout: requestTimeout,
		},
	}, nil
}

func (m *Manager) Initialize() error {
	if m.config.PoliciesDir == "" {
		dir, err := os.MkdirTemp("", "aerae_opa_")
		if err != nil {
			return fmt.Errorf("failed to create policies directory: %w", err)
		}
		if err := NewPolicyReader().WriteBundledPolicies(dir); err != nil {
			_ = os.RemoveAll(dir)
			return err
		}
		m.tempDir = dir
		m.config.PoliciesDir = dir
	}

	if !isPoliciesDirectory(m.config.PoliciesDir) {
		return fmt.Errorf("policies directory does not exist or contains no .rego files: %s", m.config.PoliciesDir)
	}

	zap.S().Named("opa").Infof("Using policies directory: %s", m.config.PoliciesDir)

	m.server = NewServer(m.config)
	if err := m.server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize OPA server: %w", err)
	}

	m.client = NewClient(m.URL(), m.config.RequestTimeout)
	m.running = true
	zap.S().Named("opa").Infof("OPA manager initialized successfully")
	return nil
}

// URL is the data API endpoint of the ethical gates package on the local server.
func (m *Manager) URL() string {
	return "http://" + net.JoinHostPort(m.config.Host, m.config.Port) + "/v1/data/ethical_gates"
}

func (m *Manager) IsRunning() bool {
	return m.running
}

func (m *Manager) Evaluate(ctx context.Context, payload map[string]any) (*Decision, error) {
	if !m.IsRunning() {
		return unavailableDecision(), nil
	}
	return m.client.Evaluate(ctx, payload)
}

func (m *Manager) Shutdown() {
	if m.server != nil {
		m.server.Shutdown()
	}
	if m.tempDir != "" {
		_ = os.RemoveAll(m.tempDir)
		m.tempDir = ""
	}
	m.running = false
	zap.S().Named("opa").Info("OPA manager shut down")
}
