package opa

import (
	"fmt"

	"github.com/aerae/accelerator/internal/config"
	"go.uber.org/zap"
)

const (
	ModeRemote   = "remote"
	ModeEmbedded = "embedded"
	ModeLocal    = "local"
)

// NewGatekeeper builds the gatekeeper selected by the OPA mode. The returned func releases
// whatever the gatekeeper started and is never nil.
func NewGatekeeper(cfg *config.Config) (Gatekeeper, func(), error) {
	noop := func() {}

	switch cfg.Opa.Mode {
	case "", ModeRemote:
		zap.S().Named("opa").Infof("evaluating ethical gates on %s", cfg.Opa.URL)
		return NewClient(cfg.Opa.URL, cfg.Opa.Timeout), noop, nil
	case ModeEmbedded:
		dir := cfg.Opa.PoliciesDir
		if dir == "" {
			dir = NewPolicyReader().DiscoverPoliciesDirectory()
		}
		if dir == "" {
			v, err := NewBundledValidator()
			return v, noop, err
		}
		v, err := NewValidatorFromDir(dir)
		return v, noop, err
	case ModeLocal:
		m, err := NewManager(cfg.Opa.Address, cfg.Opa.PoliciesDir, cfg.Opa.Timeout)
		if err != nil {
			return nil, noop, err
		}
		if err := m.Initialize(); err != nil {
			m.Shutdown()
			return nil, noop, err
		}
		return m, m.Shutdown, nil
	default:
		return nil, noop, fmt.Errorf("unknown OPA mode %q", cfg.Opa.Mode)
	}
}
