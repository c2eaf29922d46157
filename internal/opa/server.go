package opa

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/open-policy-agent/opa/v1/runtime"
	"go.uber.org/zap"
)

// Server runs an OPA runtime serving the policies of a directory.
type Server struct {
	config  *Config
	runtime *runtime.Runtime
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewServer(config *Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Initialize starts the runtime and waits until it answers its health endpoint.
func (s *Server) Initialize() error {
	if err := s.startOPARuntime(); err != nil {
		return fmt.Errorf("failed to start OPA runtime: %w", err)
	}

	if err := s.waitForServer(); err != nil {
		s.Shutdown()
		return fmt.Errorf("OPA runtime failed to start: %w", err)
	}

	zap.S().Named("opa").Infof("OPA runtime started successfully on %s", s.Address())
	return nil
}

func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

func (s *Server) startOPARuntime() error {
	params := runtime.Params{
		Addrs: &[]string{s.Address()},
		Paths: []string{s.config.PoliciesDir},
	}

	rt, err := runtime.NewRuntime(s.ctx, params)
	if err != nil {
		return fmt.Errorf("failed to create OPA runtime: %w", err)
	}

	s.runtime = rt
	zap.S().Named("opa").Infof("Starting OPA runtime server on %s with policies from %s", s.Address(), s.config.PoliciesDir)

	go func() {
		defer close(s.done)
		s.runtime.StartServer(s.ctx)
		zap.S().Named("opa").Info("OPA runtime server stopped")
	}()

	return nil
}

func (s *Server) waitForServer() error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(s.config.StartupTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-timeout.C:
			return fmt.Errorf("OPA server did not start within %v", s.config.StartupTimeout)
		case <-ticker.C:
			if s.isOPAServerAlive() {
				return nil
			}
		}
	}
}

func (s *Server) isOPAServerAlive() bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + s.Address() + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *Server) Shutdown() {
	if s.runtime != nil {
		zap.S().Named("opa").Info("Stopping OPA runtime server")
		s.cancel()

		select {
		case <-s.done:
			zap.S().Named("opa").Info("OPA runtime server shutdown complete")
		case <-time.After(5 * time.Second):
			zap.S().Named("opa").Warn("OPA runtime server shutdown timed out after 5 seconds")
		}
	}
}
