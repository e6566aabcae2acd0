// Package lifecycle starts services in registration order and stops them in
// reverse order.
package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/zmlAEQ/aggverify/pkg/logger"
)

// Service is a long-running component owned by a Manager.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Manager struct {
	mu      sync.Mutex
	svcs    []Service
	started []Service
}

func New() *Manager { return &Manager{} }

// Add registers s; nil is ignored.
func (m *Manager) Add(s Service) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.svcs = append(m.svcs, s)
	m.mu.Unlock()
}

// StartAll starts services one by one. On the first failure the services
// already started are stopped and the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	svcs := append([]Service(nil), m.svcs...)
	m.mu.Unlock()
	for _, s := range svcs {
		if err := s.Start(ctx); err != nil {
			logger.ErrorJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "error", "err": err.Error()})
			_ = m.StopAll(context.Background())
			return err
		}
		m.mu.Lock()
		m.started = append(m.started, s)
		m.mu.Unlock()
	}
	return nil
}

// StopAll stops started services in reverse order, one at a time, and joins
// their errors.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil {
			logger.ErrorJ("service_op", map[string]any{"service": started[i].Name(), "op": "stop", "result": "error", "err": err.Error()})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
