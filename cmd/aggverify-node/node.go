package main

import (
	"github.com/zmlAEQ/aggverify/internal/api"
	"github.com/zmlAEQ/aggverify/internal/config"
	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/backend"
	"github.com/zmlAEQ/aggverify/internal/hostcall"
	"github.com/zmlAEQ/aggverify/internal/monitoring"
	"github.com/zmlAEQ/aggverify/internal/p2p"
	"github.com/zmlAEQ/aggverify/internal/service"
	"github.com/zmlAEQ/aggverify/internal/state"
	"github.com/zmlAEQ/aggverify/internal/verifier"
	"github.com/zmlAEQ/aggverify/pkg/bus"
	"github.com/zmlAEQ/aggverify/pkg/lifecycle"
	"github.com/zmlAEQ/aggverify/pkg/logger"
)

type node struct {
	m   *lifecycle.Manager
	svc *service.Service
	api *api.Service
	mon *monitoring.Service
}

// build wires the services named by cfg in start order: accelerator, verifier
// dispatcher, api, monitoring.
func build(cfg config.Config) (*node, error) {
	local, err := backend.Open(cfg.CurveID(), cfg.Backend, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	m := lifecycle.New()

	var p curve.Provider = local
	switch cfg.Accelerator {
	case config.AccelHostcall:
		h := hostcall.NewHost(local, cfg.HostQueue)
		m.Add(h)
		p = hostcall.NewClient(local, h)
	case config.AccelP2P:
		if cfg.P2PListen != "" {
			h := hostcall.NewHost(local, cfg.HostQueue)
			srv, err := p2p.NewServer(p2p.NetConfig{Enable: true, Listen: []string{cfg.P2PListen}}, h)
			if err != nil {
				return nil, err
			}
			m.Add(h)
			m.Add(p2p.NewNetService("p2p-server", srv))
			p = hostcall.NewClient(local, h)
		}
		if cfg.P2PPeer != "" {
			d, err := p2p.NewDialer(p2p.NetConfig{Enable: true, Peer: cfg.P2PPeer})
			if err != nil {
				return nil, err
			}
			m.Add(p2p.NewNetService("p2p-dialer", d))
			p = hostcall.NewClient(local, d)
		}
	}

	var store state.Store = state.NewMemoryStore()
	if cfg.StatePath != "" {
		store = state.NewFileStore(cfg.StatePath)
	}
	policy, err := verifier.ParsePolicy(cfg.SlotPolicy)
	if err != nil {
		return nil, err
	}
	opts := []verifier.Option{verifier.WithPolicy(policy)}
	if cfg.ResumePending {
		opts = append(opts, verifier.WithResume())
	}

	svc := service.New(p, store, bus.New(cfg.BusSize), opts...)
	roster, err := cfg.LoadRoster()
	if err != nil {
		return nil, err
	}
	if roster != nil {
		svc.SetInit(*roster)
	}
	n := &node{m: m, svc: svc, api: api.New(cfg.APIAddr, svc), mon: monitoring.New(cfg.MonitoringAddr)}
	m.Add(svc)
	m.Add(n.api)
	m.Add(n.mon)
	logger.InfoJ("node_config", map[string]any{
		"curve": cfg.Curve, "backend": cfg.Backend, "accelerator": cfg.Accelerator,
		"state_path": cfg.StatePath, "slot_policy": policy.String(), "resume": cfg.ResumePending,
		"roster": roster != nil,
	})
	return n, nil
}
