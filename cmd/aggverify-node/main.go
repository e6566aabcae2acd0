package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zmlAEQ/aggverify/internal/config"
	"github.com/zmlAEQ/aggverify/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// flags may still fix what the environment got wrong
		logger.WarnJ("config_env", map[string]any{"err": err.Error()})
	}
	flag.StringVar(&cfg.Curve, "curve", cfg.Curve, "Curve family: bls12-381 | bn254")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "Pairing backend: gnark | blst (blst needs the 'blst' build tag)")
	flag.StringVar(&cfg.Accelerator, "accelerator", cfg.Accelerator, "Pairing accelerator: local | hostcall | p2p")
	flag.StringVar(&cfg.APIAddr, "api", cfg.APIAddr, "CloudEvents API listen address")
	flag.StringVar(&cfg.MonitoringAddr, "monitoring", cfg.MonitoringAddr, "Monitoring listen address")
	flag.StringVar(&cfg.StatePath, "state", cfg.StatePath, "Pending slot file; empty keeps the slot in memory")
	flag.StringVar(&cfg.SlotPolicy, "slot-policy", cfg.SlotPolicy, "Accumulate while pending: overwrite | reject")
	flag.BoolVar(&cfg.ResumePending, "resume", cfg.ResumePending, "Keep a pending slot found at start")
	flag.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Decoded point cache entries; 0 disables")
	flag.StringVar(&cfg.P2PListen, "p2p.listen", cfg.P2PListen, "Serve this node's accelerator on a libp2p multiaddr")
	flag.StringVar(&cfg.P2PPeer, "p2p.peer", cfg.P2PPeer, "Remote accelerator /p2p/ multiaddr")
	flag.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "JSON roster {generator, public_keys} to initialize at start")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug | info | warn | error")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Error(err.Error())
		os.Exit(2)
	}
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := build(cfg)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if err := n.m.StartAll(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	<-ctx.Done()
	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = n.m.StopAll(stopCtx)
}
