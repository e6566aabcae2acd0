// Package config loads node settings from AGGVERIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/backend"
	"github.com/zmlAEQ/aggverify/internal/verifier"
)

const Prefix = "AGGVERIFY"

// Accelerator modes.
const (
	AccelLocal    = "local"
	AccelHostcall = "hostcall"
	AccelP2P      = "p2p"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Curve          string `envconfig:"CURVE" default:"bls12-381"`
	Backend        string `envconfig:"BACKEND" default:"gnark"`
	Accelerator    string `envconfig:"ACCELERATOR" default:"local"`
	APIAddr        string `envconfig:"API_ADDR" default:"127.0.0.1:4700"`
	MonitoringAddr string `envconfig:"MONITORING_ADDR" default:"127.0.0.1:4720"`
	StatePath      string `envconfig:"STATE_PATH"`
	SlotPolicy     string `envconfig:"SLOT_POLICY" default:"overwrite"`
	ResumePending  bool   `envconfig:"RESUME_PENDING"`
	CacheSize      int    `envconfig:"CACHE_SIZE" default:"1024"`
	HostQueue      int    `envconfig:"HOST_QUEUE" default:"16"`
	BusSize        int    `envconfig:"BUS_SIZE" default:"64"`
	P2PListen      string `envconfig:"P2P_LISTEN"`
	P2PPeer        string `envconfig:"P2P_PEER"`
	// RosterPath points at a JSON roster {generator, public_keys} used to
	// initialize the verifier at start.
	RosterPath string `envconfig:"ROSTER_PATH"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

func (c Config) CurveID() curve.ID { return curve.ID(c.Curve) }

func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) { errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)) }

	if !c.CurveID().Valid() { bad("curve %q", c.Curve) }
	switch c.Backend {
	case backend.Gnark:
	case backend.Blst:
		if curve.ID(c.Curve) != curve.BLS12381 { bad("backend %q supports only %s", c.Backend, curve.BLS12381) }
	default:
		bad("backend %q", c.Backend)
	}
	switch c.Accelerator {
	case AccelLocal, AccelHostcall:
	case AccelP2P:
		if c.P2PListen == "" && c.P2PPeer == "" { bad("accelerator p2p needs P2P_LISTEN or P2P_PEER") }
	default:
		bad("accelerator %q", c.Accelerator)
	}
	if _, err := verifier.ParsePolicy(c.SlotPolicy); err != nil { bad("slot policy %q", c.SlotPolicy) }
	if c.CacheSize < 0 { bad("cache size %d", c.CacheSize) }
	if c.HostQueue <= 0 { bad("host queue %d", c.HostQueue) }
	if c.BusSize <= 0 { bad("bus size %d", c.BusSize) }
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		bad("log level %q", c.LogLevel)
	}
	if c.APIAddr == "" { bad("api addr empty") }
	return errors.Join(errs...)
}

// LoadRoster reads the JSON roster named by RosterPath.
func (c Config) LoadRoster() (*verifier.Init, error) {
	if c.RosterPath == "" { return nil, nil }
	raw, err := os.ReadFile(c.RosterPath)
	if err != nil { return nil, err }
	return ParseRoster(raw)
}
