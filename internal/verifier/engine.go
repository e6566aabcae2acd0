// Package verifier checks BLS-style aggregate signatures: public keys in G2,
// the hashed message and signatures in G1, accepted when
// e(M, sum(P_i)) == e(sum(S_i), G).
//
// The check runs either in one call (VerifyDirect) or in two phases split at
// the Miller loop / final exponentiation seam: Accumulate stores both Miller
// loop outputs in a single state slot and Finalize exponentiates and compares
// them. A Verifier is not safe for concurrent use; internal/service owns one
// and serializes requests to it.
package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/state"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
	"github.com/zmlAEQ/aggverify/pkg/trace"
)

// Policy decides what Accumulate does while a verification is pending.
type Policy int

const (
	// PolicyOverwrite discards the pending pair; the latest Accumulate wins.
	PolicyOverwrite Policy = iota
	// PolicyReject fails the second Accumulate with ErrPending.
	PolicyReject
)

func (p Policy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "overwrite"
}

// ParsePolicy maps "overwrite" and "reject" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "overwrite", "":
		return PolicyOverwrite, nil
	case "reject":
		return PolicyReject, nil
	default:
		return 0, fmt.Errorf("unknown slot policy %q", s)
	}
}

// Init is the one-time initialization input.
type Init struct {
	Generator  []byte   // compressed G2
	PublicKeys [][]byte // compressed G2
}

type options struct {
	policy Policy
	resume bool
	now    func() time.Time
}

// Option configures New.
type Option func(*options)

func WithPolicy(p Policy) Option { return func(o *options) { o.policy = p } }

// WithResume keeps a pending pair found in the store at construction, provided
// it was accumulated on the same curve. Without it the slot starts empty.
func WithResume() Option { return func(o *options) { o.resume = true } }

// WithClock sets the clock stamping accumulated pairs.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// Verifier holds the generator, the aggregate public key and the state slot.
type Verifier struct {
	p      curve.Provider
	keys   KeySet
	store  state.Store
	policy Policy
	now    func() time.Time
}

// New aggregates init's public keys once and prepares the state slot.
func New(ctx context.Context, p curve.Provider, store state.Store, init Init, opts ...Option) (*Verifier, error) {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if store == nil {
		store = state.NewMemoryStore()
	}
	begin := time.Now()
	keys, err := AggregatePublicKeys(p, init.Generator, init.PublicKeys)
	if err != nil {
		observe(ctx, "init", begin, err, nil)
		return nil, err
	}
	v := &Verifier{p: p, keys: keys, store: store, policy: o.policy, now: o.now}
	if err := v.prepareSlot(ctx, o.resume); err != nil {
		observe(ctx, "init", begin, err, nil)
		return nil, err
	}
	observe(ctx, "init", begin, nil, map[string]any{"curve": string(p.Curve()), "keys": len(keys.Keys), "policy": o.policy.String()})
	return v, nil
}

func (v *Verifier) prepareSlot(ctx context.Context, resume bool) error {
	pend, ok, err := v.store.Load(ctx)
	if err != nil && !resume {
		// a corrupt slot is simply replaced when not resuming
		logger.WarnJ("aggverify_slot", map[string]any{"op": "load", "result": "discard", "err": err.Error()})
		ok = true
	} else if err != nil {
		return fail("init", ErrState, err)
	}
	if ok && resume && pend.Curve == v.p.Curve() {
		logger.InfoJ("aggverify_slot", map[string]any{"op": "resume", "result": "ok", "accumulated": pend.Accumulated})
		metrics.SetGauge("aggverify_slot_pending", nil, 1)
		return nil
	}
	if ok {
		if err := v.store.Clear(ctx); err != nil {
			return fail("init", ErrState, err)
		}
	}
	metrics.SetGauge("aggverify_slot_pending", nil, 0)
	return nil
}

func (v *Verifier) Curve() curve.ID                 { return v.p.Curve() }
func (v *Verifier) Generator() curve.Point          { return v.keys.Generator.Clone() }
func (v *Verifier) AggregatePublicKey() curve.Point { return v.keys.Aggregate.Clone() }

// PublicKeys returns a copy of the decoded roster in submission order.
func (v *Verifier) PublicKeys() []curve.Point {
	out := make([]curve.Point, len(v.keys.Keys))
	for i, k := range v.keys.Keys {
		out[i] = k.Clone()
	}
	return out
}

// Pending reports whether a two-phase verification awaits Finalize.
func (v *Verifier) Pending(ctx context.Context) (bool, error) {
	_, ok, err := v.store.Load(ctx)
	if err != nil {
		return false, fail("pending", ErrState, err)
	}
	return ok, nil
}

// Accumulate is phase one: it aggregates the signatures, computes
// L = miller_loop(message, aggregate key) and then R = miller_loop(aggregate
// signature, generator), and stores (L, R). On error the slot is untouched.
func (v *Verifier) Accumulate(ctx context.Context, message []byte, sigs [][]byte) (err error) {
	const op = "accumulate"
	begin := time.Now()
	var overwrote bool
	defer func() { observe(ctx, op, begin, err, map[string]any{"signatures": len(sigs), "overwrote": overwrote}) }()

	if v.policy == PolicyReject {
		pending, err := v.Pending(ctx)
		if err != nil {
			return err
		}
		if pending {
			return fail(op, ErrPending, nil)
		}
	}
	m, err := decodeMessage(v.p, op, message)
	if err != nil {
		return err
	}
	s, err := AggregateSignatures(v.p, sigs)
	if err != nil {
		return err
	}
	l, err := v.p.MultiMillerLoop(ctx, []curve.Point{m}, []curve.Point{v.keys.Aggregate})
	if err != nil {
		return fail(op, ErrProvider, fmt.Errorf("left miller loop: %w", err))
	}
	r, err := v.p.MultiMillerLoop(ctx, []curve.Point{s}, []curve.Point{v.keys.Generator})
	if err != nil {
		return fail(op, ErrProvider, fmt.Errorf("right miller loop: %w", err))
	}
	if v.policy == PolicyOverwrite {
		if overwrote, err = v.Pending(ctx); err != nil {
			return err
		}
	}
	pend := state.Pending{Curve: v.p.Curve(), Left: l, Right: r, Accumulated: v.now().UTC()}
	if err := v.store.Save(ctx, pend); err != nil {
		return fail(op, ErrState, err)
	}
	if overwrote {
		metrics.Inc("aggverify_slot_overwrites_total", nil)
		logger.WarnJ("aggverify_slot", map[string]any{"op": "overwrite", "trace_id": traceID(ctx)})
	}
	metrics.SetGauge("aggverify_slot_pending", nil, 1)
	return nil
}

// Finalize is phase two. With an empty slot it does nothing and returns
// (false, nil). Otherwise it takes and clears the pair, exponentiates both
// sides and compares them; done is then true whatever the result, and err is
// nil on acceptance or ErrMismatch on rejection.
func (v *Verifier) Finalize(ctx context.Context) (done bool, err error) {
	const op = "finalize"
	begin := time.Now()
	defer func() {
		if err == nil && !done {
			observeNoop(ctx, op, begin)
			return
		}
		observe(ctx, op, begin, err, nil)
	}()

	pend, ok, err := v.store.Load(ctx)
	if err != nil {
		return false, fail(op, ErrState, err)
	}
	if !ok {
		return false, nil
	}
	if err := v.store.Clear(ctx); err != nil {
		return false, fail(op, ErrState, err)
	}
	metrics.SetGauge("aggverify_slot_pending", nil, 0)
	if pend.Curve != v.p.Curve() {
		return true, fail(op, ErrState, fmt.Errorf("pending pair is for %s: %w", pend.Curve, curve.ErrCurveMismatch))
	}
	l, err := v.p.FinalExponentiation(ctx, pend.Left)
	if err != nil {
		return true, fail(op, ErrProvider, fmt.Errorf("left final exponentiation: %w", err))
	}
	r, err := v.p.FinalExponentiation(ctx, pend.Right)
	if err != nil {
		return true, fail(op, ErrProvider, fmt.Errorf("right final exponentiation: %w", err))
	}
	if !l.Equal(r) {
		return true, fail(op, ErrMismatch, nil)
	}
	return true, nil
}

// VerifyDirect checks e(message, aggregate key) == e(aggregate signature,
// generator) with two full pairings. It does not touch the state slot.
func (v *Verifier) VerifyDirect(ctx context.Context, message []byte, sigs [][]byte) (err error) {
	const op = "verify_direct"
	begin := time.Now()
	defer func() { observe(ctx, op, begin, err, map[string]any{"signatures": len(sigs)}) }()

	m, err := decodeMessage(v.p, op, message)
	if err != nil {
		return err
	}
	s, err := AggregateSignatures(v.p, sigs)
	if err != nil {
		return err
	}
	l, err := v.p.Pairing(ctx, m, v.keys.Aggregate)
	if err != nil {
		return fail(op, ErrProvider, fmt.Errorf("left pairing: %w", err))
	}
	r, err := v.p.Pairing(ctx, s, v.keys.Generator)
	if err != nil {
		return fail(op, ErrProvider, fmt.Errorf("right pairing: %w", err))
	}
	if !l.Equal(r) {
		return fail(op, ErrMismatch, nil)
	}
	return nil
}

func traceID(ctx context.Context) string {
	id, _ := trace.FromContext(ctx)
	return id
}

func observe(ctx context.Context, op string, begin time.Time, err error, extra map[string]any) {
	result := "ok"
	if err != nil {
		result = Category(err)
	}
	ms := time.Since(begin).Milliseconds()
	fields := map[string]any{"op": op, "result": result, "latency_ms": ms, "trace_id": traceID(ctx)}
	for k, val := range extra {
		fields[k] = val
	}
	metrics.Inc("aggverify_requests_total", map[string]string{"op": op, "result": result})
	metrics.ObserveSummary("aggverify_op_ms", map[string]string{"op": op}, float64(ms))
	if err != nil {
		fields["err"] = err.Error()
		logger.ErrorJ("aggverify", fields)
		return
	}
	logger.InfoJ("aggverify", fields)
}

func observeNoop(ctx context.Context, op string, begin time.Time) {
	ms := time.Since(begin).Milliseconds()
	metrics.Inc("aggverify_requests_total", map[string]string{"op": op, "result": "noop"})
	metrics.ObserveSummary("aggverify_op_ms", map[string]string{"op": op}, float64(ms))
	logger.InfoJ("aggverify", map[string]any{"op": op, "result": "noop", "latency_ms": ms, "trace_id": traceID(ctx)})
}
