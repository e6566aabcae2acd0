package main

import (
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/zmlAEQ/aggverify/internal/api"
	"github.com/zmlAEQ/aggverify/internal/config"
	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/gnark"
)

// Writes roster.json for AGGVERIFY_ROSTER_PATH plus accumulate.json, a
// matching aggverify.accumulate payload signed by every member.
func main() {
	var (
		outDir string
		curveS string
		n      int
	)
	flag.StringVar(&outDir, "out-dir", "", "Output directory")
	flag.StringVar(&curveS, "curve", string(curve.BLS12381), "Curve family: bls12-381 | bn254")
	flag.IntVar(&n, "n", 4, "Roster size")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "missing --out-dir")
		os.Exit(2)
	}
	if n <= 0 {
		fmt.Fprintln(os.Stderr, "invalid n")
		os.Exit(2)
	}
	p, err := gnark.New(curve.ID(curveS))
	if err != nil {
		fmt.Fprintln(os.Stderr, "curve:", err)
		os.Exit(2)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "mkdir:", err)
		os.Exit(1)
	}

	gen := p.Generator(curve.G2)
	msg := mul(p, p.Generator(curve.G1), randScalar())
	roster := config.Roster{Generator: gen.Bytes}
	req := api.Payload{Message: msg.Bytes}
	for i := 0; i < n; i++ {
		sk := randScalar()
		roster.PublicKeys = append(roster.PublicKeys, mul(p, gen, sk).Bytes)
		req.Signatures = append(req.Signatures, mul(p, msg, sk).Bytes)
	}
	write(filepath.Join(outDir, "roster.json"), roster)
	write(filepath.Join(outDir, "accumulate.json"), req)
	fmt.Printf("wrote roster of %d on %s to %s\n", n, curveS, outDir)
}

func randScalar() *big.Int {
	k, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 250))
	if err != nil {
		fmt.Fprintln(os.Stderr, "rand:", err)
		os.Exit(1)
	}
	return k.Add(k, big.NewInt(1))
}

func mul(p curve.Provider, pt curve.Point, k *big.Int) curve.Point {
	out, err := p.ScalarMul(pt, k)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mul:", err)
		os.Exit(1)
	}
	return out
}

func write(path string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
}
