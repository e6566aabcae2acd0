package state

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

const (
	magicSlot   uint32 = 0x41475653 // 'AGVS'
	versionSlot uint16 = 1
	headerLen          = 4 + 2 + 2 + 4 + 4
	// largest payload accepted on read
	maxBody = 1 << 20
)

// On disk:
// [magic u32][version u16][flags u16][length u32][crc32 u32][json Pending]
// Writes go to path.tmp, are fsynced and renamed over path, so a reader sees
// either no slot or a complete one.

// FileStore persists the slot in a single file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Path() string { return s.path }

func encodeRecord(p Pending) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerLen, headerLen+len(body))
	off := 0
	binary.BigEndian.PutUint32(out[off:], magicSlot)
	off += 4
	binary.BigEndian.PutUint16(out[off:], versionSlot)
	off += 2
	binary.BigEndian.PutUint16(out[off:], 0)
	off += 2
	binary.BigEndian.PutUint32(out[off:], uint32(len(body)))
	off += 4
	binary.BigEndian.PutUint32(out[off:], crc32.ChecksumIEEE(body))
	return append(out, body...), nil
}

func decodeRecord(b []byte) (Pending, error) {
	if len(b) < headerLen {
		return Pending{}, errors.Wrap(ErrCorrupt, "short header")
	}
	off := 0
	if binary.BigEndian.Uint32(b[off:]) != magicSlot {
		return Pending{}, errors.Wrap(ErrCorrupt, "bad magic")
	}
	off += 4
	if v := binary.BigEndian.Uint16(b[off:]); v != versionSlot {
		return Pending{}, errors.Wrapf(ErrCorrupt, "version %d", v)
	}
	off += 2 + 2
	length := binary.BigEndian.Uint32(b[off:])
	off += 4
	want := binary.BigEndian.Uint32(b[off:])
	body := b[headerLen:]
	if length == 0 || length > maxBody || int(length) != len(body) {
		return Pending{}, errors.Wrap(ErrCorrupt, "bad length")
	}
	if crc32.ChecksumIEEE(body) != want {
		return Pending{}, errors.Wrap(ErrCorrupt, "crc mismatch")
	}
	var p Pending
	if err := json.Unmarshal(body, &p); err != nil {
		return Pending{}, errors.Wrap(ErrCorrupt, err.Error())
	}
	if err := p.Validate(); err != nil {
		return Pending{}, errors.Wrap(ErrCorrupt, err.Error())
	}
	return p, nil
}

func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}

func (s *FileStore) writeAtomic(rec []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = f.Write(rec); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return err
	}
	syncDir(dir)
	return nil
}

func (s *FileStore) Save(_ context.Context, p Pending) error {
	if err := p.Validate(); err != nil {
		return err
	}
	begin := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := encodeRecord(p)
	if err == nil {
		err = s.writeAtomic(rec)
	}
	if err != nil {
		logger.ErrorJ("state_slot", map[string]any{"op": "persist", "result": "error", "err": err.Error()})
		return errors.Wrap(err, "state: persist")
	}
	ms := float64(time.Since(begin).Milliseconds())
	metrics.ObserveSummary("state_persist_ms", nil, ms)
	logger.InfoJ("state_slot", map[string]any{"op": "persist", "result": "ok", "latency_ms": ms})
	return nil
}

// Load reads the slot. A missing file is an empty slot; an unreadable or
// corrupt one is an error.
func (s *FileStore) Load(_ context.Context) (Pending, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		metrics.Inc("state_recovery_total", map[string]string{"result": "empty"})
		return Pending{}, false, nil
	}
	if err != nil {
		metrics.Inc("state_recovery_total", map[string]string{"result": "fail"})
		return Pending{}, false, errors.Wrap(err, "state: load")
	}
	p, err := decodeRecord(b)
	if err != nil {
		metrics.Inc("state_recovery_total", map[string]string{"result": "fail"})
		logger.ErrorJ("state_slot", map[string]any{"op": "recovery", "result": "error", "err": err.Error()})
		return Pending{}, false, err
	}
	metrics.Inc("state_recovery_total", map[string]string{"result": "ok"})
	logger.InfoJ("state_slot", map[string]any{"op": "recovery", "result": "ok", "curve": string(p.Curve)})
	return p, true, nil
}

// Clear removes the slot file. Clearing an empty slot is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = os.Remove(s.path + ".tmp")
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "state: clear")
	}
	syncDir(filepath.Dir(s.path))
	return nil
}
