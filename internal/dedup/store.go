// Package dedup keeps the cross-run history of postings that were already
// selected, so each posting is surfaced at most once.
package dedup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"go-job-digest/internal/models"
)

var (
	// ErrStoreCorrupt means the history exists but cannot be trusted. It is
	// never treated as an empty history.
	ErrStoreCorrupt = errors.New("seen-key store corrupt")
	// ErrLocked means another run holds the store.
	ErrLocked = errors.New("seen-key store locked by another run")
)

// Persistence is the backing storage for seen keys. ReadKeys on a store that
// was never written returns no keys and no error. WriteKeys replaces the
// stored keys atomically.
type Persistence interface {
	ReadKeys() ([]models.DedupKey, error)
	WriteKeys(keys []models.DedupKey) error
}

// SeenKeySet is the loaded history, in persisted order.
type SeenKeySet struct {
	set   mapset.Set[models.DedupKey]
	order []models.DedupKey
}

func NewSeenKeySet(keys ...models.DedupKey) *SeenKeySet {
	s := &SeenKeySet{set: mapset.NewThreadUnsafeSet[models.DedupKey]()}
	for _, k := range keys {
		s.add(k)
	}
	return s
}

func (s *SeenKeySet) add(k models.DedupKey) bool {
	if !s.set.Add(k) {
		return false
	}
	s.order = append(s.order, k)
	return true
}

func (s *SeenKeySet) Contains(k models.DedupKey) bool {
	return s != nil && s.set.Contains(k)
}

func (s *SeenKeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Keys returns a copy of the keys in persisted order.
func (s *SeenKeySet) Keys() []models.DedupKey {
	if s == nil {
		return nil
	}
	return append([]models.DedupKey(nil), s.order...)
}

// Store applies the load / partition / commit cycle over a Persistence.
type Store struct {
	p   Persistence
	log *zap.Logger
}

func NewStore(p Persistence, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{p: p, log: log}
}

// Load reads the full history. A missing history is empty.
func (s *Store) Load() (*SeenKeySet, error) {
	keys, err := s.p.ReadKeys()
	if err != nil {
		return nil, err
	}
	set := NewSeenKeySet(keys...)
	if dup := len(keys) - set.Len(); dup > 0 {
		s.log.Warn("seen-key store has duplicate lines", zap.Int("duplicates", dup))
	}
	s.log.Info("loaded seen keys", zap.Int("count", set.Len()))
	return set, nil
}

// FilterNew partitions ranked jobs into those not in seen and those already
// seen. Jobs repeating a key earlier in ranked also count as already seen.
// Neither argument is modified.
func FilterNew(ranked []models.ScoredJob, seen *SeenKeySet) (fresh, already []models.ScoredJob) {
	run := mapset.NewThreadUnsafeSet[models.DedupKey]()
	fresh = make([]models.ScoredJob, 0, len(ranked))
	for _, j := range ranked {
		if seen.Contains(j.Key) || !run.Add(j.Key) {
			already = append(already, j)
			continue
		}
		fresh = append(fresh, j)
	}
	return fresh, already
}

// FilterNew is the method form of the package function.
func (s *Store) FilterNew(ranked []models.ScoredJob, seen *SeenKeySet) (fresh, already []models.ScoredJob) {
	return FilterNew(ranked, seen)
}

// Commit appends the keys of fresh that seen does not hold yet, persists the
// result in one atomic write, and only then updates seen. Nothing is written
// when there is nothing new.
func (s *Store) Commit(fresh []models.ScoredJob, seen *SeenKeySet) (int, error) {
	if seen == nil {
		return 0, errors.New("commit: nil seen set")
	}
	next := NewSeenKeySet(seen.order...)
	added := 0
	for _, j := range fresh {
		if j.Key != "" && next.add(j.Key) {
			added++
		}
	}
	if added == 0 {
		s.log.Info("no new seen keys to commit")
		return 0, nil
	}
	if err := s.p.WriteKeys(next.order); err != nil {
		return 0, fmt.Errorf("commit seen keys: %w", err)
	}
	*seen = *next
	s.log.Info("committed seen keys", zap.Int("added", added), zap.Int("total", seen.Len()))
	return added, nil
}

// ParseKeys reads the line format: one key per line, blank lines ignored.
func ParseKeys(r io.Reader) ([]models.DedupKey, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var keys []models.DedupKey
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if err := validKey(raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrStoreCorrupt, line, err)
		}
		keys = append(keys, models.DedupKey(raw))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return keys, nil
}

// FormatKeys renders keys in the line format.
func FormatKeys(w io.Writer, keys []models.DedupKey) error {
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		if _, err := bw.WriteString(string(k) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func validKey(s string) error {
	if !utf8.ValidString(s) {
		return errors.New("invalid utf-8")
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return errors.New("embedded whitespace")
		}
		if unicode.IsControl(r) {
			return errors.New("control character")
		}
	}
	return nil
}
