package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// Keys of a session scope.
const (
	KeyRecords     = "optimization_records"
	KeyPredicted   = "predicted_records"
	KeyTopology    = "intersection_type"
	KeyFile        = "uploaded_file"
	KeyLastUpdated = "last_updated"
)

// PayloadVersion is bumped when Payload changes incompatibly. Older payloads
// read as absent.
const PayloadVersion = 1

// ErrNotFound is returned by Load when no current dataset of the kind exists.
var ErrNotFound = errors.New("no dataset stored")

// Kind separates optimized from predicted datasets. They never share a key.
type Kind string

const (
	KindOptimized Kind = "optimized"
	KindPredicted Kind = "predicted"
)

func (k Kind) key() (string, error) {
	switch k {
	case KindOptimized:
		return KeyRecords, nil
	case KindPredicted:
		return KeyPredicted, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q", k)
}

// Payload is written as one value so a reader never observes half of an
// update. Exactly one of Records or Comparisons is set for uploads; Result is
// set for manual timing requests.
type Payload struct {
	Version     int                         `json:"version"`
	Kind        Kind                        `json:"kind"`
	Topology    models.Topology             `json:"intersection_type"`
	Records     []models.OptimizationRecord `json:"records,omitempty"`
	Comparisons []models.ComparisonRow      `json:"comparisons,omitempty"`
	Result      *models.OptimizationResult  `json:"result,omitempty"`
	File        *models.FileDescriptor      `json:"file,omitempty"`
	Source      models.Source               `json:"source"`
	SavedAt     time.Time                   `json:"saved_at"`
}

type Store struct {
	kv  KV
	now func() time.Time
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Save overwrites the dataset of p.Kind. The last_updated key, and for the
// optimized kind the topology and file descriptor keys, are written
// afterwards as hints for polling readers. A predicted dataset carries its
// topology in its payload only, so it never replaces the optimized hint.
func (s *Store) Save(ctx context.Context, p Payload) error {
	key, err := p.Kind.key()
	if err != nil {
		return err
	}
	p.Version = PayloadVersion
	p.SavedAt = s.now().UTC()

	if err := s.setJSON(ctx, key, p); err != nil {
		return err
	}
	if p.Kind == KindOptimized {
		if err := s.setJSON(ctx, KeyTopology, p.Topology); err != nil {
			return err
		}
		if p.File != nil {
			if err := s.setJSON(ctx, KeyFile, p.File); err != nil {
				return err
			}
		}
	}
	return s.setJSON(ctx, KeyLastUpdated, p.SavedAt)
}

// Load returns the stored dataset of kind, or ErrNotFound.
func (s *Store) Load(ctx context.Context, kind Kind) (*Payload, error) {
	key, err := kind.key()
	if err != nil {
		return nil, err
	}
	var p Payload
	ok, err := s.getJSON(ctx, key, &p)
	if err != nil {
		return nil, err
	}
	if !ok || p.Version != PayloadVersion {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Clear removes the dataset of kind. Clearing the optimized dataset also
// forgets the selected topology and the uploaded file.
func (s *Store) Clear(ctx context.Context, kind Kind) error {
	key, err := kind.key()
	if err != nil {
		return err
	}
	keys := []string{key}
	if kind == KindOptimized {
		keys = append(keys, KeyTopology, KeyFile)
	}
	for _, k := range keys {
		if err := s.kv.Remove(ctx, k); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return s.setJSON(ctx, KeyLastUpdated, s.now().UTC())
}

func (s *Store) Topology(ctx context.Context) (models.Topology, bool, error) {
	var t models.Topology
	ok, err := s.getJSON(ctx, KeyTopology, &t)
	return t, ok, err
}

func (s *Store) File(ctx context.Context) (*models.FileDescriptor, error) {
	var f models.FileDescriptor
	ok, err := s.getJSON(ctx, KeyFile, &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

// LastUpdated reports when the scope last changed through this store.
func (s *Store) LastUpdated(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	ok, err := s.getJSON(ctx, KeyLastUpdated, &t)
	return t, ok, err
}

// ChangedSince is the polling check: true when the scope was written after t.
func (s *Store) ChangedSince(ctx context.Context, t time.Time) (bool, time.Time, error) {
	last, ok, err := s.LastUpdated(ctx)
	if err != nil || !ok {
		return false, time.Time{}, err
	}
	return last.After(t), last, nil
}

func (s *Store) Watch(ctx context.Context) (<-chan Change, error) {
	return s.kv.Watch(ctx)
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
