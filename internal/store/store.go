// Package store holds the canonical equipment snapshot and merges accepted
// telemetry updates into it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"deposition_dashboard/internal/models"
)

// MergePolicy selects how an accepted sub-tree is combined with the previous one.
type MergePolicy string

const (
	// MergeReplace swaps the whole sub-tree; leaves the sender omitted take
	// their zero value.
	MergeReplace MergePolicy = "replace"
	// MergeDeep decodes the sub-tree over a copy of the previous one, so
	// omitted leaves keep their last known value.
	MergeDeep MergePolicy = "deep"
)

var ErrUnknownMergePolicy = errors.New("unknown merge policy")

// ParseMergePolicy accepts "replace" or "deep" in any case; empty means replace.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeReplace:
		return MergeReplace, nil
	case MergeDeep:
		return MergeDeep, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMergePolicy, s)
	}
}

// Store is written by a single goroutine and read by many. Every change
// publishes a new *SystemState; published snapshots are never modified.
type Store struct {
	policy  MergePolicy
	current atomic.Pointer[models.SystemState]
}

// New returns a store seeded with default state.
func New(policy MergePolicy) *Store {
	s := &Store{policy: policy}
	s.current.Store(models.DefaultState())
	return s
}

func (s *Store) Policy() MergePolicy { return s.policy }

// Snapshot returns the current state. Callers must not modify it.
func (s *Store) Snapshot() *models.SystemState {
	return s.current.Load()
}

// Reset discards all received telemetry and returns the default snapshot.
func (s *Store) Reset() *models.SystemState {
	st := models.DefaultState()
	s.current.Store(st)
	return st
}

// Apply merges u at the top level: each sub-tree present in u produces a new
// sub-tree value, absent ones are carried over by reference. It reports
// whether a new snapshot was published. On error the store is untouched.
func (s *Store) Apply(u models.StateUpdate) (*models.SystemState, bool, error) {
	prev := s.current.Load()
	if u.Empty() {
		return prev, false, nil
	}

	next := *prev
	if u.Equipment != nil {
		base := &models.Equipment{}
		if s.policy == MergeDeep {
			base = prev.Equipment.Clone()
		}
		if err := decodeOnto(u.Equipment, base); err != nil {
			return prev, false, fmt.Errorf("decode %s: %w", models.SubtreeEquipment, err)
		}
		next.Equipment = base
	}
	if u.Motion != nil {
		base := &models.Motion{}
		if s.policy == MergeDeep {
			base = prev.Motion.Clone()
		}
		if err := decodeOnto(u.Motion, base); err != nil {
			return prev, false, fmt.Errorf("decode %s: %w", models.SubtreeMotion, err)
		}
		next.Motion = base
	}
	if u.Safety != nil {
		base := &models.Safety{}
		if s.policy == MergeDeep {
			base = prev.Safety.Clone()
		}
		if err := decodeOnto(u.Safety, base); err != nil {
			return prev, false, fmt.Errorf("decode %s: %w", models.SubtreeSafety, err)
		}
		next.Safety = base
	}

	s.current.Store(&next)
	return &next, true, nil
}

func decodeOnto(raw json.RawMessage, dst any) error {
	return json.Unmarshal(raw, dst)
}
