package services

import (
	"context"
	"time"

	"tree-mapping-system/store"
)

const (
	// CooldownThreshold — distinct observers needed before a tree stops
	// accepting observations
	CooldownThreshold = 3
	// CooldownDays — how long a cooling tree rejects new observations
	CooldownDays = 90
)

// CooldownService owns the tree sampling state machine: Active trees take
// observations, Cooling trees reject them until cooldown_until passes.
// Cooling → Active is implicit time expiry; no write ever clears the field.
type CooldownService struct {
	Store store.Store
}

func NewCooldownService(st store.Store) *CooldownService {
	return &CooldownService{Store: st}
}

// IsOnCooldown reports whether a tree with the given cooldown_until is
// still Cooling.
func (s *CooldownService) IsOnCooldown(cooldownUntil *time.Time) bool {
	return cooldownUntil != nil && cooldownUntil.After(time.Now())
}

// CheckAndSetCooldown recomputes the tree's distinct observer count from
// its observation history, persists it, and fires the Active → Cooling
// transition when the threshold is reached. The store write is conditional
// on the tree not already cooling, so calling this on a Cooling tree is a
// no-op. Returns the new cooldown_until when the transition fired.
func (s *CooldownService) CheckAndSetCooldown(ctx context.Context, treeID string) (*time.Time, error) {
	observers, err := s.Store.CountDistinctObservers(ctx, treeID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetTreeObserverCount(ctx, treeID, observers); err != nil {
		return nil, err
	}

	if observers < CooldownThreshold {
		return nil, nil
	}

	now := time.Now()
	until := now.AddDate(0, 0, CooldownDays)
	set, err := s.Store.SetTreeCooldown(ctx, treeID, until, now)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, nil
	}
	return &until, nil
}
