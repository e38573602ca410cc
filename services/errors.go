package services

import (
	"fmt"
	"time"
)

// ConflictError signals that the resolved tree is on cooldown. It carries
// the tree id and resume time so the caller can tell the user when to try
// again. Nothing is written before this is returned.
type ConflictError struct {
	TreeID        string
	CooldownUntil time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tree %s is on cooldown until %s", e.TreeID, e.CooldownUntil.Format(time.RFC3339))
}
