package services

import (
	"context"

	"tree-mapping-system/store"
)

// DedupService maps incoming coordinates to an existing tree. Read-only;
// tree creation happens under the store's submission lock, not here.
type DedupService struct {
	Store store.Store
}

func NewDedupService(st store.Store) *DedupService {
	return &DedupService{Store: st}
}

// FindNearestTree returns the single closest tree within the 5 m dedup
// radius of the point, or nil when the submission is a new tree.
func (s *DedupService) FindNearestTree(ctx context.Context, lng, lat float64) (*store.NearbyTree, error) {
	return s.Store.NearestTreeWithin(ctx, lng, lat, store.DedupRadiusMeters)
}
