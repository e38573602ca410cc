package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tree-mapping-system/models"
	"tree-mapping-system/store"

	"github.com/redis/go-redis/v9"
)

const zoneCacheTTL = 5 * time.Minute

// ZoneService handles zone lookups for assignment plus the read surface
// used by map clients. Zone polygons are authored by contract management
// tooling; this service never writes geometry.
type ZoneService struct {
	Store store.Store
	Redis *redis.Client // optional; nil disables caching
}

func NewZoneService(st store.Store, rdb *redis.Client) *ZoneService {
	return &ZoneService{Store: st, Redis: rdb}
}

// FindZoneForPoint returns the active zone containing the point, or nil.
// When polygons overlap, the store breaks the tie by zone_type then id.
func (s *ZoneService) FindZoneForPoint(ctx context.Context, lng, lat float64) (*models.ContractZone, error) {
	return s.Store.ActiveZoneContaining(ctx, lng, lat)
}

// AssignTreeZone gives a tree its zone exactly once. A tree that already
// has a zone keeps it even if zones are redrawn later (sticky assignment),
// and re-invoking with any coordinates returns that existing id; the
// mapped-tree counter only moves when the write actually lands. Returns
// nil when the tree has no zone and the point is outside all active zones.
func (s *ZoneService) AssignTreeZone(ctx context.Context, treeID string, lng, lat float64) (*string, error) {
	tree, err := s.Store.GetTree(ctx, treeID)
	if err != nil {
		return nil, err
	}
	if tree.ContractZoneID != nil {
		return tree.ContractZoneID, nil
	}

	zone, err := s.FindZoneForPoint(ctx, lng, lat)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, nil
	}

	assigned, err := s.Store.AssignTreeZone(ctx, treeID, zone.ID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		// lost a race with a concurrent submission; report whatever stuck
		current, err := s.Store.GetTree(ctx, treeID)
		if err != nil {
			return nil, err
		}
		return current.ContractZoneID, nil
	}
	log.Printf("🌳 [ZONE] Tree %s assigned to zone %s (%s)", treeID, zone.ID, zone.DisplayName)
	return &zone.ID, nil
}

// ZoneSummary is the listing shape map clients poll for.
type ZoneSummary struct {
	ID                 string            `json:"id"`
	ZoneType           models.ZoneType   `json:"zone_type"`
	ZoneIdentifier     string            `json:"zone_identifier"`
	DisplayName        string            `json:"display_name"`
	Status             models.ZoneStatus `json:"status"`
	TreeTargetCount    *int              `json:"tree_target_count,omitempty"`
	TreesMappedCount   int               `json:"trees_mapped_count"`
	ProgressPercentage float64           `json:"progress_percentage"`
}

// GetZoneSummaries lists zones (optionally filtered by status), served
// from Redis when the cache is warm. Cache failures fall through to the
// store silently.
func (s *ZoneService) GetZoneSummaries(ctx context.Context, status models.ZoneStatus) ([]ZoneSummary, error) {
	cacheKey := "zones:summary:" + string(status)
	if cached := s.getCached(ctx, cacheKey); cached != nil {
		var summaries []ZoneSummary
		if err := json.Unmarshal(cached, &summaries); err == nil {
			return summaries, nil
		}
	}

	zones, err := s.Store.ListZones(ctx, status)
	if err != nil {
		return nil, err
	}

	summaries := make([]ZoneSummary, len(zones))
	for i := range zones {
		summaries[i] = ZoneSummary{
			ID:                 zones[i].ID,
			ZoneType:           zones[i].ZoneType,
			ZoneIdentifier:     zones[i].ZoneIdentifier,
			DisplayName:        zones[i].DisplayName,
			Status:             zones[i].Status,
			TreeTargetCount:    zones[i].TreeTargetCount,
			TreesMappedCount:   zones[i].TreesMappedCount,
			ProgressPercentage: zones[i].ProgressPercentage(),
		}
	}

	s.setCache(ctx, cacheKey, summaries)
	return summaries, nil
}

// GetZone returns one zone with its full geometry, cached briefly since
// geometries are large and rarely change.
func (s *ZoneService) GetZone(ctx context.Context, id string) (*models.ContractZone, error) {
	cacheKey := "zones:detail:" + id
	if cached := s.getCached(ctx, cacheKey); cached != nil {
		var zone models.ContractZone
		if err := json.Unmarshal(cached, &zone); err == nil {
			return &zone, nil
		}
	}

	zone, err := s.Store.GetZone(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setCache(ctx, cacheKey, zone)
	return zone, nil
}

// GetZoneTrees pages through the trees mapped inside a zone.
func (s *ZoneService) GetZoneTrees(ctx context.Context, zoneID string, page, limit int) ([]models.Tree, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.Store.ZoneTrees(ctx, zoneID, page, limit)
}

func (s *ZoneService) getCached(ctx context.Context, key string) []byte {
	if s.Redis == nil {
		return nil
	}
	data, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return data
}

func (s *ZoneService) setCache(ctx context.Context, key string, value interface{}) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, zoneCacheTTL).Err(); err != nil {
		log.Printf("⚠️  [ZONE] cache write failed for %s: %v", key, err)
	}
}
