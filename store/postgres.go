package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tree-mapping-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore implements Store on Postgres + PostGIS through GORM.
type PostgresStore struct {
	DB *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Migrate runs AutoMigrate plus the PostGIS pieces GORM cannot express:
// the extension, the generated geography column on trees, and the GIST
// indexes the spatial queries depend on.
func (s *PostgresStore) Migrate() error {
	if err := s.DB.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error; err != nil {
		return fmt.Errorf("enable postgis: %w", err)
	}

	if err := s.DB.AutoMigrate(
		&models.Tree{},
		&models.Observation{},
		&models.Photo{},
		&models.ContractZone{},
		&models.Bounty{},
		&models.BountyClaim{},
	); err != nil {
		return err
	}

	stmts := []string{
		`ALTER TABLE trees ADD COLUMN IF NOT EXISTS location geography(Point,4326)
		 GENERATED ALWAYS AS (ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography) STORED`,
		`CREATE INDEX IF NOT EXISTS trees_location_idx ON trees USING GIST (location)`,
		`CREATE INDEX IF NOT EXISTS contract_zones_geometry_idx ON contract_zones USING GIST (geometry)`,
		`CREATE INDEX IF NOT EXISTS bounties_geometry_idx ON bounties USING GIST (geometry)`,
	}
	for _, stmt := range stmts {
		if err := s.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("spatial migration: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.WithContext(ctx).Exec(`SELECT 1`).Error
}

func (s *PostgresStore) NearestTreeWithin(ctx context.Context, lng, lat, radiusMeters float64) (*NearbyTree, error) {
	var rows []NearbyTree
	err := s.DB.WithContext(ctx).Raw(`
		SELECT
			id,
			latitude,
			longitude,
			cooldown_until AS cooldown_until,
			observation_count AS observation_count,
			unique_observer_count AS unique_observer_count,
			ST_Distance(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) AS distance_meters
		FROM trees
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)
		ORDER BY distance_meters ASC
		LIMIT 1
	`, lng, lat, lng, lat, radiusMeters).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *PostgresStore) ResolveTree(ctx context.Context, lng, lat, radiusMeters float64, now time.Time) (*models.Tree, bool, error) {
	var tree models.Tree
	var isNew bool

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize same-spot submissions: advisory xact locks over every
		// grid cell the dedup circle touches, in sorted order.
		for _, key := range submissionCellKeys(lng, lat, radiusMeters) {
			if err := tx.Exec(`SELECT pg_advisory_xact_lock(?)`, key).Error; err != nil {
				return err
			}
		}

		var ids []string
		if err := tx.Raw(`
			SELECT id FROM trees
			WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)
			ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) ASC
			LIMIT 1
		`, lng, lat, radiusMeters, lng, lat).Scan(&ids).Error; err != nil {
			return err
		}

		if len(ids) > 0 {
			isNew = false
			return tx.Where("id = ?", ids[0]).First(&tree).Error
		}

		isNew = true
		tree = models.Tree{
			ID:                  uuid.NewString(),
			Latitude:            lat,
			Longitude:           lng,
			ObservationCount:    1,
			UniqueObserverCount: 1,
			LastObservedAt:      &now,
			VerificationTier:    models.VerificationTierUnverified,
		}
		return tx.Create(&tree).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &tree, isNew, nil
}

func (s *PostgresStore) GetTree(ctx context.Context, id string) (*models.Tree, error) {
	var tree models.Tree
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&tree).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tree, nil
}

func (s *PostgresStore) TreesWithin(ctx context.Context, lng, lat, radiusMeters float64) ([]models.Tree, error) {
	var trees []models.Tree
	err := s.DB.WithContext(ctx).Raw(`
		SELECT * FROM trees
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) ASC
	`, lng, lat, radiusMeters, lng, lat).Scan(&trees).Error
	return trees, err
}

func (s *PostgresStore) IncrementTreeStats(ctx context.Context, treeID string, observedAt time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.Tree{}).
		Where("id = ?", treeID).
		UpdateColumns(map[string]interface{}{
			"observation_count": gorm.Expr("observation_count + 1"),
			"last_observed_at":  observedAt,
			"updated_at":        time.Now(),
		}).Error
}

func (s *PostgresStore) CountDistinctObservers(ctx context.Context, treeID string) (int, error) {
	var count int
	err := s.DB.WithContext(ctx).Raw(`
		SELECT COUNT(DISTINCT user_id) FROM observations WHERE tree_id = ?
	`, treeID).Scan(&count).Error
	return count, err
}

func (s *PostgresStore) SetTreeObserverCount(ctx context.Context, treeID string, count int) error {
	return s.DB.WithContext(ctx).Model(&models.Tree{}).
		Where("id = ?", treeID).
		UpdateColumns(map[string]interface{}{
			"unique_observer_count": count,
			"updated_at":            time.Now(),
		}).Error
}

func (s *PostgresStore) SetTreeCooldown(ctx context.Context, treeID string, until, now time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Tree{}).
		Where("id = ? AND (cooldown_until IS NULL OR cooldown_until <= ?)", treeID, now).
		UpdateColumns(map[string]interface{}{
			"cooldown_until": until,
			"updated_at":     time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *PostgresStore) ApplyTreeEstimates(ctx context.Context, treeID string, est TreeEstimates) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tree models.Tree
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", treeID).First(&tree).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{"updated_at": time.Now()}

		if est.SpeciesConfidence != nil &&
			(tree.SpeciesConfidence == nil || *est.SpeciesConfidence > *tree.SpeciesConfidence) {
			updates["species_common"] = est.SpeciesCommon
			updates["species_scientific"] = est.SpeciesScientific
			updates["species_confidence"] = est.SpeciesConfidence
		}
		if est.HealthConfidence != nil &&
			(tree.HealthConfidence == nil || *est.HealthConfidence > *tree.HealthConfidence) {
			updates["health_status"] = est.HealthStatus
			updates["health_confidence"] = est.HealthConfidence
		}
		if est.EstimatedDbhCm != nil {
			updates["estimated_dbh_cm"] = est.EstimatedDbhCm
		}
		if est.EstimatedHeightM != nil {
			updates["estimated_height_m"] = est.EstimatedHeightM
		}

		return tx.Model(&models.Tree{}).Where("id = ?", treeID).UpdateColumns(updates).Error
	})
}

func (s *PostgresStore) CreateObservation(ctx context.Context, obs *models.Observation, photos []models.Photo) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(obs).Error; err != nil {
			return err
		}
		for i := range photos {
			if photos[i].ID == "" {
				photos[i].ID = uuid.NewString()
			}
			photos[i].ObservationID = obs.ID
			if err := tx.Create(&photos[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetObservation(ctx context.Context, id string) (*models.Observation, []models.Photo, error) {
	var obs models.Observation
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&obs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var photos []models.Photo
	if err := s.DB.WithContext(ctx).Where("observation_id = ?", id).Find(&photos).Error; err != nil {
		return nil, nil, err
	}
	return &obs, photos, nil
}

func (s *PostgresStore) AdvanceObservationStatus(ctx context.Context, id string, next models.ObservationStatus) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var obs models.Observation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&obs).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !obs.Status.CanTransitionTo(next) {
			return fmt.Errorf("observation %s: illegal status transition %s -> %s", id, obs.Status, next)
		}
		return tx.Model(&models.Observation{}).Where("id = ?", id).
			UpdateColumns(map[string]interface{}{
				"status":     next,
				"updated_at": time.Now(),
			}).Error
	})
}

func (s *PostgresStore) SetObservationAIResults(ctx context.Context, id string, species, health, measurement *string) error {
	res := s.DB.WithContext(ctx).Model(&models.Observation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"ai_species_result":     species,
			"ai_health_result":      health,
			"ai_measurement_result": measurement,
			"updated_at":            time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) StaleObservations(ctx context.Context, status models.ObservationStatus, olderThan time.Time, limit int) ([]models.Observation, error) {
	var obs []models.Observation
	err := s.DB.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&obs).Error
	return obs, err
}

func (s *PostgresStore) ActiveZoneContaining(ctx context.Context, lng, lat float64) (*models.ContractZone, error) {
	var zones []models.ContractZone
	err := s.DB.WithContext(ctx).
		Where("status = ? AND geometry IS NOT NULL AND ST_Contains(geometry, ST_SetSRID(ST_MakePoint(?, ?), 4326))",
			models.ZoneStatusActive, lng, lat).
		Order("zone_type ASC, id ASC").
		Limit(1).
		Find(&zones).Error
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, nil
	}
	return &zones[0], nil
}

func (s *PostgresStore) AssignTreeZone(ctx context.Context, treeID, zoneID string) (bool, error) {
	var assigned bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Tree{}).
			Where("id = ? AND contract_zone_id IS NULL", treeID).
			UpdateColumns(map[string]interface{}{
				"contract_zone_id": zoneID,
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		assigned = true
		return tx.Model(&models.ContractZone{}).
			Where("id = ?", zoneID).
			UpdateColumns(map[string]interface{}{
				"trees_mapped_count": gorm.Expr("trees_mapped_count + 1"),
				"updated_at":         time.Now(),
			}).Error
	})
	return assigned, err
}

func (s *PostgresStore) GetZone(ctx context.Context, id string) (*models.ContractZone, error) {
	var zone models.ContractZone
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&zone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (s *PostgresStore) ListZones(ctx context.Context, status models.ZoneStatus) ([]models.ContractZone, error) {
	var zones []models.ContractZone
	q := s.DB.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("status ASC, display_name ASC").Find(&zones).Error
	return zones, err
}

func (s *PostgresStore) ZoneTrees(ctx context.Context, zoneID string, page, limit int) ([]models.Tree, int64, error) {
	if _, err := s.GetZone(ctx, zoneID); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Tree{}).
		Where("contract_zone_id = ?", zoneID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trees []models.Tree
	err := s.DB.WithContext(ctx).
		Where("contract_zone_id = ?", zoneID).
		Order("last_observed_at DESC NULLS LAST").
		Limit(limit).Offset((page - 1) * limit).
		Find(&trees).Error
	return trees, total, err
}

func (s *PostgresStore) CreateBounty(ctx context.Context, b *models.Bounty) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return s.DB.WithContext(ctx).Create(b).Error
}

func (s *PostgresStore) UpdateBounty(ctx context.Context, b *models.Bounty) error {
	return s.DB.WithContext(ctx).Save(b).Error
}

func (s *PostgresStore) GetBounty(ctx context.Context, id string) (*models.Bounty, error) {
	var bounty models.Bounty
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&bounty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bounty, nil
}

func (s *PostgresStore) ActiveBounties(ctx context.Context, now time.Time) ([]models.Bounty, error) {
	var bounties []models.Bounty
	err := s.DB.WithContext(ctx).
		Where("status = ? AND starts_at <= ? AND expires_at > ?", models.BountyStatusActive, now, now).
		Order("bounty_amount_cents DESC").
		Find(&bounties).Error
	return bounties, err
}

func (s *PostgresStore) BountiesByCreator(ctx context.Context, creatorID string) ([]models.Bounty, error) {
	var bounties []models.Bounty
	err := s.DB.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&bounties).Error
	return bounties, err
}

func (s *PostgresStore) ClaimBestBounty(ctx context.Context, treeID, observationID, userID string, lng, lat float64, now time.Time) (*ClaimResult, error) {
	var result *ClaimResult

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bounties []models.Bounty
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(`status = ? AND starts_at <= ? AND expires_at > ?
				AND spent_cents < total_budget_cents
				AND geometry IS NOT NULL
				AND ST_Contains(geometry, ST_SetSRID(ST_MakePoint(?, ?), 4326))
				AND NOT EXISTS (
					SELECT 1 FROM bounty_claims bc
					WHERE bc.bounty_id = bounties.id AND bc.tree_id = ?
				)`,
				models.BountyStatusActive, now, now, lng, lat, treeID).
			Order("bounty_amount_cents DESC, id DESC").
			Limit(1).
			Find(&bounties).Error
		if err != nil {
			return err
		}
		if len(bounties) == 0 {
			return nil
		}

		bounty := bounties[0]
		amount := bounty.NextPayoutCents()
		if amount <= 0 {
			return nil
		}

		claim := models.BountyClaim{
			ID:            uuid.NewString(),
			BountyID:      bounty.ID,
			UserID:        userID,
			TreeID:        treeID,
			ObservationID: observationID,
			AmountCents:   amount,
			Status:        models.BountyClaimStatusPending,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		// The budget guard is repeated at the write so the invariant holds
		// even if the locked read ever drifts from the update.
		res := tx.Exec(`
			UPDATE bounties
			SET spent_cents = spent_cents + ?,
			    trees_completed = trees_completed + 1,
			    updated_at = NOW()
			WHERE id = ? AND spent_cents + ? <= total_budget_cents
		`, amount, bounty.ID, amount)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("bounty %s: budget exhausted during claim", bounty.ID)
		}

		result = &ClaimResult{Claim: &claim, BountyTitle: bounty.Title}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) BountyLeaderboard(ctx context.Context, bountyID string, limit int) ([]LeaderboardEntry, error) {
	if _, err := s.GetBounty(ctx, bountyID); err != nil {
		return nil, err
	}
	var entries []LeaderboardEntry
	err := s.DB.WithContext(ctx).Raw(`
		SELECT
			user_id,
			COUNT(*)::int AS trees_count,
			SUM(amount_cents)::int AS total_earned_cents
		FROM bounty_claims
		WHERE bounty_id = ? AND status IN ('pending', 'approved', 'paid')
		GROUP BY user_id
		ORDER BY total_earned_cents DESC
		LIMIT ?
	`, bountyID, limit).Scan(&entries).Error
	return entries, err
}

func (s *PostgresStore) UserEarnings(ctx context.Context, userID string) (*Earnings, error) {
	var earnings Earnings
	err := s.DB.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN status IN ('approved', 'paid') THEN amount_cents ELSE 0 END), 0)::int AS total_earned_cents,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN amount_cents ELSE 0 END), 0)::int AS pending_cents
		FROM bounty_claims
		WHERE user_id = ?
	`, userID).Scan(&earnings).Error
	if err != nil {
		return nil, err
	}
	return &earnings, nil
}

func (s *PostgresStore) SweepBounties(ctx context.Context, now time.Time) (int64, error) {
	var changed int64

	res := s.DB.WithContext(ctx).Model(&models.Bounty{}).
		Where("status = ? AND expires_at <= ?", models.BountyStatusActive, now).
		UpdateColumns(map[string]interface{}{
			"status":     models.BountyStatusExpired,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	changed += res.RowsAffected

	res = s.DB.WithContext(ctx).Model(&models.Bounty{}).
		Where("status = ? AND (spent_cents >= total_budget_cents OR (tree_target_count > 0 AND trees_completed >= tree_target_count))",
			models.BountyStatusActive).
		UpdateColumns(map[string]interface{}{
			"status":     models.BountyStatusCompleted,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return changed, res.Error
	}
	changed += res.RowsAffected

	return changed, nil
}

var _ Store = (*PostgresStore)(nil)
