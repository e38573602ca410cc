package services

import (
	"context"
	"encoding/json"

	"tree-mapping-system/models"
	"tree-mapping-system/store"
)

// TreeService covers tree reads and AI result ingestion.
type TreeService struct {
	Store store.Store
}

func NewTreeService(st store.Store) *TreeService {
	return &TreeService{Store: st}
}

func (s *TreeService) GetTree(ctx context.Context, id string) (*models.Tree, error) {
	return s.Store.GetTree(ctx, id)
}

// GetTreesInRadius lists trees near a point, closest first.
func (s *TreeService) GetTreesInRadius(ctx context.Context, lng, lat, radiusMeters float64) ([]models.Tree, error) {
	if radiusMeters <= 0 || radiusMeters > 5000 {
		radiusMeters = 500
	}
	return s.Store.TreesWithin(ctx, lng, lat, radiusMeters)
}

// AISpeciesResult / AIHealthResult / AIMeasurementResult mirror the
// payload the external pipeline posts back.
type AISpeciesResult struct {
	Common     string  `json:"common"`
	Scientific string  `json:"scientific"`
	Confidence float64 `json:"confidence"`
}

type AIHealthResult struct {
	Status     string   `json:"status"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
}

type AIMeasurementResult struct {
	DbhCm   float64 `json:"dbh_cm"`
	HeightM float64 `json:"height_m"`
}

type AIResult struct {
	Species      *AISpeciesResult     `json:"species"`
	Health       *AIHealthResult      `json:"health"`
	Measurements *AIMeasurementResult `json:"measurements"`
}

// IngestAIResult records pipeline output on the observation, advances it
// to pending_review, and folds the estimates into the parent tree —
// species and health only when the new confidence beats the stored one.
func (s *TreeService) IngestAIResult(ctx context.Context, observationID string, result AIResult) error {
	obs, _, err := s.Store.GetObservation(ctx, observationID)
	if err != nil {
		return err
	}

	var species, health, measurement *string
	if result.Species != nil {
		species = marshalResult(result.Species)
	}
	if result.Health != nil {
		health = marshalResult(result.Health)
	}
	if result.Measurements != nil {
		measurement = marshalResult(result.Measurements)
	}
	if err := s.Store.SetObservationAIResults(ctx, observationID, species, health, measurement); err != nil {
		return err
	}
	if err := s.Store.AdvanceObservationStatus(ctx, observationID, models.ObservationStatusPendingReview); err != nil {
		return err
	}

	if obs.TreeID == nil {
		return nil
	}

	est := store.TreeEstimates{}
	if result.Species != nil {
		est.SpeciesCommon = &result.Species.Common
		est.SpeciesScientific = &result.Species.Scientific
		est.SpeciesConfidence = &result.Species.Confidence
	}
	if result.Health != nil {
		est.HealthStatus = &result.Health.Status
		est.HealthConfidence = &result.Health.Confidence
	}
	if result.Measurements != nil {
		est.EstimatedDbhCm = &result.Measurements.DbhCm
		est.EstimatedHeightM = &result.Measurements.HeightM
	}
	return s.Store.ApplyTreeEstimates(ctx, *obs.TreeID, est)
}

func marshalResult(v interface{}) *string {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}
