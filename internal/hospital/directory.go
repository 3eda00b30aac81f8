// internal/hospital/directory.go
package hospital

import (
	"context"

	"github.com/google/uuid"
)

// Directory resolves hospital records for the workflow components.
// Hospital registration and code generation live outside this core.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (Hospital, error)
	ListActive(ctx context.Context) ([]Hospital, error)
}

// DistanceEstimator computes a coarse distance between two hospitals.
// Estimates are derived at read time and never persisted.
type DistanceEstimator interface {
	EstimateKm(from, to Hospital) int
}

// TierEstimator buckets distance by administrative area overlap.
type TierEstimator struct{}

func (TierEstimator) EstimateKm(from, to Hospital) int {
	if from.Region != "" && from.Region == to.Region {
		if from.District != "" && from.District == to.District {
			return 5
		}
		return 50
	}
	return 200
}
