package store

import (
	"context"
	"errors"
	"time"
)

// Store is the persistence interface used by the API server. Solutions
// themselves are never stored, only the aggregate metrics of each solve.
type Store interface {
	// Solve metrics
	SaveSolveRecord(ctx context.Context, rec SolveRecord) error
	GetSolveRecord(ctx context.Context, tenantID, id string) (SolveRecord, error)
	// ListSolveRecords pages newest first; cursor is the id of the last item
	// of the previous page.
	ListSolveRecords(ctx context.Context, tenantID, cursor string, limit int) ([]SolveRecord, string, error)

	// Optimizer config per tenant
	GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error
}

var ErrNotFound = errors.New("not found")

// SolveRecord summarizes one solve.
type SolveRecord struct {
	ID              string           `json:"id"`
	TenantID        string           `json:"tenantId"`
	Status          string           `json:"status"`
	Metaheuristic   string           `json:"metaheuristic"`
	FirstSolution   string           `json:"firstSolution"`
	Stops           int              `json:"stops"`
	Vehicles        int              `json:"vehicles"`
	VehiclesUsed    int              `json:"vehiclesUsed"`
	InitialCost     int              `json:"initialCost"`
	BestCost        int              `json:"bestCost"`
	Iterations      int              `json:"iterations"`
	Improvements    int              `json:"improvements"`
	AcceptedWorse   int              `json:"acceptedWorse"`
	TotalDistanceKm float64          `json:"totalDistanceKm"`
	WallMs          int64            `json:"wallMs"`
	Snapshots       []WeightSnapshot `json:"snapshots,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// WeightSnapshot is one sample of the adaptive operator weights.
type WeightSnapshot struct {
	Iteration int        `json:"iteration"`
	Removal   [2]float64 `json:"removal"`
	Insertion [2]float64 `json:"insertion"`
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
