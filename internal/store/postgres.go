package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in name order. Migrations are
// written to be idempotent so re-running them is safe.
func (p *Postgres) MigrateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		stmt, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := p.db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func (p *Postgres) SaveSolveRecord(ctx context.Context, rec SolveRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	snaps, err := json.Marshal(rec.Snapshots)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO solve_metrics (id, tenant_id, status, metaheuristic, first_solution, stops, vehicles, vehicles_used, initial_cost, best_cost, iterations, improvements, accepted_worse, total_distance_km, wall_ms, snapshots, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        ON CONFLICT (id) DO UPDATE SET
          status=$3, vehicles_used=$8, initial_cost=$9, best_cost=$10, iterations=$11, improvements=$12, accepted_worse=$13, total_distance_km=$14, wall_ms=$15, snapshots=$16`,
		rec.ID, rec.TenantID, rec.Status, rec.Metaheuristic, rec.FirstSolution, rec.Stops, rec.Vehicles, rec.VehiclesUsed,
		rec.InitialCost, rec.BestCost, rec.Iterations, rec.Improvements, rec.AcceptedWorse, rec.TotalDistanceKm, rec.WallMs,
		string(snaps), rec.CreatedAt,
	)
	return err
}

const solveColumns = `id, tenant_id, status, metaheuristic, first_solution, stops, vehicles, vehicles_used, initial_cost, best_cost, iterations, improvements, accepted_worse, total_distance_km, wall_ms, snapshots, created_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanSolveRecord(row rowScanner) (SolveRecord, error) {
	var rec SolveRecord
	var snaps []byte
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.Status, &rec.Metaheuristic, &rec.FirstSolution, &rec.Stops, &rec.Vehicles,
		&rec.VehiclesUsed, &rec.InitialCost, &rec.BestCost, &rec.Iterations, &rec.Improvements, &rec.AcceptedWorse,
		&rec.TotalDistanceKm, &rec.WallMs, &snaps, &rec.CreatedAt); err != nil {
		return SolveRecord{}, err
	}
	if len(snaps) > 0 {
		if err := json.Unmarshal(snaps, &rec.Snapshots); err != nil {
			return SolveRecord{}, fmt.Errorf("decode snapshots: %w", err)
		}
	}
	return rec, nil
}

func (p *Postgres) GetSolveRecord(ctx context.Context, tenantID, id string) (SolveRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+solveColumns+` FROM solve_metrics WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	rec, err := scanSolveRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SolveRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListSolveRecords(ctx context.Context, tenantID, cursor string, limit int) ([]SolveRecord, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + solveColumns + ` FROM solve_metrics WHERE tenant_id=$1`
	args := []any{tenantID}
	if cursor != "" {
		q += ` AND (created_at, id) < (SELECT created_at, id FROM solve_metrics WHERE tenant_id=$1 AND id=$2)`
		args = append(args, cursor)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []SolveRecord{}
	for rows.Next() {
		rec, err := scanSolveRecord(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE tenant_id=$1`, tenantID)
	var js []byte
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, string(js))
	return err
}
