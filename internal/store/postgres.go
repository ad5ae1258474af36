package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

const insertBatchSize = 100

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetOrCreateProject(ctx context.Context, projectID string) (*models.Project, error) {
	if err := models.ValidateProjectID(projectID); err != nil {
		return nil, err
	}

	var p models.Project
	err := s.db.QueryRow(ctx,
		`INSERT INTO projects (project_id) VALUES ($1)
		 ON CONFLICT (project_id) DO UPDATE SET project_id = EXCLUDED.project_id
		 RETURNING id, project_id, created_at`,
		projectID,
	).Scan(&p.ID, &p.ProjectID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create project: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CreateAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	var cfg []byte
	if len(a.Config) > 0 {
		cfg = a.Config
	}

	var out models.Asset
	err := s.db.QueryRow(ctx,
		`INSERT INTO assets (project_id, asset_type, asset_name, asset_size, asset_config)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (project_id, asset_name) DO UPDATE
		 SET asset_type = EXCLUDED.asset_type,
		     asset_size = EXCLUDED.asset_size,
		     asset_config = EXCLUDED.asset_config,
		     asset_pushed_at = now()
		 RETURNING id, project_id, asset_type, asset_name, asset_size, asset_config, asset_pushed_at`,
		a.ProjectID, a.Type, a.Name, a.Size, cfg,
	).Scan(&out.ID, &out.ProjectID, &out.Type, &out.Name, &out.Size, &out.Config, &out.PushedAt)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, projectID, name string) (*models.Asset, error) {
	var a models.Asset
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, asset_type, asset_name, asset_size, asset_config, asset_pushed_at
		 FROM assets WHERE project_id = $1 AND asset_name = $2`,
		projectID, name,
	).Scan(&a.ID, &a.ProjectID, &a.Type, &a.Name, &a.Size, &a.Config, &a.PushedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAssets(ctx context.Context, projectID, assetType string) ([]models.Asset, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, project_id, asset_type, asset_name, asset_size, asset_config, asset_pushed_at
		 FROM assets WHERE project_id = $1 AND asset_type = $2 ORDER BY id`,
		projectID, assetType,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Type, &a.Name, &a.Size, &a.Config, &a.PushedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *PostgresStore) InsertChunks(ctx context.Context, chunks []models.DataChunk) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(chunks))

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			meta := c.Metadata
			if meta == nil {
				meta = map[string]any{}
			}
			metaJSON, err := json.Marshal(meta)
			if err != nil {
				return 0, fmt.Errorf("marshal chunk metadata: %w", err)
			}
			batch.Queue(
				`INSERT INTO chunks (chunk_text, chunk_metadata, chunk_order, chunk_project_id, chunk_asset_id)
				 VALUES ($1, $2, $3, $4, $5)`,
				c.Text, metaJSON, c.Order, c.ProjectID, c.AssetID,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("insert chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit chunks: %w", err)
	}
	return len(chunks), nil
}

func (s *PostgresStore) ListChunks(ctx context.Context, projectID string, page int) ([]models.DataChunk, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, chunk_text, chunk_metadata, chunk_order, chunk_project_id, chunk_asset_id
		 FROM chunks WHERE chunk_project_id = $1
		 ORDER BY id LIMIT $2 OFFSET $3`,
		projectID, PageSize, pageOffset(page),
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DataChunk
	for rows.Next() {
		var c models.DataChunk
		if err := rows.Scan(&c.ID, &c.Text, &c.Metadata, &c.Order, &c.ProjectID, &c.AssetID); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *PostgresStore) DeleteChunks(ctx context.Context, projectID string) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM chunks WHERE chunk_project_id = $1", projectID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}
