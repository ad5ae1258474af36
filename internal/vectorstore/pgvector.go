package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

// PgVectorStore keeps each collection in its own table with a vector column
// sized to the collection's dimension. The vector_collections table records
// which collections exist.
type PgVectorStore struct {
	db       *pgxpool.Pool
	distance Distance
}

func NewPgVectorStore(db *pgxpool.Pool, distance Distance) *PgVectorStore {
	if distance == "" {
		distance = DistanceCosine
	}
	return &PgVectorStore{db: db, distance: distance}
}

func (s *PgVectorStore) table(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *PgVectorStore) opclass() string {
	if s.distance == DistanceDot {
		return "vector_ip_ops"
	}
	return "vector_cosine_ops"
}

// scoreExpr returns the ORDER BY distance expression and the matching
// similarity score, higher is better.
func (s *PgVectorStore) scoreExpr() (order, score string) {
	if s.distance == DistanceDot {
		return "embedding <#> $1", "-(embedding <#> $1)"
	}
	return "embedding <=> $1", "1 - (embedding <=> $1)"
}

// maxIndexedDimension is the largest vector column pgvector can build an
// hnsw index on.
const maxIndexedDimension = 2000

// indexDDL returns the hnsw index statement for a collection, or false when
// dim is too large to index.
func (s *PgVectorStore) indexDDL(name string, dim int) (string, bool) {
	if dim > maxIndexedDimension {
		return "", false
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s USING hnsw (embedding %s)",
		pgx.Identifier{name + "_embedding_idx"}.Sanitize(), s.table(name), s.opclass()), true
}

func (s *PgVectorStore) CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error) {
	if dim <= 0 {
		return false, ErrInvalidDimension
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes DDL on the same collection across processes.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", name); err != nil {
		return false, fmt.Errorf("lock collection: %w", err)
	}

	if reset {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+s.table(name)); err != nil {
			return false, fmt.Errorf("drop collection: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM vector_collections WHERE name = $1", name); err != nil {
			return false, fmt.Errorf("unregister collection: %w", err)
		}
	}

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM vector_collections WHERE name = $1)", name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return false, nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE %s (
		id BIGINT PRIMARY KEY,
		text TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		embedding vector(%d) NOT NULL
	)`, s.table(name), dim)
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("create collection table: %w", err)
	}

	if idx, ok := s.indexDDL(name, dim); ok {
		if _, err := tx.Exec(ctx, idx); err != nil {
			return false, fmt.Errorf("create collection index: %w", err)
		}
	} else {
		slog.Warn("vector dimension exceeds hnsw limit, collection searched without index",
			"collection", name, "dimension", dim, "limit", maxIndexedDimension)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO vector_collections (name, dimension, distance) VALUES ($1, $2, $3)",
		name, dim, string(s.distance),
	); err != nil {
		return false, fmt.Errorf("register collection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit collection: %w", err)
	}
	return true, nil
}

func (s *PgVectorStore) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM vector_collections WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("unregister collection: %w", err)
	}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+s.table(name)); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit drop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

func (s *PgVectorStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	info := &CollectionInfo{Name: name, Status: "green"}
	var distance string
	err := s.db.QueryRow(ctx,
		"SELECT dimension, distance FROM vector_collections WHERE name = $1", name,
	).Scan(&info.VectorSize, &distance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collection info: %w", err)
	}
	info.Distance = Distance(distance)

	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM "+s.table(name)).Scan(&info.PointsCount); err != nil {
		return nil, mapTableErr(fmt.Errorf("count points: %w", err))
	}
	return info, nil
}

func (s *PgVectorStore) InsertMany(ctx context.Context, name string, texts []string, metadatas []map[string]any, vectors [][]float32, ids []int64) error {
	if err := checkBatch(texts, metadatas, vectors, ids); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO %s (id, text, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET text = $2, metadata = $3, embedding = $4`, s.table(name))

	batch := &pgx.Batch{}
	for i := range texts {
		meta := metadatas[i]
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(query, ids[i], texts[i], meta, pgvector.NewVector(vectors[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapTableErr(fmt.Errorf("insert points: %w", err))
	}
	return tx.Commit(ctx)
}

func (s *PgVectorStore) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]models.RetrievedDocument, error) {
	order, score := s.scoreExpr()
	query := fmt.Sprintf(`SELECT text, metadata, %s AS score
		FROM %s
		ORDER BY %s
		LIMIT $2`, score, s.table(name), order)

	rows, err := s.db.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, mapTableErr(fmt.Errorf("similarity search: %w", err))
	}
	defer rows.Close()

	docs := []models.RetrievedDocument{}
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.Text, &h.Metadata, &h.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		docs = append(docs, h.document())
	}
	if err := rows.Err(); err != nil {
		return nil, mapTableErr(fmt.Errorf("similarity search: %w", err))
	}
	return docs, nil
}

// mapTableErr turns "relation does not exist" into ErrCollectionNotFound.
func mapTableErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %v", ErrCollectionNotFound, err)
	}
	return err
}
