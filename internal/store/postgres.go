package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"course-rag/internal/config"
)

// fragmentRow is the relational shape of a stored fragment
type fragmentRow struct {
	bun.BaseModel `bun:"table:fragments,alias:f"`
	ID            string    `bun:"id,pk"`
	Source        string    `bun:"source_filename,notnull"`
	Content       string    `bun:"content,notnull"`
	Page          string    `bun:"page_number,notnull"`
	StartPos      string    `bun:"start_pos,notnull"`
	EndPos        string    `bun:"end_pos,notnull"`
	ChunkIndex    string    `bun:"chunk_index,notnull"`
	Method        string    `bun:"processing_method,notnull"`
	UploadTime    string    `bun:"upload_time,notnull"`
	Embedding     []float32 `bun:"embedding,notnull"`
	Similarity    float32   `bun:"similarity,scanonly"`
}

// PostgresIndex is an alternative Index backend on Postgres with pgvector
type PostgresIndex struct {
	db  *bun.DB
	dim int
}

// ConnectDB opens the Postgres connection. When a separate key is configured
// the pgdriver connector is used; otherwise the DSN goes through lib/pq.
func ConnectDB(cfg *config.StorageConfig) (*sql.DB, error) {
	if cfg.PostgresKey != "" {
		dsn := cfg.PostgresDSN + "?sslmode=disable"
		return sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithPassword(cfg.PostgresKey),
		)), nil
	}
	return sql.Open("postgres", cfg.PostgresDSN)
}

// NewPostgresIndex wraps the connection; dim is the embedding dimensionality
// of the configured model and sizes the vector column.
func NewPostgresIndex(sqldb *sql.DB, dim int, debug bool) *PostgresIndex {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PostgresIndex{db: db, dim: dim}
}

// Init creates the fragments table if missing
func (p *PostgresIndex) Init(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, createTableSQL(p.dim))
	return err
}

// createTableSQL renders the fragments DDL with the configured vector size
func createTableSQL(dim int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS fragments (
	id TEXT PRIMARY KEY,
	source_filename TEXT NOT NULL,
	content TEXT NOT NULL,
	page_number TEXT NOT NULL,
	start_pos TEXT NOT NULL,
	end_pos TEXT NOT NULL,
	chunk_index TEXT NOT NULL,
	processing_method TEXT NOT NULL,
	upload_time TEXT NOT NULL,
	embedding vector(%d) NOT NULL
)`, dim)
}

// Add inserts all docs in one transaction so readers never see a partial
// ingestion
func (p *PostgresIndex) Add(ctx context.Context, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]fragmentRow, len(docs))
	for i, doc := range docs {
		rows[i] = fragmentRow{
			ID:         doc.ID,
			Source:     doc.Metadata[MetaSource],
			Content:    doc.Content,
			Page:       doc.Metadata[MetaPage],
			StartPos:   doc.Metadata[MetaStart],
			EndPos:     doc.Metadata[MetaEnd],
			ChunkIndex: doc.Metadata[MetaChunk],
			Method:     doc.Metadata[MetaMethod],
			UploadTime: doc.Metadata[MetaUploadTime],
			Embedding:  doc.Embedding,
		}
	}
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

func (p *PostgresIndex) Search(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	lit := vectorLiteral(embedding)
	var rows []fragmentRow
	err := p.db.NewSelect().
		Model(&rows).
		ColumnExpr("f.*").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", lit).
		OrderExpr("embedding <=> ?::vector", lit).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(rows))
	for i, row := range rows {
		hits[i] = Hit{
			Content: row.Content,
			Metadata: map[string]string{
				MetaSource:     row.Source,
				MetaPage:       row.Page,
				MetaStart:      row.StartPos,
				MetaEnd:        row.EndPos,
				MetaChunk:      row.ChunkIndex,
				MetaMethod:     row.Method,
				MetaUploadTime: row.UploadTime,
			},
			Similarity: row.Similarity,
		}
	}
	return hits, nil
}

func (p *PostgresIndex) ListSources(ctx context.Context) ([]SourceAggregate, error) {
	var aggregates []SourceAggregate
	err := p.db.NewSelect().
		Model((*fragmentRow)(nil)).
		ColumnExpr("source_filename AS filename").
		ColumnExpr("count(*) AS chunk_count").
		ColumnExpr("max(upload_time) AS upload_time").
		GroupExpr("source_filename").
		OrderExpr("max(upload_time) DESC").
		Scan(ctx, &aggregates)
	return aggregates, err
}

func (p *PostgresIndex) DeleteSource(ctx context.Context, name string) error {
	_, err := p.db.NewDelete().
		Model((*fragmentRow)(nil)).
		Where("source_filename = ?", name).
		Exec(ctx)
	return err
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// vectorLiteral renders an embedding as a pgvector input literal
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
