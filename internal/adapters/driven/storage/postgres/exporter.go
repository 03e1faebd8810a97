package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Exporter implements the interface.
var _ driven.Exporter = (*Exporter)(nil)

// targetRecord is the persisted form of a domain.TargetSpec.
type targetRecord struct {
	Name              string `gorm:"primaryKey"`
	Dimensions        int    `gorm:"not null"`
	Metric            string `gorm:"not null"`
	EmbeddingIdentity string `gorm:"not null"`
	UpdatedAt         time.Time
}

// TableName implements gorm's tabler.
func (targetRecord) TableName() string {
	return "docindex_targets"
}

// indexRow is the scanned form of an export table row.
type indexRow struct {
	ID        string
	Filename  string
	LocStart  int
	LocEnd    int
	Text      string
	Embedding pgvector.Vector
	Score     float64
}

func (r indexRow) toDomain() domain.IndexRow {
	return domain.IndexRow{
		ID:        r.ID,
		Filename:  r.Filename,
		Location:  domain.Location{Start: r.LocStart, End: r.LocEnd},
		Text:      r.Text,
		Embedding: r.Embedding.Slice(),
	}
}

// Config configures the connection.
type Config struct {
	// URL is the Postgres connection string.
	URL string

	// Table is the export table name.
	Table string

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int
}

// Exporter writes index rows to a pgvector table.
type Exporter struct {
	db    *gorm.DB
	table string
}

// logWriter routes gorm's logger through the application logger.
type logWriter struct{}

func (logWriter) Printf(format string, args ...any) {
	logger.Debug(format, args...)
}

// Open connects to Postgres, enables pgvector and migrates the targets table.
func Open(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: storage.url is required (set COCOINDEX_DATABASE_URL)", domain.ErrConfiguration)
	}

	gormLog := gormlogger.New(logWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, storageError("connecting to postgres", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, storageError("connecting to postgres", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	e := &Exporter{db: db, table: cfg.Table}
	if err := e.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return e, nil
}

func (e *Exporter) migrate(ctx context.Context) error {
	db := e.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return storageError("enabling pgvector", err)
	}
	if err := db.AutoMigrate(&targetRecord{}); err != nil {
		return storageError("migrating targets", err)
	}
	return nil
}

// quoted returns the table name as a quoted identifier.
// The name has been checked by TargetSpec.Validate.
func (e *Exporter) quoted() string {
	return `"` + e.table + `"`
}

// EnsureTarget creates the export table and its HNSW index and records
// spec. A table built for another dimension or embedding identity is
// dropped and recreated.
func (e *Exporter) EnsureTarget(ctx context.Context, spec domain.TargetSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Name != e.table {
		return fmt.Errorf("%w: %w: exporter writes %s, not %s", domain.ErrStorage, domain.ErrInvalidInput, e.table, spec.Name)
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise concurrent EnsureTarget calls for the same table.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", e.table).Error; err != nil {
			return storageError("locking target", err)
		}

		var existing targetRecord
		err := tx.Where("name = ?", e.table).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return storageError("reading target", err)
		case existing.Dimensions != spec.Dimensions || existing.EmbeddingIdentity != spec.EmbeddingIdentity:
			logger.Warn("Target %s was built with %s (%d dims); rebuilding for %s (%d dims)",
				spec.Name, existing.EmbeddingIdentity, existing.Dimensions, spec.EmbeddingIdentity, spec.Dimensions)
			if err := tx.Exec("DROP TABLE IF EXISTS " + e.quoted()).Error; err != nil {
				return storageError("dropping target", err)
			}
		}

		stmts := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id uuid PRIMARY KEY,
				filename text NOT NULL,
				loc_start integer NOT NULL,
				loc_end integer NOT NULL,
				text text NOT NULL,
				embedding vector(%d) NOT NULL
			)`, e.quoted(), spec.Dimensions),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_filename_idx" ON %s (filename)`, e.table, e.quoted()),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_embedding_idx" ON %s USING hnsw (embedding vector_cosine_ops)`,
				e.table, e.quoted()),
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return storageError("creating target", err)
			}
		}

		rec := targetRecord{
			Name:              spec.Name,
			Dimensions:        spec.Dimensions,
			Metric:            string(spec.Metric),
			EmbeddingIdentity: spec.EmbeddingIdentity,
			UpdatedAt:         time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return storageError("recording target", err)
		}
		return nil
	})
}

// Target returns the recorded spec for this exporter's table.
func (e *Exporter) Target(ctx context.Context) (*domain.TargetSpec, error) {
	return e.target(e.db.WithContext(ctx))
}

func (e *Exporter) target(db *gorm.DB) (*domain.TargetSpec, error) {
	var rec targetRecord
	err := db.Where("name = ?", e.table).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageError("reading target", err)
	}
	return &domain.TargetSpec{
		Name:              rec.Name,
		Dimensions:        rec.Dimensions,
		Metric:            domain.Metric(rec.Metric),
		EmbeddingIdentity: rec.EmbeddingIdentity,
	}, nil
}

// ReplaceDocument upserts rows and deletes filename's other rows in one
// transaction. Rows identical to the stored copy are not rewritten.
// Concurrent upserts of the same ID serialise on the row lock taken by
// INSERT ... ON CONFLICT.
func (e *Exporter) ReplaceDocument(
	ctx context.Context, filename string, rows []domain.IndexRow,
) (domain.UpsertStats, error) {
	var stats domain.UpsertStats

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		spec, err := e.target(tx)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: target %s not created", domain.ErrStorage, e.table)
		}
		if err != nil {
			return err
		}
		if err := validateRows(spec, filename, rows); err != nil {
			return err
		}

		var stored []indexRow
		err = tx.Raw(`SELECT id::text AS id, filename, loc_start, loc_end, text, embedding FROM `+e.quoted()+
			` WHERE filename = ?`, filename).Scan(&stored).Error
		if err != nil {
			return storageError("loading rows", err)
		}
		existing := make(map[string]domain.IndexRow, len(stored))
		for _, r := range stored {
			existing[r.ID] = r.toDomain()
		}

		upsert := `INSERT INTO ` + e.quoted() + ` (id, filename, loc_start, loc_end, text, embedding)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				filename = EXCLUDED.filename,
				loc_start = EXCLUDED.loc_start,
				loc_end = EXCLUDED.loc_end,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding`

		keep := make([]string, 0, len(rows))
		for _, row := range rows {
			keep = append(keep, row.ID)
			old, ok := existing[row.ID]
			switch {
			case !ok:
				stats.Inserted++
			case old.Equal(row):
				stats.Unchanged++
				continue
			default:
				stats.Updated++
			}
			err := tx.Exec(upsert, row.ID, row.Filename, row.Location.Start, row.Location.End,
				row.Text, pgvector.NewVector(row.Embedding)).Error
			if err != nil {
				return storageError("upserting row", err)
			}
		}

		var del *gorm.DB
		if len(keep) > 0 {
			del = tx.Exec(`DELETE FROM `+e.quoted()+` WHERE filename = ? AND id::text NOT IN ?`, filename, keep)
		} else {
			del = tx.Exec(`DELETE FROM `+e.quoted()+` WHERE filename = ?`, filename)
		}
		if del.Error != nil {
			return storageError("deleting rows", del.Error)
		}
		stats.Deleted = int(del.RowsAffected)
		return nil
	})
	if err != nil {
		return domain.UpsertStats{}, err
	}
	return stats, nil
}

func validateRows(spec *domain.TargetSpec, filename string, rows []domain.IndexRow) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Filename != filename {
			return fmt.Errorf("%w: %w: row %s belongs to %s, not %s",
				domain.ErrStorage, domain.ErrInvalidInput, row.ID, row.Filename, filename)
		}
		if len(row.Embedding) != spec.Dimensions {
			return fmt.Errorf("%w: %w: row %s has %d dimensions, target has %d",
				domain.ErrStorage, domain.ErrDimensionMismatch, row.ID, len(row.Embedding), spec.Dimensions)
		}
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("%w: %w: duplicate row %s", domain.ErrStorage, domain.ErrInvalidInput, row.ID)
		}
		seen[row.ID] = struct{}{}
	}
	return nil
}

// DeleteDocument removes every row of filename.
func (e *Exporter) DeleteDocument(ctx context.Context, filename string) (int, error) {
	res := e.db.WithContext(ctx).Exec(`DELETE FROM `+e.quoted()+` WHERE filename = ?`, filename)
	if res.Error != nil {
		return 0, storageError("deleting document", res.Error)
	}
	return int(res.RowsAffected), nil
}

// CountRows returns how many rows filename has.
func (e *Exporter) CountRows(ctx context.Context, filename string) (int, error) {
	var n int64
	err := e.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM `+e.quoted()+` WHERE filename = ?`, filename).Scan(&n).Error
	if err != nil {
		return 0, storageError("counting rows", err)
	}
	return int(n), nil
}

// Search returns the k rows nearest to vec by cosine distance.
// Score is 1 - distance.
func (e *Exporter) Search(ctx context.Context, vec []float32, k int) ([]domain.ScoredRow, error) {
	spec, err := e.Target(ctx)
	if err != nil {
		return nil, err
	}
	if len(vec) != spec.Dimensions {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, target has %d",
			domain.ErrStorage, domain.ErrDimensionMismatch, len(vec), spec.Dimensions)
	}

	q := pgvector.NewVector(vec)
	var found []indexRow
	err = e.db.WithContext(ctx).Raw(`
		SELECT id::text AS id, filename, loc_start, loc_end, text, embedding,
			1 - (embedding <=> ?) AS score
		FROM `+e.quoted()+`
		ORDER BY embedding <=> ?, id
		LIMIT ?`, q, q, k).Scan(&found).Error
	if err != nil {
		return nil, storageError("searching", err)
	}

	scored := make([]domain.ScoredRow, 0, len(found))
	for _, r := range found {
		scored = append(scored, domain.ScoredRow{Row: r.toDomain(), Score: r.Score})
	}
	return domain.RankScored(scored, k), nil
}

// Close closes the connection pool.
func (e *Exporter) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
