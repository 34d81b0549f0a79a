// Package sqlite persists analyzed posts to a local SQLite database so the
// reporting views and CLI can read them back.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // sqlite:// migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed sink for analyzed posts.
// It implements pipeline.BatchLoader.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Open migrates the database at path to the latest schema and opens it.
func Open(ctx context.Context, path string, metrics *observability.Metrics, logger *slog.Logger) (*Store, error) {
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, metrics: metrics, logger: logger}, nil
}

// RunMigrations applies all embedded migrations. It is a no-op when the
// schema is already current.
func RunMigrations(path string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

const upsertSQL = `
INSERT INTO analyzed_posts (
    post_id, platform, community, title, body, author, score, num_comments, permalink,
    created_at, risk_level, vader_sentiment, lexicon_sentiment, sentiment,
    location_text, location_source, lat, lon, address, state,
    heat_weight, cleaned_content, processed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(post_id) DO UPDATE SET
    platform = excluded.platform,
    community = excluded.community,
    title = excluded.title,
    body = excluded.body,
    author = excluded.author,
    score = excluded.score,
    num_comments = excluded.num_comments,
    permalink = excluded.permalink,
    created_at = excluded.created_at,
    risk_level = excluded.risk_level,
    vader_sentiment = excluded.vader_sentiment,
    lexicon_sentiment = excluded.lexicon_sentiment,
    sentiment = excluded.sentiment,
    location_text = excluded.location_text,
    location_source = excluded.location_source,
    lat = excluded.lat,
    lon = excluded.lon,
    address = excluded.address,
    state = excluded.state,
    heat_weight = excluded.heat_weight,
    cleaned_content = excluded.cleaned_content,
    processed_at = excluded.processed_at`

// LoadBatch upserts posts in a single transaction. Reprocessing a post
// replaces its previous row.
func (s *Store) LoadBatch(ctx context.Context, posts []domain.AnalyzedPost) error {
	if len(posts) == 0 {
		return nil
	}
	err := s.upsert(ctx, posts)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.StoreWrites.WithLabelValues(outcome).Add(float64(len(posts)))
	return err
}

func (s *Store) upsert(ctx context.Context, posts []domain.AnalyzedPost) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range posts {
		if _, err := stmt.ExecContext(ctx, upsertArgs(&posts[i])...); err != nil {
			return fmt.Errorf("upsert post %s: %w", posts[i].PostID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertArgs(p *domain.AnalyzedPost) []any {
	var locText, locSource, address, state sql.NullString
	var lat, lon sql.NullFloat64
	if p.Location != nil {
		locText = sql.NullString{String: p.Location.Text, Valid: true}
		locSource = sql.NullString{String: string(p.Location.Source), Valid: true}
	}
	if p.Geo != nil {
		lat = sql.NullFloat64{Float64: p.Geo.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: p.Geo.Lon, Valid: true}
		address = sql.NullString{String: p.Geo.Address, Valid: true}
	}
	if p.State != nil {
		state = sql.NullString{String: *p.State, Valid: true}
	}
	return []any{
		p.PostID, p.Platform, p.Community, p.Title, p.Body, p.Author, p.Score, p.NumComments, p.Permalink,
		p.CreatedAt.UTC().Format(timeLayout), string(p.Risk.Tier), p.Risk.PrimaryPolarity, p.Risk.SecondaryPolarity, string(p.Risk.Label),
		locText, locSource, lat, lon, address, state,
		p.HeatWeight, p.CleanedText, p.ProcessedAt.UTC().Format(timeLayout),
	}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Tier  domain.RiskTier
	State string
	Since time.Time
	Limit int
}

// List returns stored posts matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]domain.AnalyzedPost, error) {
	query := `SELECT post_id, platform, community, title, body, author, score, num_comments, permalink,
    created_at, risk_level, vader_sentiment, lexicon_sentiment, sentiment,
    location_text, location_source, lat, lon, address, state,
    heat_weight, cleaned_content, processed_at
FROM analyzed_posts`

	var where []string
	var args []any
	if f.Tier != "" {
		where = append(where, "risk_level = ?")
		args = append(args, string(f.Tier))
	}
	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, strings.ToUpper(f.State))
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, post_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []domain.AnalyzedPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func scanPost(rows *sql.Rows) (domain.AnalyzedPost, error) {
	var (
		p                                   domain.AnalyzedPost
		createdAt, processedAt, tier, label string
		locText, locSource, address, state  sql.NullString
		lat, lon                            sql.NullFloat64
	)
	err := rows.Scan(
		&p.PostID, &p.Platform, &p.Community, &p.Title, &p.Body, &p.Author, &p.Score, &p.NumComments, &p.Permalink,
		&createdAt, &tier, &p.Risk.PrimaryPolarity, &p.Risk.SecondaryPolarity, &label,
		&locText, &locSource, &lat, &lon, &address, &state,
		&p.HeatWeight, &p.CleanedText, &processedAt,
	)
	if err != nil {
		return domain.AnalyzedPost{}, fmt.Errorf("scan post: %w", err)
	}

	p.Risk.Tier = domain.RiskTier(tier)
	p.Risk.Label = domain.SentimentLabel(label)
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.AnalyzedPost{}, fmt.Errorf("post %s created_at: %w", p.PostID, err)
	}
	if p.ProcessedAt, err = time.Parse(timeLayout, processedAt); err != nil {
		return domain.AnalyzedPost{}, fmt.Errorf("post %s processed_at: %w", p.PostID, err)
	}
	if locText.Valid {
		p.Location = &domain.LocationCandidate{Text: locText.String, Source: domain.LocationSource(locSource.String)}
	}
	if lat.Valid && lon.Valid {
		p.Geo = &domain.GeoPoint{Lat: lat.Float64, Lon: lon.Float64, Address: address.String}
	}
	if state.Valid {
		code := state.String
		p.State = &code
	}
	return p, nil
}
