package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ErrNotFound is returned by Delete when no row has the given id.
var ErrNotFound = errors.New("news item not found")

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const table = "news_items"

var itemColumns = []string{
	"id", "title", "url", "source", "published_at", "priority",
	"content_category", "summary", "score", "comments", "author",
	"relevance_score",
}

// Options tunes read behaviour.
type Options struct {
	// ExcludeExpired hides rows whose expires_at has passed from fallback
	// reads. Off by default: expired rows stay servable until replaced.
	ExcludeExpired bool
	Now            func() time.Time
}

// Repository persists news snapshots in Postgres or SQLite.
type Repository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	opts    Options
}

var _ ports.NewsRepository = (*Repository)(nil)

// Open connects to the database using one of the supported drivers.
func Open(ctx context.Context, driver, dsn string, opts Options) (*Repository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// In-memory databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo, err := NewRepository(db, driver, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewRepository wires an existing sql.DB.
func NewRepository(db *sql.DB, driver string, opts Options) (*Repository, error) {
	builder := sq.StatementBuilder
	switch driver {
	case DriverPostgres:
		builder = builder.PlaceholderFormat(sq.Dollar)
	case DriverSQLite:
		builder = builder.PlaceholderFormat(sq.Question)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Repository{db: db, driver: driver, builder: builder, opts: opts}, nil
}

// Migrate creates the schema if it does not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + r.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Upsert writes records in a single statement. Identity columns keep their
// first value; scores, comments, summary and expiry are overwritten.
func (r *Repository) Upsert(ctx context.Context, records []domain.PersistedRecord) error {
	records = lastByID(records)
	if len(records) == 0 {
		return nil
	}

	insert := r.builder.Insert(table).Columns(append(slices.Clone(itemColumns), "expires_at")...)
	for _, rec := range records {
		categories, err := encodeCategories(rec.Item.ContentCategory)
		if err != nil {
			return fmt.Errorf("encode categories for %s: %w", rec.Item.ID, err)
		}
		insert = insert.Values(
			rec.Item.ID,
			rec.Item.Title,
			rec.Item.URL,
			string(rec.Item.Source),
			rec.Item.PublishedAt.UTC(),
			string(rec.Item.PriorityOrDefault()),
			categories,
			nullString(rec.Item.Summary),
			rec.Item.Score,
			rec.Item.Comments,
			nullString(rec.Item.By),
			rec.RelevanceScore,
			rec.ExpiresAt.UTC(),
		)
	}
	insert = insert.Suffix(`ON CONFLICT (id) DO UPDATE SET
		relevance_score = excluded.relevance_score,
		score = excluded.score,
		comments = excluded.comments,
		summary = excluded.summary,
		expires_at = excluded.expires_at`)

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert news: %w", err)
	}
	return nil
}

// QueryAboveThreshold returns stored items scoring at least minScore, best
// first, newest first among equal scores.
func (r *Repository) QueryAboveThreshold(ctx context.Context, minScore float64, limit int) ([]domain.NewsItem, error) {
	q := r.builder.Select(itemColumns...).
		From(table).
		Where(sq.GtOrEq{"relevance_score": minScore}).
		OrderBy("relevance_score DESC", "published_at DESC")
	if r.opts.ExcludeExpired {
		q = q.Where(sq.Gt{"expires_at": r.opts.Now().UTC()})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query news: %w", err)
	}
	defer rows.Close()

	var items []domain.NewsItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// Categories returns the distinct content categories across stored items.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	query, args, err := r.builder.Select("content_category").From(table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan categories: %w", err)
		}
		categories, err := decodeCategories(raw)
		if err != nil {
			return nil, err
		}
		for _, c := range categories {
			seen[c] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	slices.Sort(out)
	return out, nil
}

// Sources returns the distinct sources across stored items.
func (r *Repository) Sources(ctx context.Context) ([]string, error) {
	query, args, err := r.builder.Select("source").Distinct().From(table).OrderBy("source").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Delete removes one item by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.builder.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(rows *sql.Rows) (domain.NewsItem, error) {
	var (
		item       domain.NewsItem
		source     string
		priority   string
		categories string
		summary    sql.NullString
		score      sql.NullFloat64
		comments   sql.NullInt64
		author     sql.NullString
	)
	err := rows.Scan(
		&item.ID, &item.Title, &item.URL, &source, &item.PublishedAt, &priority,
		&categories, &summary, &score, &comments, &author, &item.RelevanceScore,
	)
	if err != nil {
		return domain.NewsItem{}, fmt.Errorf("scan news: %w", err)
	}

	item.Source = domain.Source(source)
	item.Priority = domain.Priority(priority)
	item.PublishedAt = item.PublishedAt.UTC()
	item.Summary = summary.String
	item.By = author.String
	if score.Valid {
		item.Score = &score.Float64
	}
	if comments.Valid {
		n := int(comments.Int64)
		item.Comments = &n
	}
	if item.ContentCategory, err = decodeCategories(categories); err != nil {
		return domain.NewsItem{}, err
	}
	return item, nil
}

func encodeCategories(categories []string) (string, error) {
	if len(categories) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(categories)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeCategories(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// lastByID keeps one record per id; a later record wins. Postgres rejects a
// single ON CONFLICT statement that touches the same row twice.
func lastByID(records []domain.PersistedRecord) []domain.PersistedRecord {
	index := make(map[string]int, len(records))
	out := make([]domain.PersistedRecord, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.Item.ID]; ok {
			out[i] = rec
			continue
		}
		index[rec.Item.ID] = len(out)
		out = append(out, rec)
	}
	return out
}
