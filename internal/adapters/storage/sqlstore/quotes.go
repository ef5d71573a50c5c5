package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

const quoteColumns = `
	q.id, q.guid, q.quote_text, q.quote_hash, q.image_url, q.image_alt_text,
	q.likes, q.dislikes, q.created, q.modified,
	a.id, a.guid, a.name,
	c.id, c.guid, c.name,
	o.id, o.guid, o.url, o.api_client_key`

const quoteFrom = `
	FROM quotes q
	LEFT JOIN authors a ON a.id = q.author_id
	LEFT JOIN categories c ON c.id = q.category_id
	LEFT JOIN quote_origins o ON o.id = q.origin_id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RandomQuote implements ports.QuoteRepository.
func (s *Store) RandomQuote(ctx context.Context, category string) (*domain.Quote, error) {
	query := `SELECT ` + quoteColumns + quoteFrom
	var args []any

	if category = strings.TrimSpace(category); category != "" {
		query += ` WHERE LOWER(c.name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(category))+"%")
	}

	query += ` ORDER BY RANDOM() LIMIT 1`

	q, err := scanQuote(s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select random quote: %w", err)
	}

	return q, nil
}

// GetOrCreateAuthor implements ports.QuoteRepository.
func (s *Store) GetOrCreateAuthor(ctx context.Context, name string) (*domain.Author, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO authors (guid, name, created, modified) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`),
		uuid.New(), name, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}

	a := &domain.Author{}
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id, guid, name, created, modified FROM authors WHERE name = ?`), name).
		Scan(&a.ID, &a.GUID, &a.Name, &a.Created, &a.Modified)
	if err != nil {
		return nil, fmt.Errorf("select author: %w", err)
	}

	return a, nil
}

// GetOrCreateCategory implements ports.QuoteRepository.
func (s *Store) GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO categories (guid, name, created, modified) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`),
		uuid.New(), name, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	c := &domain.Category{}
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id, guid, name, created, modified FROM categories WHERE name = ?`), name).
		Scan(&c.ID, &c.GUID, &c.Name, &c.Created, &c.Modified)
	if err != nil {
		return nil, fmt.Errorf("select category: %w", err)
	}

	return c, nil
}

// GetOrCreateOrigin implements ports.QuoteRepository.
func (s *Store) GetOrCreateOrigin(ctx context.Context, url, clientKey string) (*domain.QuoteOrigin, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO quote_origins (guid, url, api_client_key, created, modified) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url, api_client_key) DO NOTHING`),
		uuid.New(), url, clientKey, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert quote origin: %w", err)
	}

	o := &domain.QuoteOrigin{}
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id, guid, url, api_client_key, created, modified
		 FROM quote_origins WHERE url = ? AND api_client_key = ?`), url, clientKey).
		Scan(&o.ID, &o.GUID, &o.URL, &o.APIClientKey, &o.Created, &o.Modified)
	if err != nil {
		return nil, fmt.Errorf("select quote origin: %w", err)
	}

	return o, nil
}

// GetOrCreateQuote implements ports.QuoteRepository.
func (s *Store) GetOrCreateQuote(ctx context.Context, nq domain.NewQuote) (*domain.Quote, bool, error) {
	var imageURL, imageAlt any
	if nq.Image != nil {
		imageURL, imageAlt = nullString(nq.Image.URL), nullString(nq.Image.AltText)
	}

	authorID, categoryID, originID := nullInt(nq.AuthorID), nullInt(nq.CategoryID), nullInt(nq.OriginID)

	existing, err := scanQuote(s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+quoteColumns+quoteFrom+`
		WHERE q.author_id IS NOT DISTINCT FROM ?
		  AND q.category_id IS NOT DISTINCT FROM ?
		  AND q.origin_id IS NOT DISTINCT FROM ?
		  AND q.image_url IS NOT DISTINCT FROM ?
		  AND q.image_alt_text IS NOT DISTINCT FROM ?
		  AND q.quote_text = ?`),
		authorID, categoryID, originID, imageURL, imageAlt, nq.Text))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("select quote: %w", err)
	}

	hash := domain.HashQuoteText(nq.Text)
	now := time.Now().UTC()

	var id int64
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO quotes (guid, author_id, category_id, origin_id, quote_text, quote_hash,
		                     image_url, image_alt_text, likes, dislikes, created, modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
		 RETURNING id`),
		uuid.New(), authorID, categoryID, originID, nq.Text, hash, imageURL, imageAlt, now, now).
		Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, domain.NewDuplicateQuoteError(hash)
		}
		return nil, false, fmt.Errorf("insert quote: %w", err)
	}

	q, err := s.quoteByID(ctx, s.db, id)
	if err != nil {
		return nil, false, err
	}

	return q, true, nil
}

// GetQuote implements ports.QuoteRepository.
func (s *Store) GetQuote(ctx context.Context, guid uuid.UUID) (*domain.Quote, error) {
	q, err := scanQuote(s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+quoteColumns+quoteFrom+` WHERE q.guid = ?`), guid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("quote", guid.String())
	}
	if err != nil {
		return nil, fmt.Errorf("select quote %s: %w", guid, err)
	}

	return q, nil
}

// ListQuotes implements ports.QuoteRepository.
func (s *Store) ListQuotes(ctx context.Context, afterID int64, limit int) ([]*domain.Quote, error) {
	return s.queryQuotes(ctx, `SELECT `+quoteColumns+quoteFrom+`
		WHERE q.id > ? ORDER BY q.id LIMIT ?`, afterID, limit)
}

// MostLiked implements ports.QuoteRepository.
func (s *Store) MostLiked(ctx context.Context, limit int) ([]*domain.Quote, error) {
	return s.queryQuotes(ctx, `SELECT `+quoteColumns+quoteFrom+`
		ORDER BY q.likes DESC, q.id LIMIT ?`, limit)
}

// QuotesMissingImage implements ports.QuoteRepository.
func (s *Store) QuotesMissingImage(ctx context.Context, limit int) ([]*domain.Quote, error) {
	return s.queryQuotes(ctx, `SELECT `+quoteColumns+quoteFrom+`
		WHERE q.image_url IS NULL OR q.image_url = ''
		ORDER BY q.created, q.id LIMIT ?`, limit)
}

// ApplyVote implements ports.QuoteRepository. The row is locked while the new
// counters are computed, then both are written by one UPDATE.
func (s *Store) ApplyVote(ctx context.Context, guid uuid.UUID, vote domain.Vote) (*domain.Quote, error) {
	if err := vote.Validate(); err != nil {
		return nil, err
	}

	var q *domain.Quote

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id, likes, dislikes int64

		err := tx.QueryRowContext(ctx, s.dialect.rebind(
			`SELECT id, likes, dislikes FROM quotes WHERE guid = ?`+s.dialect.lockClause), guid).
			Scan(&id, &likes, &dislikes)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("quote", guid.String())
		}
		if err != nil {
			return fmt.Errorf("lock quote: %w", err)
		}

		likes, dislikes = vote.Apply(likes, dislikes)

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			`UPDATE quotes SET likes = ?, dislikes = ?, modified = ? WHERE id = ?`),
			likes, dislikes, time.Now().UTC(), id); err != nil {
			return fmt.Errorf("update votes: %w", err)
		}

		q, err = s.quoteByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return q, nil
}

// SetVotes implements ports.QuoteRepository.
func (s *Store) SetVotes(ctx context.Context, id, likes, dislikes int64) error {
	if likes < 0 || dislikes < 0 {
		return domain.NewValidationError("votes", "counters must not be negative")
	}

	return s.updateOne(ctx, `UPDATE quotes SET likes = ?, dislikes = ?, modified = ? WHERE id = ?`,
		id, likes, dislikes, time.Now().UTC(), id)
}

// SetImage implements ports.QuoteRepository.
func (s *Store) SetImage(ctx context.Context, id int64, image domain.Image) error {
	return s.updateOne(ctx, `UPDATE quotes SET image_url = ?, image_alt_text = ?, modified = ? WHERE id = ?`,
		id, nullString(image.URL), nullString(image.AltText), time.Now().UTC(), id)
}

func (s *Store) updateOne(ctx context.Context, query string, id int64, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update quote %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote %d: %w", id, err)
	}

	if n == 0 {
		return domain.NewNotFoundError("quote", fmt.Sprint(id))
	}

	return nil
}

func (s *Store) quoteByID(ctx context.Context, db dbtx, id int64) (*domain.Quote, error) {
	q, err := scanQuote(db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+quoteColumns+quoteFrom+` WHERE q.id = ?`), id))
	if err != nil {
		return nil, fmt.Errorf("select quote %d: %w", id, err)
	}

	return q, nil
}

func (s *Store) queryQuotes(ctx context.Context, query string, args ...any) ([]*domain.Quote, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]*domain.Quote, 0)

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

func scanQuote(row rowScanner) (*domain.Quote, error) {
	var (
		q                          domain.Quote
		imageURL, imageAlt         sql.NullString
		authorID, catID, originID  sql.NullInt64
		authorGUID, catGUID        uuid.NullUUID
		originGUID                 uuid.NullUUID
		authorName, catName        sql.NullString
		originURL, originClientKey sql.NullString
	)

	err := row.Scan(
		&q.ID, &q.GUID, &q.Text, &q.Hash, &imageURL, &imageAlt,
		&q.Likes, &q.Dislikes, &q.Created, &q.Modified,
		&authorID, &authorGUID, &authorName,
		&catID, &catGUID, &catName,
		&originID, &originGUID, &originURL, &originClientKey,
	)
	if err != nil {
		return nil, err
	}

	if authorID.Valid {
		q.Author = &domain.Author{ID: authorID.Int64, GUID: authorGUID.UUID, Name: authorName.String}
	}

	if catID.Valid {
		q.Category = &domain.Category{ID: catID.Int64, GUID: catGUID.UUID, Name: catName.String}
	}

	if originID.Valid {
		q.Origin = &domain.QuoteOrigin{
			ID:           originID.Int64,
			GUID:         originGUID.UUID,
			URL:          originURL.String,
			APIClientKey: originClientKey.String,
		}
	}

	if imageURL.Valid && imageURL.String != "" {
		q.Image = &domain.Image{URL: imageURL.String, AltText: imageAlt.String}
	}

	return &q, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
