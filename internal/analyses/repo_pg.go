package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"readability-backend/internal/acquire"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const recordColumns = `id, owner_id, owner_role, source_kind, source_url, normalized_url, file_name,
       title, description, language, word_count, overall_score, grade,
       category_scores, check_results, recommendations, model_extractions, issue_summary,
       scoring_version, prompt_version, previous_analysis_id, score_delta, snapshot_key,
       is_shared, share_token, share_expires_at, created_at`

// Insert writes a new record.
func (r *PGRepo) Insert(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO readability_analyses (
	id, owner_id, owner_role, source_kind, source_url, normalized_url, file_name,
	title, description, language, word_count, overall_score, grade,
	category_scores, check_results, recommendations, model_extractions, issue_summary,
	scoring_version, prompt_version, previous_analysis_id, score_delta, snapshot_key,
	is_shared, share_token, share_expires_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`

	payloads := make([][]byte, 0, 5)
	for _, v := range []any{rec.CategoryScores, rec.CheckResults, rec.Recommendations, rec.ModelExtractions, rec.IssueSummary} {
		b, err := marshalJSONB(v)
		if err != nil {
			return err
		}
		payloads = append(payloads, b)
	}

	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.OwnerID,
		rec.OwnerRole,
		string(rec.Source.Kind),
		rec.Source.URL,
		rec.Source.NormalizedURL,
		rec.Source.FileName,
		rec.Title,
		rec.Description,
		rec.Language,
		rec.WordCount,
		rec.OverallScore,
		rec.Grade,
		payloads[0],
		payloads[1],
		payloads[2],
		payloads[3],
		payloads[4],
		rec.ScoringVersion,
		rec.PromptVersion,
		nullString(rec.PreviousAnalysisID),
		nullInt(rec.ScoreDelta),
		rec.SnapshotKey,
		rec.IsShared,
		nullString(rec.ShareToken),
		nullTime(rec.ShareExpiresAt),
		rec.CreatedAt,
	)
	return err
}

// GetByID returns a record by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Record, error) {
	query := `SELECT ` + recordColumns + `
FROM readability_analyses
WHERE id = $1
LIMIT 1`
	return scanRecord(r.DB.QueryRowContext(ctx, query, id))
}

// GetByShareToken returns the record shared under token.
func (r *PGRepo) GetByShareToken(ctx context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrNotFound
	}
	query := `SELECT ` + recordColumns + `
FROM readability_analyses
WHERE share_token = $1 AND is_shared
LIMIT 1`
	return scanRecord(r.DB.QueryRowContext(ctx, query, token))
}

// Delete removes a record.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM readability_analyses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes the given records in one statement.
func (r *PGRepo) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM readability_analyses WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// List returns a filtered page positioned after the cursor.
func (r *PGRepo) List(ctx context.Context, q ListQuery, after *Cursor, limit int) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.AllOwners {
		where = append(where, "owner_id = "+arg(q.OwnerID))
	}
	if q.MinScore != nil {
		where = append(where, "overall_score >= "+arg(*q.MinScore))
	}
	if q.MaxScore != nil {
		where = append(where, "overall_score <= "+arg(*q.MaxScore))
	}
	if q.From != nil {
		where = append(where, "created_at >= "+arg(*q.From))
	}
	if q.To != nil {
		where = append(where, "created_at <= "+arg(*q.To))
	}

	sortColumn := "created_at"
	if q.Sort == SortByScore {
		sortColumn = "overall_score"
	}
	dir, cmp := "ASC", ">"
	if q.Desc {
		dir, cmp = "DESC", "<"
	}
	if after != nil {
		var pivot any = after.CreatedAt
		if q.Sort == SortByScore {
			pivot = after.Score
		}
		where = append(where, fmt.Sprintf("(%s, id) %s (%s, %s)", pq.QuoteIdentifier(sortColumn), cmp, arg(pivot), arg(after.ID)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + recordColumns + "\nFROM readability_analyses")
	if len(where) > 0 {
		b.WriteString("\nWHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, "\nORDER BY %s %s, id %s", pq.QuoteIdentifier(sortColumn), dir, dir)
	if limit > 0 {
		b.WriteString("\nLIMIT " + arg(limit))
	}
	return r.queryRecords(ctx, b.String(), args...)
}

// ListBySource returns the owner's records for a normalized URL, newest first.
func (r *PGRepo) ListBySource(ctx context.Context, ownerID, normalizedURL string, limit int) ([]Record, error) {
	if normalizedURL == "" {
		return []Record{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + recordColumns + `
FROM readability_analyses
WHERE owner_id = $1 AND normalized_url = $2
ORDER BY created_at DESC, id DESC
LIMIT $3`
	return r.queryRecords(ctx, query, ownerID, normalizedURL, limit)
}

// CountByOwner counts the owner's records.
func (r *PGRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM readability_analyses WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

// OldestByOwner returns the owner's n oldest records.
func (r *PGRepo) OldestByOwner(ctx context.Context, ownerID string, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}
	query := `SELECT ` + recordColumns + `
FROM readability_analyses
WHERE owner_id = $1
ORDER BY created_at ASC, id ASC
LIMIT $2`
	return r.queryRecords(ctx, query, ownerID, n)
}

// UpdateShare sets or clears the sharing fields in one statement.
func (r *PGRepo) UpdateShare(ctx context.Context, id string, token *string, expiresAt *time.Time) error {
	if token == nil {
		expiresAt = nil
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE readability_analyses
SET is_shared = $2, share_token = $3, share_expires_at = $4
WHERE id = $1`, id, token != nil, nullString(token), nullTime(expiresAt))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReassignOwner moves the records of one owner to another.
func (r *PGRepo) ReassignOwner(ctx context.Context, fromOwnerID, toOwnerID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE readability_analyses SET owner_id = $1 WHERE owner_id = $2`, toOwnerID, fromOwnerID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PGRepo) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec             Record
		kind            string
		categoryScores  []byte
		checkResults    []byte
		recommendations []byte
		extractions     []byte
		issueSummary    []byte
		previousID      sql.NullString
		scoreDelta      sql.NullInt64
		shareToken      sql.NullString
		shareExpiresAt  sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.OwnerRole,
		&kind,
		&rec.Source.URL,
		&rec.Source.NormalizedURL,
		&rec.Source.FileName,
		&rec.Title,
		&rec.Description,
		&rec.Language,
		&rec.WordCount,
		&rec.OverallScore,
		&rec.Grade,
		&categoryScores,
		&checkResults,
		&recommendations,
		&extractions,
		&issueSummary,
		&rec.ScoringVersion,
		&rec.PromptVersion,
		&previousID,
		&scoreDelta,
		&rec.SnapshotKey,
		&rec.IsShared,
		&shareToken,
		&shareExpiresAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Source.Kind = acquire.SourceKind(kind)

	for _, p := range []struct {
		raw  []byte
		dest any
	}{
		{categoryScores, &rec.CategoryScores},
		{checkResults, &rec.CheckResults},
		{recommendations, &rec.Recommendations},
		{extractions, &rec.ModelExtractions},
		{issueSummary, &rec.IssueSummary},
	} {
		if len(p.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(p.raw, p.dest); err != nil {
			return Record{}, fmt.Errorf("decode record %s: %w", rec.ID, err)
		}
	}

	if previousID.Valid {
		rec.PreviousAnalysisID = &previousID.String
	}
	if scoreDelta.Valid {
		d := int(scoreDelta.Int64)
		rec.ScoreDelta = &d
	}
	if shareToken.Valid {
		rec.ShareToken = &shareToken.String
	}
	if shareExpiresAt.Valid {
		t := shareExpiresAt.Time.UTC()
		rec.ShareExpiresAt = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
