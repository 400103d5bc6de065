package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/utils/pagination"
)

const versionColumns = `version_id, entity_id, valid_from, valid_until, recorded_at, superseded_at, payload`

// PgxVersionRepository persists bi-temporal version chains in PostgreSQL.
// Payloads travel as JSONB; a partial unique index on (entity_id) where
// superseded_at IS NULL enforces the single-open-version invariant.
type PgxVersionRepository[T any] struct {
	BaseRepository
}

// NewPgxVersionRepository creates a new repository for version data.
func NewPgxVersionRepository[T any](pool *pgxpool.Pool) *PgxVersionRepository[T] {
	return &PgxVersionRepository[T]{BaseRepository: BaseRepository{Pool: pool}}
}

var _ ports.VersionRepository[json.RawMessage] = (*PgxVersionRepository[json.RawMessage])(nil)

func (r *PgxVersionRepository[T]) AppendVersion(ctx context.Context, rec domain.BiTemporalRecord[T]) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for entity %s: %w", rec.EntityID, err)
	}

	query := `
		INSERT INTO entity_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err = r.Pool.Exec(ctx, query,
		rec.VersionID,
		rec.EntityID,
		rec.ValidPeriod.Start,
		rec.ValidPeriod.End,
		rec.SystemPeriod.RecordedAt,
		rec.SystemPeriod.SupersededAt,
		payload,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// The partial unique index rejects a second open version.
			return fmt.Errorf("%w: entity %s already has an open version", domain.ErrTemporalOverlap, rec.EntityID)
		}
		return fmt.Errorf("failed to append version %s: %w", rec.VersionID, err)
	}
	return nil
}

func (r *PgxVersionRepository[T]) CloseVersion(ctx context.Context, entityID string, versionID domain.VersionID, supersededAt time.Time) error {
	query := `
		UPDATE entity_versions
		SET superseded_at = $3
		WHERE entity_id = $1 AND version_id = $2 AND superseded_at IS NULL;
	`
	tag, err := r.Pool.Exec(ctx, query, entityID, versionID, supersededAt)
	if err != nil {
		return fmt.Errorf("failed to close version %s: %w", versionID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		checkErr := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entity_versions WHERE entity_id = $1 AND version_id = $2);`, entityID, versionID).Scan(&exists)
		if checkErr != nil {
			return fmt.Errorf("failed to check version %s: %w", versionID, checkErr)
		}
		if !exists {
			return fmt.Errorf("%w: version %s of entity %s", apperrors.ErrNotFound, versionID, entityID)
		}
		return fmt.Errorf("%w: version %s is already closed", apperrors.ErrConflict, versionID)
	}
	return nil
}

// SupersedeVersion closes the expected open version and appends its
// replacement inside one database transaction. The WHERE clause on the
// close is the optimistic concurrency check.
func (r *PgxVersionRepository[T]) SupersedeVersion(ctx context.Context, entityID string, openVersionID domain.VersionID, replacement domain.BiTemporalRecord[T]) error {
	payload, err := json.Marshal(replacement.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for entity %s: %w", entityID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	closeQuery := `
		UPDATE entity_versions
		SET superseded_at = $3
		WHERE entity_id = $1 AND version_id = $2 AND superseded_at IS NULL;
	`
	tag, err := tx.Exec(ctx, closeQuery, entityID, openVersionID, replacement.SystemPeriod.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to close version %s: %w", openVersionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: version %s is not the open version of entity %s", apperrors.ErrConflict, openVersionID, entityID)
	}

	insertQuery := `
		INSERT INTO entity_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err = tx.Exec(ctx, insertQuery,
		replacement.VersionID,
		replacement.EntityID,
		replacement.ValidPeriod.Start,
		replacement.ValidPeriod.End,
		replacement.SystemPeriod.RecordedAt,
		replacement.SystemPeriod.SupersededAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append replacement version %s: %w", replacement.VersionID, err)
	}

	return r.Commit(ctx, tx)
}

func (r *PgxVersionRepository[T]) FindOpenVersion(ctx context.Context, entityID string) (*domain.BiTemporalRecord[T], error) {
	query := `
		SELECT ` + versionColumns + `
		FROM entity_versions
		WHERE entity_id = $1 AND superseded_at IS NULL;
	`
	rec, err := scanVersion[T](r.Pool.QueryRow(ctx, query, entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no open version for entity %s", apperrors.ErrNotFound, entityID)
		}
		return nil, fmt.Errorf("failed to find open version for %s: %w", entityID, err)
	}
	return rec, nil
}

func (r *PgxVersionRepository[T]) FindAsOf(ctx context.Context, entityID string, validTime, systemTime time.Time) (*domain.BiTemporalRecord[T], error) {
	query := `
		SELECT ` + versionColumns + `
		FROM entity_versions
		WHERE entity_id = $1
		  AND valid_from <= $2
		  AND (valid_until IS NULL OR valid_until > $2)
		  AND recorded_at <= $3
		  AND (superseded_at IS NULL OR superseded_at >= $3)
		ORDER BY recorded_at DESC
		LIMIT 1;
	`
	rec, err := scanVersion[T](r.Pool.QueryRow(ctx, query, entityID, validTime, systemTime))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: entity %s has no version valid at %s known at %s",
				apperrors.ErrNotFound, entityID, validTime.Format(time.RFC3339), systemTime.Format(time.RFC3339))
		}
		return nil, fmt.Errorf("failed to find version as of for %s: %w", entityID, err)
	}
	return rec, nil
}

func (r *PgxVersionRepository[T]) ListVersions(ctx context.Context, entityID string, limit int, nextToken *string) ([]domain.BiTemporalRecord[T], *string, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if nextToken != nil {
		afterTime, afterID, decodeErr := pagination.DecodeTimeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, decodeErr)
		}
		query := `
			SELECT ` + versionColumns + `
			FROM entity_versions
			WHERE entity_id = $1 AND (recorded_at, version_id) > ($2, $3)
			ORDER BY recorded_at, version_id
			LIMIT $4;
		`
		rows, err = r.Pool.Query(ctx, query, entityID, afterTime, afterID, limit+1)
	} else {
		query := `
			SELECT ` + versionColumns + `
			FROM entity_versions
			WHERE entity_id = $1
			ORDER BY recorded_at, version_id
			LIMIT $2;
		`
		rows, err = r.Pool.Query(ctx, query, entityID, limit+1)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list versions for %s: %w", entityID, err)
	}
	defer rows.Close()

	versions := make([]domain.BiTemporalRecord[T], 0, limit)
	for rows.Next() {
		rec, err := scanVersion[T](rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var token *string
	if len(versions) > limit {
		versions = versions[:limit]
		last := versions[len(versions)-1]
		t := pagination.EncodeTimeToken(last.SystemPeriod.RecordedAt, string(last.VersionID))
		token = &t
	}
	return versions, token, nil
}

func scanVersion[T any](row pgx.Row) (*domain.BiTemporalRecord[T], error) {
	var rec domain.BiTemporalRecord[T]
	var payload []byte
	err := row.Scan(
		&rec.VersionID,
		&rec.EntityID,
		&rec.ValidPeriod.Start,
		&rec.ValidPeriod.End,
		&rec.SystemPeriod.RecordedAt,
		&rec.SystemPeriod.SupersededAt,
		&payload,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload for version %s: %w", rec.VersionID, err)
	}
	return &rec, nil
}
