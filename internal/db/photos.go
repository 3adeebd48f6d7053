package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
)

const photoColumns = `id, issue_id, mime_type, width, height, created_at, blob, thumbnail`

// PutPhoto inserts or replaces a photo record keyed by its ID. The owning
// issue must already exist.
func PutPhoto(ctx context.Context, q querier, p *model.Photo) error {
	thumb := p.Thumbnail
	if thumb == nil {
		thumb = []byte{}
	}
	blob := p.Blob
	if blob == nil {
		blob = []byte{}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO photos (`+photoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			issue_id = excluded.issue_id,
			mime_type = excluded.mime_type,
			width = excluded.width,
			height = excluded.height,
			created_at = excluded.created_at,
			blob = excluded.blob,
			thumbnail = excluded.thumbnail`,
		p.ID, p.IssueID, p.MIMEType, p.Width, p.Height, p.CreatedAt.UnixMilli(), blob, thumb,
	)
	if err != nil {
		return fmt.Errorf("upserting photo %s: %w", p.ID, err)
	}
	return nil
}

// GetPhoto retrieves a photo record by ID.
func GetPhoto(ctx context.Context, q querier, id string) (*model.Photo, error) {
	row := q.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
	p, err := scanPhotoFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning photo: %w", err)
	}
	return p, nil
}

// GetPhotosForIssue returns the photos of an issue in the order of the
// issue's photo list. Records that reference the issue without being listed
// are orphans and are not returned; neither is anything for a missing issue.
func GetPhotosForIssue(ctx context.Context, q querier, issueID string) ([]*model.Photo, error) {
	issue, err := GetIssue(ctx, q, issueID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []*model.Photo{}, nil
		}
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE issue_id = ? ORDER BY rowid ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying photos of issue %s: %w", issueID, err)
	}
	defer rows.Close()

	byID := make(map[string]*model.Photo)
	for rows.Next() {
		p, err := scanPhotoFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning photo row: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating photo rows: %w", err)
	}

	photos := make([]*model.Photo, 0, len(issue.Photos))
	for _, id := range issue.Photos {
		if p, ok := byID[id]; ok {
			photos = append(photos, p)
			delete(byID, id)
		}
	}
	return photos, nil
}

// DeletePhoto removes a photo record by ID. Callers that also need the
// owning issue's list updated should use RemovePhoto.
func DeletePhoto(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting photo %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPhotos returns the total number of photo records.
func CountPhotos(ctx context.Context, q querier) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting photos: %w", err)
	}
	return count, nil
}

// SweepOrphanPhotos deletes photo records whose issue is gone or whose issue
// does not list them, and returns how many were removed.
func SweepOrphanPhotos(ctx context.Context, db *sql.DB) (int, error) {
	removed := 0
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		listed := make(map[string]string)
		issues, err := ListIssues(ctx, tx)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			for _, id := range issue.Photos {
				listed[id] = issue.ID
			}
		}

		rows, err := tx.QueryContext(ctx, `SELECT id, issue_id FROM photos`)
		if err != nil {
			return fmt.Errorf("querying photo owners: %w", err)
		}
		var orphans []string
		for rows.Next() {
			var id, issueID string
			if err := rows.Scan(&id, &issueID); err != nil {
				rows.Close()
				return fmt.Errorf("scanning photo owner: %w", err)
			}
			if owner, ok := listed[id]; !ok || owner != issueID {
				orphans = append(orphans, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating photo owners: %w", err)
		}

		for _, id := range orphans {
			if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deleting orphan photo %s: %w", id, err)
			}
		}
		removed = len(orphans)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// IssueIDsWithPhoto returns the ids of issues that claim photoID, either by
// listing it or by owning its record.
func IssueIDsWithPhoto(ctx context.Context, q querier, photoID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM (
			SELECT i.id AS id FROM issues i, json_each(i.photos) j WHERE j.value = ?
			UNION
			SELECT issue_id AS id FROM photos WHERE id = ?
		) ORDER BY id`,
		photoID, photoID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying owners of photo %s: %w", photoID, err)
	}
	defer rows.Close()

	ids := make([]string, 0, 1)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning photo owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// photoIDsForIssue returns the ids of every record stored under issueID,
// listed or not.
func photoIDsForIssue(ctx context.Context, q querier, issueID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM photos WHERE issue_id = ?`, issueID)
	if err != nil {
		return nil, fmt.Errorf("querying photo ids of issue %s: %w", issueID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning photo id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPhotoFrom(s scanner) (*model.Photo, error) {
	var p model.Photo
	var createdAt int64
	if err := s.Scan(&p.ID, &p.IssueID, &p.MIMEType, &p.Width, &p.Height, &createdAt, &p.Blob, &p.Thumbnail); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &p, nil
}
