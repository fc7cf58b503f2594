package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"storyreel/server/internal/model"
)

// CreateVideo persists a new job. Storyboard and provider metadata are
// serialized to JSON only at this boundary; the services operate on typed
// values.
func (s *Store) CreateVideo(ctx context.Context, job model.VideoJob) (model.VideoJob, error) {
	storyboardJSON, err := json.Marshal(job.Storyboard)
	if err != nil {
		return model.VideoJob{}, ErrInvalidInput
	}
	videoData, err := marshalVideoData(job.VideoData)
	if err != nil {
		return model.VideoJob{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_videos (id, user_id, script, video_url, generation_id, status, storyboard, video_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.Script, job.VideoURL, job.GenerationID, string(job.Status),
		string(storyboardJSON), videoData, formatTime(now), formatTime(now),
	)
	if err != nil {
		return model.VideoJob{}, unavailable("insert video", err)
	}
	return job, nil
}

func (s *Store) GetVideo(ctx context.Context, id string) (model.VideoJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, script, video_url, generation_id, status, storyboard, video_data, created_at, updated_at
		 FROM user_videos WHERE id = ?`, id)
	return scanVideo(row)
}

// ListVideosByUser returns the user's jobs newest first.
func (s *Store) ListVideosByUser(ctx context.Context, userID int64) ([]model.VideoJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, script, video_url, generation_id, status, storyboard, video_data, created_at, updated_at
		 FROM user_videos WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, unavailable("list videos", err)
	}
	defer rows.Close()

	jobs := []model.VideoJob{}
	for rows.Next() {
		job, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list videos", err)
	}
	return jobs, nil
}

// UpdateVideo writes all mutable fields of the job, conditioned on the status
// it was read at. A zero-row update means another caller moved the job first
// and surfaces as ErrConflict.
func (s *Store) UpdateVideo(ctx context.Context, job model.VideoJob, priorStatus model.JobStatus) (model.VideoJob, error) {
	storyboardJSON, err := json.Marshal(job.Storyboard)
	if err != nil {
		return model.VideoJob{}, ErrInvalidInput
	}
	videoData, err := marshalVideoData(job.VideoData)
	if err != nil {
		return model.VideoJob{}, ErrInvalidInput
	}

	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_videos
		 SET script = ?, video_url = ?, generation_id = ?, status = ?, storyboard = ?, video_data = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		job.Script, job.VideoURL, job.GenerationID, string(job.Status),
		string(storyboardJSON), videoData, formatTime(job.UpdatedAt),
		job.ID, string(priorStatus),
	)
	if err != nil {
		return model.VideoJob{}, unavailable("update video", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.VideoJob{}, unavailable("update video", err)
	}
	if affected == 0 {
		if _, getErr := s.GetVideo(ctx, job.ID); errors.Is(getErr, ErrNotFound) {
			return model.VideoJob{}, ErrNotFound
		}
		return model.VideoJob{}, ErrConflict
	}
	return job, nil
}

func marshalVideoData(meta *model.ProviderMetadata) (any, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func scanVideo(row rowScanner) (model.VideoJob, error) {
	var job model.VideoJob
	var status, storyboardJSON, createdAt, updatedAt string
	var videoData sql.NullString
	err := row.Scan(&job.ID, &job.UserID, &job.Script, &job.VideoURL, &job.GenerationID,
		&status, &storyboardJSON, &videoData, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VideoJob{}, ErrNotFound
		}
		return model.VideoJob{}, unavailable("scan video", err)
	}
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(storyboardJSON), &job.Storyboard); err != nil {
		return model.VideoJob{}, unavailable("decode storyboard", err)
	}
	if videoData.Valid && videoData.String != "" {
		var meta model.ProviderMetadata
		if err := json.Unmarshal([]byte(videoData.String), &meta); err != nil {
			return model.VideoJob{}, unavailable("decode video data", err)
		}
		job.VideoData = &meta
	}
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return job, nil
}
