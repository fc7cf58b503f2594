// Package job owns the video-generation job lifecycle:
// draft -> submitted -> completed|failed. Submission spends one life through
// the ledger; a failed debit leaves the job in draft.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storyreel/server/internal/events"
	"storyreel/server/internal/ledger"
	"storyreel/server/internal/model"
	"storyreel/server/internal/provider"
	"storyreel/server/internal/storyboard"
	"storyreel/server/internal/store"

	"github.com/google/uuid"
)

const minScriptChars = 10

type Service struct {
	store  *store.Store
	ledger *ledger.Service
	prov   provider.Adapter
	hub    *events.Hub
	log    *slog.Logger
}

func NewService(st *store.Store, lg *ledger.Service, prov provider.Adapter, hub *events.Hub, logger *slog.Logger) *Service {
	return &Service{store: st, ledger: lg, prov: prov, hub: hub, log: logger}
}

// Create validates the script, derives its storyboard and persists a new
// draft owned by userID.
func (s *Service) Create(ctx context.Context, userID int64, script string) (model.VideoJob, error) {
	if len([]rune(strings.TrimSpace(script))) < minScriptChars {
		return model.VideoJob{}, store.ErrInvalidInput
	}
	job := model.VideoJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		Script:     script,
		Status:     model.JobDraft,
		Storyboard: storyboard.Generate(script),
	}
	created, err := s.store.CreateVideo(ctx, job)
	if err != nil {
		return model.VideoJob{}, err
	}
	s.publish(created, model.EventJobCreated)
	return created, nil
}

func (s *Service) Get(ctx context.Context, jobID string, userID int64) (model.VideoJob, error) {
	job, err := s.store.GetVideo(ctx, jobID)
	if err != nil {
		return model.VideoJob{}, err
	}
	if job.UserID != userID {
		return model.VideoJob{}, store.ErrForbidden
	}
	return job, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]model.VideoJob, error) {
	return s.store.ListVideosByUser(ctx, userID)
}

// Submit claims the draft, spends one life, and hands the job to the
// provider. The draft is claimed before the debit so two concurrent submits
// of the same job can never spend two credits; a failed debit reverts the
// claim, leaving the job observably in draft with no ledger entry.
func (s *Service) Submit(ctx context.Context, jobID string, userID int64) (model.VideoJob, error) {
	job, err := s.Get(ctx, jobID, userID)
	if err != nil {
		return model.VideoJob{}, err
	}
	if job.Status != model.JobDraft {
		return model.VideoJob{}, store.ErrConflict
	}

	job.Status = model.JobSubmitted
	job, err = s.store.UpdateVideo(ctx, job, model.JobDraft)
	if err != nil {
		return model.VideoJob{}, err
	}

	remaining, err := s.ledger.Debit(ctx, userID, "video generation "+jobID)
	if err != nil {
		job.Status = model.JobDraft
		if reverted, revertErr := s.store.UpdateVideo(ctx, job, model.JobSubmitted); revertErr == nil {
			job = reverted
		} else {
			s.log.Error("submit_revert_failed", "job_id", jobID, "error", revertErr)
		}
		return model.VideoJob{}, err
	}

	generationID, startErr := s.prov.Start(ctx, provider.StartInput{
		UserID:     userID,
		JobID:      job.ID,
		Script:     job.Script,
		Storyboard: job.Storyboard,
	})
	if startErr != nil {
		// The credit stays spent: the state machine has no failed->draft
		// edge and refunds are outside the ledger's contract.
		job.Status = model.JobFailed
		job.VideoData = &model.ProviderMetadata{
			State:       provider.StateFailed,
			ErrorCode:   "PROVIDER_REJECTED",
			ErrorDetail: startErr.Error(),
		}
		if failed, failErr := s.store.UpdateVideo(ctx, job, model.JobSubmitted); failErr == nil {
			job = failed
		} else {
			s.log.Error("submit_fail_mark_failed", "job_id", jobID, "error", failErr)
		}
		s.publish(job, model.EventJobFailed)
		return job, fmt.Errorf("provider start: %w", startErr)
	}

	job.GenerationID = generationID
	job.VideoData = &model.ProviderMetadata{State: provider.StateGenerating}
	job, err = s.store.UpdateVideo(ctx, job, model.JobSubmitted)
	if err != nil {
		return model.VideoJob{}, err
	}
	s.log.Info("job_submitted",
		"job_id", job.ID,
		"user_id", userID,
		"generation_id", generationID,
		"lives_remaining", remaining,
	)
	s.publish(job, model.EventJobSubmitted)
	return job, nil
}

// UpdateFields carries the mutable job fields; nil means leave unchanged.
type UpdateFields struct {
	Script       *string
	VideoURL     *string
	GenerationID *string
	Status       *model.JobStatus
	Storyboard   *model.Storyboard
	VideoData    *model.ProviderMetadata
}

// Update merges the supplied fields into a non-terminal job. Status changes
// must follow the lifecycle ordering; skipping a stage is a conflict. A new
// script re-derives the storyboard unless one is supplied explicitly.
func (s *Service) Update(ctx context.Context, jobID string, userID int64, fields UpdateFields) (model.VideoJob, error) {
	job, err := s.Get(ctx, jobID, userID)
	if err != nil {
		return model.VideoJob{}, err
	}
	if job.Status.Terminal() {
		return model.VideoJob{}, store.ErrConflict
	}
	prior := job.Status

	if fields.Script != nil {
		if len([]rune(strings.TrimSpace(*fields.Script))) < minScriptChars {
			return model.VideoJob{}, store.ErrInvalidInput
		}
		job.Script = *fields.Script
		if fields.Storyboard == nil {
			job.Storyboard = storyboard.Generate(*fields.Script)
		}
	}
	if fields.Storyboard != nil {
		job.Storyboard = *fields.Storyboard
	}
	if fields.VideoURL != nil {
		job.VideoURL = *fields.VideoURL
	}
	if fields.GenerationID != nil {
		job.GenerationID = *fields.GenerationID
	}
	if fields.VideoData != nil {
		job.VideoData = fields.VideoData
	}
	if fields.Status != nil && *fields.Status != prior {
		if !prior.CanTransition(*fields.Status) {
			return model.VideoJob{}, store.ErrConflict
		}
		job.Status = *fields.Status
	}

	job, err = s.store.UpdateVideo(ctx, job, prior)
	if err != nil {
		return model.VideoJob{}, err
	}
	if job.Status != prior {
		s.publishTransition(job)
	}
	return job, nil
}

// Refresh polls the provider for a submitted job and applies the reported
// completion or failure. Jobs in any other state are returned unchanged.
func (s *Service) Refresh(ctx context.Context, jobID string, userID int64) (model.VideoJob, error) {
	job, err := s.Get(ctx, jobID, userID)
	if err != nil {
		return model.VideoJob{}, err
	}
	if job.Status != model.JobSubmitted || job.GenerationID == "" {
		return job, nil
	}

	result, err := s.prov.Poll(ctx, job.GenerationID)
	if err != nil {
		return model.VideoJob{}, fmt.Errorf("provider poll: %w", err)
	}

	switch result.State {
	case provider.StateCompleted:
		job.Status = model.JobCompleted
		job.VideoURL = result.VideoURL
		job.VideoData = &model.ProviderMetadata{State: result.State, Extra: result.Metadata}
	case provider.StateFailed:
		job.Status = model.JobFailed
		job.VideoData = &model.ProviderMetadata{
			State:       result.State,
			ErrorCode:   result.ErrorCode,
			ErrorDetail: result.ErrorDetail,
			Extra:       result.Metadata,
		}
	default:
		return job, nil
	}

	job, err = s.store.UpdateVideo(ctx, job, model.JobSubmitted)
	if err != nil {
		return model.VideoJob{}, err
	}
	s.publishTransition(job)
	return job, nil
}

func (s *Service) publishTransition(job model.VideoJob) {
	switch job.Status {
	case model.JobSubmitted:
		s.publish(job, model.EventJobSubmitted)
	case model.JobCompleted:
		s.publish(job, model.EventJobCompleted)
	case model.JobFailed:
		s.publish(job, model.EventJobFailed)
	}
}

func (s *Service) publish(job model.VideoJob, eventType model.JobEventType) {
	s.hub.Publish(model.JobEvent{
		EventID: uuid.NewString(),
		JobID:   job.ID,
		UserID:  job.UserID,
		Type:    eventType,
		Status:  job.Status,
		TS:      time.Now().UTC(),
	})
}
