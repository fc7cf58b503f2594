package job

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/server/internal/events"
	"storyreel/server/internal/ledger"
	"storyreel/server/internal/model"
	"storyreel/server/internal/provider"
	"storyreel/server/internal/store"
)

const testScript = "A lone traveler crosses the desert.\n\nShe finds a hidden oasis.\n\nThe journey continues at dawn."

// rejectingAdapter fails every Start call.
type rejectingAdapter struct{}

func (rejectingAdapter) Start(ctx context.Context, in provider.StartInput) (string, error) {
	return "", errors.New("quota exceeded")
}

func (rejectingAdapter) Poll(ctx context.Context, generationID string) (provider.Result, error) {
	return provider.Result{}, errors.New("nothing started")
}

func newTestService(t *testing.T, prov provider.Adapter) (*Service, *store.Store, model.User) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	user, err := st.CreateUser(context.Background(), "jobs@example.com", "Job Runner", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	logger := slog.Default()
	lg := ledger.NewService(st, logger)
	svc := NewService(st, lg, prov, events.NewHub(), logger)
	return svc, st, user
}

func TestCreateRejectsShortScript(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	for _, script := range []string{"", "   \n\t  ", "too short"} {
		if _, err := svc.Create(context.Background(), user.ID, script); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("script %q: err=%v, want ErrInvalidInput", script, err)
		}
	}
}

func TestCreatePersistsDraftWithStoryboard(t *testing.T) {
	svc, st, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != model.JobDraft {
		t.Fatalf("status %q, want draft", job.Status)
	}
	if len(job.Storyboard.Scenes) == 0 {
		t.Fatalf("storyboard not derived")
	}

	loaded, err := st.GetVideo(ctx, job.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if loaded.Script != testScript {
		t.Fatalf("script not persisted")
	}
	if len(loaded.Storyboard.Scenes) != len(job.Storyboard.Scenes) {
		t.Fatalf("storyboard scenes %d, want %d", len(loaded.Storyboard.Scenes), len(job.Storyboard.Scenes))
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, st, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	other, err := st.CreateUser(ctx, "other@example.com", "Other", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, job.ID, other.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("err=%v, want ErrForbidden", err)
	}
}

func TestSubmitSpendsOneLife(t *testing.T) {
	svc, st, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	submitted, err := svc.Submit(ctx, job.ID, user.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != model.JobSubmitted {
		t.Fatalf("status %q, want submitted", submitted.Status)
	}
	if submitted.GenerationID == "" || !strings.HasPrefix(submitted.GenerationID, "gen_") {
		t.Fatalf("generation id %q", submitted.GenerationID)
	}
	if submitted.VideoData == nil || submitted.VideoData.State != provider.StateGenerating {
		t.Fatalf("video data %+v, want generating", submitted.VideoData)
	}

	after, err := st.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if after.LivesRemaining != model.DefaultLives-1 {
		t.Fatalf("lives %d, want %d", after.LivesRemaining, model.DefaultLives-1)
	}
}

func TestSubmitAtZeroLivesLeavesDraft(t *testing.T) {
	svc, st, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	if _, err := st.SetLives(ctx, user.ID, 0, user.ID, "drain"); err != nil {
		t.Fatalf("set lives: %v", err)
	}
	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Submit(ctx, job.ID, user.ID); !errors.Is(err, store.ErrInsufficientLives) {
		t.Fatalf("err=%v, want ErrInsufficientLives", err)
	}

	loaded, err := st.GetVideo(ctx, job.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if loaded.Status != model.JobDraft {
		t.Fatalf("status %q, want draft after failed debit", loaded.Status)
	}
	entries, err := st.LedgerHistory(ctx, user.ID, 50)
	if err != nil {
		t.Fatalf("ledger history: %v", err)
	}
	for _, e := range entries {
		if e.Action == model.ActionUserSpend {
			t.Fatalf("failed submit must not record a spend")
		}
	}
}

func TestSubmitNonDraftConflicts(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Submit(ctx, job.ID, user.ID); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(ctx, job.ID, user.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second submit: err=%v, want ErrConflict", err)
	}
}

func TestSubmitProviderRejectionFailsJobKeepsSpend(t *testing.T) {
	svc, st, user := newTestService(t, rejectingAdapter{})
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	failed, err := svc.Submit(ctx, job.ID, user.ID)
	if err == nil {
		t.Fatalf("submit should surface the provider rejection")
	}
	if failed.Status != model.JobFailed {
		t.Fatalf("status %q, want failed", failed.Status)
	}
	if failed.VideoData == nil || failed.VideoData.ErrorCode != "PROVIDER_REJECTED" {
		t.Fatalf("video data %+v, want PROVIDER_REJECTED", failed.VideoData)
	}

	after, err := st.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if after.LivesRemaining != model.DefaultLives-1 {
		t.Fatalf("lives %d, want %d (no refund on provider failure)", after.LivesRemaining, model.DefaultLives-1)
	}
}

func TestUpdateRewritesStoryboardWithScript(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newScript := "One clear sentence for the rewrite, kept deliberately simple and short."
	updated, err := svc.Update(ctx, job.ID, user.ID, UpdateFields{Script: &newScript})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Script != newScript {
		t.Fatalf("script not replaced")
	}
	if len(updated.Storyboard.Scenes) == 0 {
		t.Fatalf("storyboard not re-derived")
	}
	if updated.Storyboard.Title == job.Storyboard.Title {
		t.Fatalf("storyboard title %q unchanged after new script", updated.Storyboard.Title)
	}
}

func TestUpdateRejectsSkippedTransition(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	completed := model.JobCompleted
	if _, err := svc.Update(ctx, job.ID, user.ID, UpdateFields{Status: &completed}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("draft->completed: err=%v, want ErrConflict", err)
	}
}

func TestUpdateTerminalJobConflicts(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Submit(ctx, job.ID, user.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Refresh(ctx, job.ID, user.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	script := "A different script long enough to pass validation either way."
	if _, err := svc.Update(ctx, job.ID, user.ID, UpdateFields{Script: &script}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("update terminal: err=%v, want ErrConflict", err)
	}
}

func TestRefreshCompletesSubmittedJob(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Draft jobs pass through untouched.
	same, err := svc.Refresh(ctx, job.ID, user.ID)
	if err != nil {
		t.Fatalf("refresh draft: %v", err)
	}
	if same.Status != model.JobDraft {
		t.Fatalf("refresh changed a draft to %q", same.Status)
	}

	if _, err := svc.Submit(ctx, job.ID, user.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := svc.Refresh(ctx, job.ID, user.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if done.Status != model.JobCompleted {
		t.Fatalf("status %q, want completed", done.Status)
	}
	if done.VideoURL == "" || !strings.HasSuffix(done.VideoURL, ".mp4") {
		t.Fatalf("video url %q", done.VideoURL)
	}
	if done.VideoData == nil || done.VideoData.State != provider.StateCompleted {
		t.Fatalf("video data %+v", done.VideoData)
	}
}

func TestSubmitPublishesEvents(t *testing.T) {
	svc, _, user := newTestService(t, provider.NewMockAdapter(0))
	ctx := context.Background()

	job, err := svc.Create(ctx, user.ID, testScript)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ch, cancel := svc.hub.Subscribe(job.ID, 8)
	defer cancel()

	if _, err := svc.Submit(ctx, job.ID, user.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case evt := <-ch:
		if evt.Type != model.EventJobSubmitted || evt.Status != model.JobSubmitted {
			t.Fatalf("event %+v, want job_submitted", evt)
		}
	default:
		t.Fatalf("no event published on submit")
	}
}
