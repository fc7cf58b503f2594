package model

import "time"

type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	PasswordHash   string    `json:"-"`
	Status         string    `json:"status"`
	LivesRemaining int       `json:"lives_remaining"`
	CreatedAt      time.Time `json:"created_at"`
}

// DefaultLives is the credit balance granted to every new account.
const DefaultLives = 3

type RefreshToken struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// LedgerAction classifies a lives balance change.
type LedgerAction string

const (
	ActionUserSpend  LedgerAction = "user_spend"
	ActionAdminSet   LedgerAction = "admin_set"
	ActionAdminReset LedgerAction = "admin_reset"
)

// LedgerEntry is an immutable audit record. Entries are append-only; the
// current balance on User always equals NewLives of the newest entry.
type LedgerEntry struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	PreviousLives int          `json:"previous_lives"`
	NewLives      int          `json:"new_lives"`
	Action        LedgerAction `json:"action_type"`
	Reason        string       `json:"reason"`
	AdminUserID   *int64       `json:"admin_user_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Scene struct {
	SceneNumber int    `json:"sceneNumber"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	VisualStyle string `json:"visualStyle"`
}

type Storyboard struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Scenes  []Scene `json:"scenes"`
}

type JobStatus string

const (
	JobDraft     JobStatus = "draft"
	JobSubmitted JobStatus = "submitted"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ProviderMetadata is what the generation provider reported back. The core
// only stores it; it never interprets provider internals.
type ProviderMetadata struct {
	Provider    string         `json:"provider,omitempty"`
	State       string         `json:"state,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

type VideoJob struct {
	ID           string            `json:"id"`
	UserID       int64             `json:"user_id"`
	Script       string            `json:"script"`
	VideoURL     string            `json:"video_url,omitempty"`
	GenerationID string            `json:"generation_id,omitempty"`
	Status       JobStatus         `json:"status"`
	Storyboard   Storyboard        `json:"storyboard"`
	VideoData    *ProviderMetadata `json:"video_data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether a job may move from s to next. The lifecycle
// is draft -> submitted -> completed|failed; no stage may be skipped.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobDraft:
		return next == JobSubmitted
	case JobSubmitted:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

type JobEventType string

const (
	EventJobStatus    JobEventType = "job_status"
	EventJobCreated   JobEventType = "job_created"
	EventJobSubmitted JobEventType = "job_submitted"
	EventJobCompleted JobEventType = "job_completed"
	EventJobFailed    JobEventType = "job_failed"
)

// JobEvent is a status snapshot published when a job changes state.
type JobEvent struct {
	EventID string       `json:"event_id"`
	JobID   string       `json:"job_id"`
	UserID  int64        `json:"user_id"`
	Type    JobEventType `json:"type"`
	Status  JobStatus    `json:"status"`
	TS      time.Time    `json:"ts"`
}
