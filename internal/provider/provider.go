// Package provider abstracts the third-party video-generation service. The
// core only stores what the provider returns; it does not implement the
// provider's protocol.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storyreel/server/internal/model"

	"github.com/google/uuid"
)

// States reported by Poll.
const (
	StateGenerating = "generating"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

type StartInput struct {
	UserID     int64
	JobID      string
	Script     string
	Storyboard model.Storyboard
	TraceID    string
}

type Result struct {
	State       string
	VideoURL    string
	Metadata    map[string]any
	ErrorCode   string
	ErrorDetail string
}

type Adapter interface {
	// Start submits a generation request and returns the provider's
	// correlation id.
	Start(ctx context.Context, in StartInput) (string, error)
	// Poll reports the current state of a previously started generation.
	Poll(ctx context.Context, generationID string) (Result, error)
}

// MockAdapter simulates a provider that finishes every generation after a
// fixed delay. Zero delay completes on the first poll, which keeps tests
// deterministic.
type MockAdapter struct {
	delay time.Duration

	mu      sync.Mutex
	started map[string]time.Time
}

func NewMockAdapter(delay time.Duration) *MockAdapter {
	return &MockAdapter{
		delay:   delay,
		started: map[string]time.Time{},
	}
}

func (m *MockAdapter) Start(ctx context.Context, in StartInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	generationID := "gen_" + uuid.NewString()
	m.mu.Lock()
	m.started[generationID] = time.Now()
	m.mu.Unlock()
	return generationID, nil
}

func (m *MockAdapter) Poll(ctx context.Context, generationID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	startedAt, ok := m.started[generationID]
	m.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("unknown generation id %q", generationID)
	}
	if time.Since(startedAt) < m.delay {
		return Result{State: StateGenerating, Metadata: map[string]any{"provider": "mock"}}, nil
	}
	return Result{
		State:    StateCompleted,
		VideoURL: fmt.Sprintf("https://videos.example.com/%s.mp4", generationID),
		Metadata: map[string]any{"provider": "mock", "codec": "h264"},
	}, nil
}
