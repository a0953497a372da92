package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// dedupTTL is how long a submission key is retained. Long enough to
	// absorb double clicks and browser retries; short enough that a genuine
	// repeat submission the next day is accepted.
	dedupTTL = 10 * time.Minute

	// processingTTL is the lock duration while a submission is in flight.
	processingTTL = 2 * time.Minute

	processingMarker = "processing"
)

// ErrDuplicateSubmission indicates the same submission key is in flight.
var ErrDuplicateSubmission = errors.New("duplicate submission: key already being processed")

// DedupResult stores the recorded outcome of a deduplicated submission.
// Position is set for waitlist submissions only, so a replay can return
// the same envelope as the original response.
type DedupResult struct {
	SubmissionID string `json:"submission_id"`
	StatusCode   int    `json:"status_code"`
	Position     int64  `json:"position,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// DedupService guards form endpoints against duplicate posts (double
// clicks, client retries) using Redis SET NX reservations keyed by the
// client-supplied Idempotency-Key header scoped to the form.
type DedupService struct {
	client *Client
	logger *zap.Logger
}

// NewDedupService creates a new duplicate-submission guard.
func NewDedupService(client *Client, logger *zap.Logger) *DedupService {
	return &DedupService{
		client: client,
		logger: logger,
	}
}

func (s *DedupService) buildKey(form, submissionKey string) string {
	return fmt.Sprintf("dedup:%s:%s", form, submissionKey)
}

// Check retrieves the recorded result for a submission key.
// Returns (nil, nil) if the key is unknown, (result, nil) if recorded,
// or ErrDuplicateSubmission if the key is currently being processed.
func (s *DedupService) Check(ctx context.Context, form, submissionKey string) (*DedupResult, error) {
	key := s.buildKey(form, submissionKey)

	val, err := s.client.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	if val == processingMarker {
		return nil, ErrDuplicateSubmission
	}

	var result DedupResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		s.logger.Error("failed to unmarshal dedup result", zap.Error(err))
		return nil, fmt.Errorf("invalid cached result: %w", err)
	}

	s.logger.Debug("duplicate submission replayed",
		zap.String("form", form),
		zap.String("submission_id", result.SubmissionID),
	)

	return &result, nil
}

// Store records the outcome of a successfully processed submission.
func (s *DedupService) Store(ctx context.Context, form, submissionKey string, result *DedupResult) error {
	key := s.buildKey(form, submissionKey)

	if result.CreatedAt == 0 {
		result.CreatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := s.client.rdb.Set(ctx, key, data, dedupTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Reserve acquires a submission lock using SET NX.
// Returns true if acquired, false if the key already exists.
func (s *DedupService) Reserve(ctx context.Context, form, submissionKey string) (bool, error) {
	key := s.buildKey(form, submissionKey)

	set, err := s.client.rdb.SetNX(ctx, key, processingMarker, processingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}

	return set, nil
}

// CheckOrReserve atomically checks for a recorded result or reserves the key.
// Returns the recorded result if found, nil if reserved successfully.
func (s *DedupService) CheckOrReserve(ctx context.Context, form, submissionKey string) (*DedupResult, error) {
	result, err := s.Check(ctx, form, submissionKey)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	reserved, err := s.Reserve(ctx, form, submissionKey)
	if err != nil {
		return nil, err
	}

	if !reserved {
		return nil, ErrDuplicateSubmission
	}

	return nil, nil
}
