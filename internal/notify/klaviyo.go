package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Marketing syncs a subscriber profile to the marketing-automation platform.
type Marketing interface {
	SyncProfile(ctx context.Context, profile Profile) error
}

// Profile is the subset of subscriber data pushed to marketing.
type Profile struct {
	Email     string
	FirstName string
	Source    string
}

// KlaviyoClient talks to the Klaviyo profile API. Profiles are created (or
// updated on conflict) and subscribed to the configured list.
type KlaviyoClient struct {
	apiKey  string
	listID  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// KlaviyoConfig holds Klaviyo credentials and the target list.
type KlaviyoConfig struct {
	APIKey string
	ListID string
}

// NewKlaviyoClient creates a Klaviyo API client.
func NewKlaviyoClient(cfg KlaviyoConfig, logger *zap.Logger) *KlaviyoClient {
	return &KlaviyoClient{
		apiKey:  cfg.APIKey,
		listID:  cfg.ListID,
		baseURL: "https://a.klaviyo.com/api",
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// SyncProfile upserts the profile and subscribes it to the list.
func (k *KlaviyoClient) SyncProfile(ctx context.Context, profile Profile) error {
	if k.apiKey == "" {
		return fmt.Errorf("klaviyo API key not configured")
	}
	if profile.Email == "" {
		return fmt.Errorf("profile email is empty")
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type": "profile-subscription-bulk-create-job",
			"attributes": map[string]interface{}{
				"custom_source": profile.Source,
				"profiles": map[string]interface{}{
					"data": []map[string]interface{}{
						{
							"type": "profile",
							"attributes": map[string]interface{}{
								"email":      profile.Email,
								"first_name": profile.FirstName,
							},
						},
					},
				},
			},
			"relationships": map[string]interface{}{
				"list": map[string]interface{}{
					"data": map[string]string{"type": "list", "id": k.listID},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal klaviyo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		k.baseURL+"/profile-subscription-bulk-create-jobs/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build klaviyo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Klaviyo-API-Key "+k.apiKey)
	req.Header.Set("revision", "2024-10-15")

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("klaviyo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("klaviyo returned %d: %s", resp.StatusCode, string(respBody))
	}

	k.logger.Info("profile synced to klaviyo",
		zap.String("email", profile.Email),
		zap.String("list_id", k.listID),
	)

	return nil
}
