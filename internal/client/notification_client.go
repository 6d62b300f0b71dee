// Package client holds the core's thin HTTP collaborators: Notifier and
// (NoopMeetingProvisioner in meeting_provisioner.go) a stub point for meeting
// provisioning. Both are fire-and-forget from the Booking Engine's
// perspective — failures are logged, never propagated (SPEC_FULL.md §6).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/naksha/availability-core/internal/config"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/pkg/logger"
)

// Notifier is the external collaborator the Booking Engine calls after a
// successful commit. It must never block or fail the caller's transaction.
type Notifier interface {
	SessionBooked(ctx context.Context, session *models.Session, client *models.Client, consultantID string)
}

// NotificationServiceClient implements Notifier over HTTP against an
// external notification service.
type NotificationServiceClient struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger
}

func NewNotificationServiceClient(cfg *config.Config, log logger.Logger) *NotificationServiceClient {
	return &NotificationServiceClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    cfg.NotificationServiceURL,
		logger:     logger.ComponentLogger(log, "notification_client"),
	}
}

// SendNotificationRequest is the payload for an immediate notification.
type SendNotificationRequest struct {
	Type           string                 `json:"type"`
	RecipientEmail string                 `json:"recipientEmail"`
	TemplateData   map[string]interface{} `json:"templateData"`
}

// NotificationResponse is the expected response shape from the notification
// service.
type NotificationResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	MessageID *string `json:"messageId,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// SessionBooked fires the "session_booked" notification. It never returns an
// error to the caller: a failure here must not roll back a committed
// booking.
func (c *NotificationServiceClient) SessionBooked(ctx context.Context, session *models.Session, cl *models.Client, consultantID string) {
	if c.baseURL == "" {
		c.logger.Debug("notification service not configured, skipping session-booked notice", "sessionId", session.ID)
		return
	}

	req := SendNotificationRequest{
		Type:           "session_booked",
		RecipientEmail: cl.Email,
		TemplateData: map[string]interface{}{
			"sessionId":     session.ID,
			"consultantId":  consultantID,
			"scheduledDate": session.ScheduledDate.Format("2006-01-02"),
			"scheduledTime": session.ScheduledTime,
			"clientName":    cl.Name,
		},
	}

	if _, err := c.send(ctx, "/api/v1/notifications/send", req); err != nil {
		c.logger.Warn("session-booked notification failed", "error", err, "sessionId", session.ID)
	}
}

func (c *NotificationServiceClient) send(ctx context.Context, path string, req SendNotificationRequest) (*NotificationResponse, error) {
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal notification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("build notification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("notification service request failed: %w", err)
	}
	defer resp.Body.Close()

	var notificationResp NotificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&notificationResp); err != nil {
		return nil, fmt.Errorf("decode notification response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		return &notificationResp, fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, notificationResp.Message)
	}
	return &notificationResp, nil
}
