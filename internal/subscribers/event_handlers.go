// Package subscribers ingests lifecycle events from the external identity
// service that owns consultants. The core never creates a consultant on its
// own initiative (see models.Consultant); these handlers keep the local
// projection in sync so the Booking Engine can resolve a public slug to an
// internal consultantId without a cross-service call on the hot path.
package subscribers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
)

// NatsEventHandlers holds dependencies for handling inbound NATS events.
type NatsEventHandlers struct {
	Store  *store.Store
	Logger logger.Logger
}

func NewNatsEventHandlers(s *store.Store, log logger.Logger) *NatsEventHandlers {
	return &NatsEventHandlers{Store: s, Logger: logger.ComponentLogger(log, "subscribers")}
}

// ConsultantLifecyclePayload matches consultant.created and
// consultant.updated events.
type ConsultantLifecyclePayload struct {
	ConsultantID string `json:"consultantId"`
	Slug         string `json:"slug"`
	IsActive     *bool  `json:"isActive"`
}

// HandleConsultantLifecycle upserts the local consultant projection.
func (h *NatsEventHandlers) HandleConsultantLifecycle(data []byte) error {
	var payload ConsultantLifecyclePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.Logger.Error("failed to unmarshal consultant lifecycle payload", "error", err)
		return fmt.Errorf("unmarshal consultant lifecycle payload: %w", err)
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	err := h.Store.UpsertConsultant(context.Background(), &models.Consultant{
		ID:       payload.ConsultantID,
		Slug:     payload.Slug,
		IsActive: isActive,
	})
	if err != nil {
		h.Logger.Error("failed to upsert consultant", "error", err, "consultantId", payload.ConsultantID)
		return err
	}

	h.Logger.Info("synced consultant", "consultantId", payload.ConsultantID, "slug", payload.Slug)
	return nil
}
