package client

import "context"

// MeetingDetails is returned by a MeetingProvisioner on success.
type MeetingDetails struct {
	Link     string
	ID       string
	Password string
}

// MeetingProvisioner is the optional external collaborator from
// SPEC_FULL.md §6. When unavailable, a session is created without a meeting
// link and may be enriched later.
type MeetingProvisioner interface {
	Create(ctx context.Context, sessionID string) (*MeetingDetails, error)
}

// NoopMeetingProvisioner is used when no real provisioner is configured; it
// always reports unavailability without erroring the booking path.
type NoopMeetingProvisioner struct{}

func (NoopMeetingProvisioner) Create(ctx context.Context, sessionID string) (*MeetingDetails, error) {
	return nil, nil
}
