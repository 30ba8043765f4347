package events

import (
	"context"
	"time"

	"github.com/L-Ayim/Vault/internal/models"

	"github.com/google/uuid"
)

// ResourceEvent announces a structural change on a resource. Consumers
// fan it out to subscribers grouped by resource id and by kind.
type ResourceEvent struct {
	Action       string              `json:"action"`
	ResourceKind models.ResourceKind `json:"resourceKind"`
	ResourceID   string              `json:"resourceId"`
	ActorID      string              `json:"actorId,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// GroupEvent announces group membership activity.
type GroupEvent struct {
	EventType    string    `json:"eventType"`
	GroupID      string    `json:"groupId"`
	PerformedBy  string    `json:"performedBy"`
	TargetUserID string    `json:"targetUserId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher is the push-notification collaborator. Delivery is
// best-effort: implementations must not block the mutation that fired
// the event, and callers ignore publish failures beyond logging.
type Publisher interface {
	PublishResourceEvent(ctx context.Context, event *ResourceEvent) error
	PublishGroupEvent(ctx context.Context, event *GroupEvent) error
}

// NewResourceEvent builds the notify payload for a structural change.
func NewResourceEvent(action string, kind models.ResourceKind, resourceID uuid.UUID, actorID uuid.UUID) *ResourceEvent {
	return &ResourceEvent{
		Action:       action,
		ResourceKind: kind,
		ResourceID:   resourceID.String(),
		ActorID:      actorID.String(),
		Timestamp:    time.Now(),
	}
}

func NewGroupEvent(eventType string, groupID uuid.UUID, performedBy uuid.UUID, targetUserID *uuid.UUID) *GroupEvent {
	event := &GroupEvent{
		EventType:   eventType,
		GroupID:     groupID.String(),
		PerformedBy: performedBy.String(),
		Timestamp:   time.Now(),
	}
	if targetUserID != nil {
		event.TargetUserID = targetUserID.String()
	}
	return event
}
