package events

// Resource event actions
const (
	ActionCreated = "CREATED"
	ActionUpdated = "UPDATED"
	ActionDeleted = "DELETED"
	ActionShared  = "SHARED"
	ActionRevoked = "REVOKED"
)

// Group event types
const (
	GroupCreated  = "GROUP_CREATED"
	MemberJoined  = "MEMBER_JOINED"
	MemberLeft    = "MEMBER_LEFT"
	MemberRemoved = "MEMBER_REMOVED"
	InviteRevoked = "INVITE_REVOKED"
)

// Kafka topics
const (
	ResourceChangesTopic = "vault.resource.changes"
	GroupActivityTopic   = "vault.group.activity"
)
