package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelType string

const (
	ChannelDirect ChannelType = "DIRECT"
	ChannelNode   ChannelType = "NODE"
	ChannelGroup  ChannelType = "GROUP"
	ChannelPublic ChannelType = "PUBLIC"
)

// Channel is a chat room. DIRECT channels are keyed by the canonically
// ordered participant pair; NODE and GROUP channels are keyed by their
// link, at most one channel per linked resource.
type Channel struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	Name          string      `gorm:"size:100" json:"name"`
	ChannelType   ChannelType `gorm:"size:10;not null" json:"channelType"`
	DirectUser1ID *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_channels_direct_pair" json:"directUser1Id,omitempty"`
	DirectUser2ID *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_channels_direct_pair" json:"directUser2Id,omitempty"`
	NodeID        *uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"nodeId,omitempty"`
	GroupID       *uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"groupId,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ChannelMembership records a user in a channel plus their read
// watermark. LastReadAt nil means nothing has been read yet.
type ChannelMembership struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ChannelID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_channel_memberships_pair" json:"channelId"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_channel_memberships_pair" json:"userId"`
	JoinedAt   time.Time  `gorm:"autoCreateTime" json:"joinedAt"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
}

func (m *ChannelMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Message struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ChannelID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"channelId"`
	SenderID     uuid.UUID  `gorm:"type:uuid;not null" json:"senderId"`
	Text         string     `gorm:"type:text" json:"text"`
	// AttachmentID points at a Version, pinning the exact snapshot
	// that was shared even if the file gains versions later.
	AttachmentID *uuid.UUID `gorm:"type:uuid" json:"attachmentId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
