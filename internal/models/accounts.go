package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile carries the extended user info. Exactly one per user, created
// in the same transaction as the user row.
type Profile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	AvatarFileID *uuid.UUID `gorm:"type:uuid" json:"avatarFileId,omitempty"`
	AvatarURL    string     `gorm:"size:500" json:"avatarUrl"`
	Bio          string     `gorm:"type:text" json:"bio"`
	Preferences  string     `gorm:"type:text" json:"preferences"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CodeType distinguishes single-use from multi-use friend invites.
type CodeType string

const (
	InviteSingle CodeType = "SINGLE"
	InviteMulti  CodeType = "MULTI"
)

// Invite is a friend-invite code. Activity is derived, never stored.
type Invite struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Code        string     `gorm:"size:32;not null;uniqueIndex" json:"code"`
	CreatedByID uuid.UUID  `gorm:"type:uuid;not null" json:"createdById"`
	CodeType    CodeType   `gorm:"size:6;not null;default:SINGLE" json:"codeType"`
	MaxUses     *int       `json:"maxUses,omitempty"`
	UsesCount   int        `gorm:"not null;default:0" json:"usesCount"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	IsRevoked   bool       `gorm:"not null;default:false" json:"isRevoked"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the invite can still be redeemed at the
// given instant: not revoked, not expired, and usage not exhausted.
func (i *Invite) IsActive(now time.Time) bool {
	if i.IsRevoked {
		return false
	}
	if i.ExpiresAt != nil && !i.ExpiresAt.After(now) {
		return false
	}
	if i.CodeType == InviteSingle && i.UsesCount >= 1 {
		return false
	}
	if i.CodeType == InviteMulti && i.MaxUses != nil && i.UsesCount >= *i.MaxUses {
		return false
	}
	return true
}

// Friendship is one direction of a mutual friendship. The pair of rows
// (A→B, B→A) is always created and destroyed together.
type Friendship struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friendships_user_friend" json:"userId"`
	FriendID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_friendships_user_friend" json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Group is a sharing group joined through a rotating invite code.
type Group struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name            string    `gorm:"size:100;not null" json:"name"`
	OwnerID         uuid.UUID `gorm:"type:uuid;not null" json:"ownerId"`
	InviteCode      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"inviteCode"`
	SingleUse       bool      `gorm:"not null;default:false" json:"singleUse"`
	Revoked         bool      `gorm:"not null;default:false" json:"revoked"`
	MaxInviteUses   int       `gorm:"not null;default:100" json:"maxInviteUses"`
	InviteUsesCount int       `gorm:"not null;default:0" json:"inviteUsesCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.InviteCode == uuid.Nil {
		g.InviteCode = uuid.New()
	}
	return nil
}

// IsActive reports whether the group's invite code is currently usable.
func (g *Group) IsActive() bool {
	return !g.Revoked && g.InviteUsesCount < g.MaxInviteUses
}

// RegisterInviteUse increments the usage counter and, when the limit is
// reached, rotates the code and resets the counter. The caller persists
// the change inside the same transaction as the triggering join.
func (g *Group) RegisterInviteUse() {
	g.InviteUsesCount++
	if g.InviteUsesCount >= g.MaxInviteUses {
		g.InviteCode = uuid.New()
		g.InviteUsesCount = 0
	}
}

type GroupMember struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_user_group" json:"userId"`
	GroupID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_user_group" json:"groupId"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
