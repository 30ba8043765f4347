package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileReq struct {
	AvatarFileID *uuid.UUID `json:"avatarFileId"`
	AvatarURL    *string    `json:"avatarUrl"`
	Bio          *string    `json:"bio"`
	Preferences  *string    `json:"preferences"`
}

type CreateInviteReq struct {
	CodeType  string     `json:"codeType" binding:"required"`
	MaxUses   *int       `json:"maxUses"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type RedeemInviteReq struct {
	Code string `json:"code" binding:"required"`
}

type CreateGroupReq struct {
	Name          string `json:"name" binding:"required"`
	SingleUse     bool   `json:"singleUse"`
	MaxInviteUses int    `json:"maxInviteUses"`
}

type JoinGroupReq struct {
	InviteCode uuid.UUID `json:"inviteCode" binding:"required"`
}

type ShareReq struct {
	UserID     *uuid.UUID `json:"userId"`
	GroupID    *uuid.UUID `json:"groupId"`
	Public     bool       `json:"public"`
	Permission string     `json:"permission" binding:"required"`
}

type UpdateShareReq struct {
	Permission string `json:"permission" binding:"required"`
}

type RenameFileReq struct {
	Name string `json:"name" binding:"required"`
}

type KeepFileReq struct {
	AllVersions bool `json:"allVersions"`
}

type CreateNodeReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type RenameNodeReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type AddFileToNodeReq struct {
	FileID uuid.UUID `json:"fileId" binding:"required"`
	Note   string    `json:"note"`
}

type MoveFileReq struct {
	FileID     uuid.UUID `json:"fileId" binding:"required"`
	ToNodeID   uuid.UUID `json:"toNodeId" binding:"required"`
	FromNodeID uuid.UUID `json:"fromNodeId" binding:"required"`
}

type CreateEdgeReq struct {
	NodeAID uuid.UUID `json:"nodeAId" binding:"required"`
	NodeBID uuid.UUID `json:"nodeBId" binding:"required"`
	Label   string    `json:"label"`
}

type CreateChannelReq struct {
	Name string `json:"name" binding:"required"`
}

type SendMessageReq struct {
	Text string `json:"text"`
}
