package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Node is a container of files, owned by a user.
type Node struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null" json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (n *Node) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NodeFile places a file in a node, with a per-placement note.
type NodeFile struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	NodeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_node_files_node_file" json:"nodeId"`
	FileID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_node_files_node_file" json:"fileId"`
	Note    string    `gorm:"type:text" json:"note"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"addedAt"`
}

func (nf *NodeFile) BeforeCreate(tx *gorm.DB) error {
	if nf.ID == uuid.Nil {
		nf.ID = uuid.New()
	}
	return nil
}

// Edge is an undirected connection between two nodes. Endpoints are
// stored in canonical order (smaller id first) so a reversed pair maps
// to the same row.
type Edge struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	NodeAID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_edges_a_b" json:"nodeAId"`
	NodeBID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_edges_a_b" json:"nodeBId"`
	Label     string    `gorm:"size:100" json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *Edge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NodeShare grants one target access to one node. Same target rules as
// FileShare.
type NodeShare struct {
	ID                uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	NodeID            uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_node_shares_node_user;uniqueIndex:idx_node_shares_node_group" json:"nodeId"`
	SharedWithUserID  *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_node_shares_node_user" json:"sharedWithUserId,omitempty"`
	SharedWithGroupID *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_node_shares_node_group" json:"sharedWithGroupId,omitempty"`
	IsPublic          bool        `gorm:"not null;default:false" json:"isPublic"`
	Permission        AccessLevel `gorm:"size:5;not null;default:read" json:"permission"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (s *NodeShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
