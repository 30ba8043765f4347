package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/L-Ayim/Vault/internal/access"
	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/models"
	rediscache "github.com/L-Ayim/Vault/internal/redis"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NodeService struct {
	db        *gorm.DB
	evaluator *access.Evaluator
	publisher events.Publisher
	cache     *rediscache.Service
}

func NewNodeService(db *gorm.DB, publisher events.Publisher, cache *rediscache.Service) *NodeService {
	return &NodeService{
		db:        db,
		evaluator: access.NewEvaluator(db),
		publisher: publisher,
		cache:     cache,
	}
}

func (s *NodeService) publish(ctx context.Context, action string, kind models.ResourceKind, resourceID, actorID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResourceEvent(ctx, events.NewResourceEvent(action, kind, resourceID, actorID)); err != nil {
		logger.Log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to publish resource event")
	}
}

// orderedPair returns the two ids in canonical order, smaller first.
func orderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

func (s *NodeService) getNode(ctx context.Context, nodeID uuid.UUID) (*models.Node, error) {
	if cached, err := s.cache.GetNodeMetadata(ctx, nodeID); err != nil {
		logger.Log.Warn().Err(err).Msg("Node metadata cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	var node models.Node
	if err := s.db.WithContext(ctx).First(&node, "id = ?", nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: node", ErrNotFound)
		}
		return nil, err
	}

	if err := s.cache.SetNodeMetadata(ctx, &node); err != nil {
		logger.Log.Warn().Err(err).Msg("Node metadata cache write failed")
	}
	return &node, nil
}

// requireNode resolves a node the principal can access at the
// requested level; inaccessible nodes report NotFound.
func (s *NodeService) requireNode(ctx context.Context, principal *uuid.UUID, nodeID uuid.UUID, requested models.AccessLevel) (*models.Node, error) {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	ok, err := s.evaluator.CanNode(ctx, principal, node, requested)
	if err != nil {
		return nil, err
	}
	if ok {
		return node, nil
	}
	readable, err := s.evaluator.CanNode(ctx, principal, node, models.Read)
	if err != nil {
		return nil, err
	}
	if readable {
		return nil, fmt.Errorf("%w: node", ErrPermissionDenied)
	}
	return nil, fmt.Errorf("%w: node", ErrNotFound)
}

func (s *NodeService) requireOwnedNode(ctx context.Context, ownerID, nodeID uuid.UUID) (*models.Node, error) {
	node, err := s.requireNode(ctx, &ownerID, nodeID, models.Read)
	if err != nil {
		return nil, err
	}
	if node.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: node owner required", ErrPermissionDenied)
	}
	return node, nil
}

func (s *NodeService) CreateNode(ctx context.Context, ownerID uuid.UUID, name, description string) (*models.Node, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: node name is required", ErrInvalidArgument)
	}
	node := &models.Node{Name: name, Description: description, OwnerID: ownerID}
	if err := s.db.WithContext(ctx).Create(node).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionCreated, models.KindNode, node.ID, ownerID)
	return node, nil
}

// RenameNode patches name and/or description. Owner only.
func (s *NodeService) RenameNode(ctx context.Context, ownerID, nodeID uuid.UUID, name, description *string) (*models.Node, error) {
	node, err := s.requireOwnedNode(ctx, ownerID, nodeID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if *name == "" {
			return nil, fmt.Errorf("%w: node name is required", ErrInvalidArgument)
		}
		node.Name = *name
	}
	if description != nil {
		node.Description = *description
	}
	if err := s.db.WithContext(ctx).Save(node).Error; err != nil {
		return nil, err
	}
	if err := s.cache.SetNodeMetadata(ctx, node); err != nil {
		logger.Log.Warn().Err(err).Msg("Node metadata cache write failed")
	}
	s.publish(ctx, events.ActionUpdated, models.KindNode, node.ID, ownerID)
	return node, nil
}

// DeleteNode removes a node and everything attached to it: file
// placements, edges at either endpoint, grants, and the node-linked
// channel with its memberships and messages. Owner only.
func (s *NodeService) DeleteNode(ctx context.Context, ownerID, nodeID uuid.UUID) error {
	node, err := s.requireOwnedNode(ctx, ownerID, nodeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("node_id = ?", node.ID).Delete(&models.NodeFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_a_id = ? OR node_b_id = ?", node.ID, node.ID).Delete(&models.Edge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_id = ?", node.ID).Delete(&models.NodeShare{}).Error; err != nil {
			return err
		}

		var channel models.Channel
		err := tx.First(&channel, "node_id = ?", node.ID).Error
		switch {
		case err == nil:
			if err := tx.Where("channel_id = ?", channel.ID).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("channel_id = ?", channel.ID).Delete(&models.ChannelMembership{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&channel).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return tx.Delete(node).Error
	})
	if err != nil {
		return err
	}

	if err := s.cache.InvalidateNodeMetadata(ctx, node.ID); err != nil {
		logger.Log.Warn().Err(err).Msg("Node metadata cache invalidation failed")
	}
	s.publish(ctx, events.ActionDeleted, models.KindNode, node.ID, ownerID)
	return nil
}

// GetNode returns a node to any principal with read access.
func (s *NodeService) GetNode(ctx context.Context, principal *uuid.UUID, nodeID uuid.UUID) (*models.Node, error) {
	return s.requireNode(ctx, principal, nodeID, models.Read)
}

// ListMyNodes returns the nodes the caller owns or can read.
func (s *NodeService) ListMyNodes(ctx context.Context, userID uuid.UUID, limit, offset int, nameContains string) ([]models.Node, error) {
	q := s.evaluator.ScopeNodes(s.db.WithContext(ctx).Model(&models.Node{}), &userID, models.Read)
	if nameContains != "" {
		q = q.Where("name LIKE ?", "%"+nameContains+"%")
	}
	var nodes []models.Node
	if err := q.Limit(limit).Offset(offset).Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListPublicNodes returns publicly readable nodes.
func (s *NodeService) ListPublicNodes(ctx context.Context, limit, offset int) ([]models.Node, error) {
	q := s.evaluator.ScopeNodes(s.db.WithContext(ctx).Model(&models.Node{}), nil, models.Read)
	var nodes []models.Node
	if err := q.Limit(limit).Offset(offset).Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListNodeFiles returns the file placements of a readable node.
func (s *NodeService) ListNodeFiles(ctx context.Context, principal *uuid.UUID, nodeID uuid.UUID, limit, offset int) ([]models.NodeFile, error) {
	if _, err := s.requireNode(ctx, principal, nodeID, models.Read); err != nil {
		return nil, err
	}
	var nodeFiles []models.NodeFile
	err := s.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("added_at ASC").
		Limit(limit).Offset(offset).
		Find(&nodeFiles).Error
	if err != nil {
		return nil, err
	}
	return nodeFiles, nil
}

// ListNodeEdges returns the edges touching a readable node.
func (s *NodeService) ListNodeEdges(ctx context.Context, principal *uuid.UUID, nodeID uuid.UUID, limit, offset int) ([]models.Edge, error) {
	if _, err := s.requireNode(ctx, principal, nodeID, models.Read); err != nil {
		return nil, err
	}
	var edges []models.Edge
	err := s.db.WithContext(ctx).
		Where("node_a_id = ? OR node_b_id = ?", nodeID, nodeID).
		Limit(limit).Offset(offset).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// AddFileToNode places a file in a node, upserting the note. Requires
// ownership of the node, not the file.
func (s *NodeService) AddFileToNode(ctx context.Context, userID, nodeID, fileID uuid.UUID, note string) (*models.NodeFile, error) {
	node, err := s.requireOwnedNode(ctx, userID, nodeID)
	if err != nil {
		return nil, err
	}
	var file models.File
	if err := s.db.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file", ErrNotFound)
		}
		return nil, err
	}

	var nf models.NodeFile
	err = s.db.WithContext(ctx).Where("node_id = ? AND file_id = ?", node.ID, file.ID).First(&nf).Error
	switch {
	case err == nil:
		nf.Note = note
		if err := s.db.WithContext(ctx).Save(&nf).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		nf = models.NodeFile{NodeID: node.ID, FileID: file.ID, Note: note}
		if err := s.db.WithContext(ctx).Create(&nf).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.publish(ctx, events.ActionCreated, models.KindNodeFile, nf.ID, userID)
	return &nf, nil
}

// RemoveFileFromNode removes a placement. Node owner only.
func (s *NodeService) RemoveFileFromNode(ctx context.Context, userID, nodeID, fileID uuid.UUID) error {
	if _, err := s.requireOwnedNode(ctx, userID, nodeID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("node_id = ? AND file_id = ?", nodeID, fileID).
		Delete(&models.NodeFile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: node file", ErrNotFound)
	}
	s.publish(ctx, events.ActionDeleted, models.KindNodeFile, nodeID, userID)
	return nil
}

// MoveFileBetweenNodes re-homes a placement. Only ownership of the
// SOURCE node is required: pushing a file into a node you do not own is
// allowed on purpose so collaborators can hand files over. If the
// destination already holds the file the placements merge.
func (s *NodeService) MoveFileBetweenNodes(ctx context.Context, userID, fromNodeID, toNodeID, fileID uuid.UUID) error {
	if _, err := s.requireOwnedNode(ctx, userID, fromNodeID); err != nil {
		return err
	}
	if _, err := s.getNode(ctx, toNodeID); err != nil {
		return err
	}

	var nf models.NodeFile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&nf, "node_id = ? AND file_id = ?", fromNodeID, fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: node file", ErrNotFound)
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.NodeFile{}).
			Where("node_id = ? AND file_id = ?", toNodeID, fileID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return tx.Delete(&nf).Error
		}
		nf.NodeID = toNodeID
		return tx.Save(&nf).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.ActionUpdated, models.KindNodeFile, nf.ID, userID)
	return nil
}

// CreateEdge connects two nodes the caller owns. Endpoints are stored
// canonically and creation is idempotent: re-creating an existing edge
// (in either direction) returns the existing row.
func (s *NodeService) CreateEdge(ctx context.Context, userID, nodeAID, nodeBID uuid.UUID, label string) (*models.Edge, error) {
	if nodeAID == nodeBID {
		return nil, fmt.Errorf("%w: edge endpoints must differ", ErrInvalidArgument)
	}
	if _, err := s.requireOwnedNode(ctx, userID, nodeAID); err != nil {
		return nil, err
	}
	if _, err := s.requireOwnedNode(ctx, userID, nodeBID); err != nil {
		return nil, err
	}

	a, b := orderedPair(nodeAID, nodeBID)
	edge := models.Edge{NodeAID: a, NodeBID: b, Label: label}
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("node_a_id = ? AND node_b_id = ?", a, b).First(&edge).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(&edge).Error
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, events.ActionCreated, models.KindEdge, edge.ID, userID)
	}
	return &edge, nil
}

// DeleteEdge removes an edge. Requires ownership of both endpoints.
func (s *NodeService) DeleteEdge(ctx context.Context, userID, edgeID uuid.UUID) error {
	var edge models.Edge
	if err := s.db.WithContext(ctx).First(&edge, "id = ?", edgeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: edge", ErrNotFound)
		}
		return err
	}
	var owned int64
	err := s.db.WithContext(ctx).Model(&models.Node{}).
		Where("id IN ? AND owner_id = ?", []uuid.UUID{edge.NodeAID, edge.NodeBID}, userID).
		Count(&owned).Error
	if err != nil {
		return err
	}
	if owned != 2 {
		return fmt.Errorf("%w: both endpoints must be owned", ErrPermissionDenied)
	}

	if err := s.db.WithContext(ctx).Delete(&edge).Error; err != nil {
		return err
	}
	s.publish(ctx, events.ActionDeleted, models.KindEdge, edge.ID, userID)
	return nil
}

func (s *NodeService) upsertNodeShare(ctx context.Context, match *models.NodeShare, permission models.AccessLevel) (*models.NodeShare, error) {
	q := s.db.WithContext(ctx).Where("node_id = ?", match.NodeID)
	switch {
	case match.IsPublic:
		q = q.Where("is_public = ?", true)
	case match.SharedWithUserID != nil:
		q = q.Where("shared_with_user_id = ?", *match.SharedWithUserID)
	default:
		q = q.Where("shared_with_group_id = ?", *match.SharedWithGroupID)
	}

	var existing models.NodeShare
	err := q.First(&existing).Error
	switch {
	case err == nil:
		existing.Permission = permission
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		match.Permission = permission
		if err := s.db.WithContext(ctx).Create(match).Error; err != nil {
			return nil, err
		}
		return match, nil
	default:
		return nil, err
	}
}

// ShareNodeWithUser grants a user access to a node. Owner only.
func (s *NodeService) ShareNodeWithUser(ctx context.Context, ownerID, nodeID, targetUserID uuid.UUID, permission models.AccessLevel) (*models.NodeShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	node, err := s.requireOwnedNode(ctx, ownerID, nodeID)
	if err != nil {
		return nil, err
	}
	var target models.User
	if err := s.db.WithContext(ctx).First(&target, "id = ?", targetUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}

	share, err := s.upsertNodeShare(ctx, &models.NodeShare{NodeID: node.ID, SharedWithUserID: &target.ID}, permission)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionShared, models.KindNodeShare, share.ID, ownerID)
	return share, nil
}

// ShareNodeWithGroup grants a group access to a node. Owner only.
func (s *NodeService) ShareNodeWithGroup(ctx context.Context, ownerID, nodeID, groupID uuid.UUID, permission models.AccessLevel) (*models.NodeShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	node, err := s.requireOwnedNode(ctx, ownerID, nodeID)
	if err != nil {
		return nil, err
	}
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group", ErrNotFound)
		}
		return nil, err
	}

	share, err := s.upsertNodeShare(ctx, &models.NodeShare{NodeID: node.ID, SharedWithGroupID: &group.ID}, permission)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionShared, models.KindNodeShare, share.ID, ownerID)
	return share, nil
}

// MakeNodePublic grants everyone access to a node. Owner only.
func (s *NodeService) MakeNodePublic(ctx context.Context, ownerID, nodeID uuid.UUID, permission models.AccessLevel) (*models.NodeShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	node, err := s.requireOwnedNode(ctx, ownerID, nodeID)
	if err != nil {
		return nil, err
	}

	share, err := s.upsertNodeShare(ctx, &models.NodeShare{NodeID: node.ID, IsPublic: true}, permission)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionShared, models.KindNodeShare, share.ID, ownerID)
	return share, nil
}

// UpdateNodeShare changes a grant's permission. Node owner only.
func (s *NodeService) UpdateNodeShare(ctx context.Context, ownerID, shareID uuid.UUID, permission models.AccessLevel) (*models.NodeShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	share, err := s.ownedNodeShare(ctx, ownerID, shareID)
	if err != nil {
		return nil, err
	}
	share.Permission = permission
	if err := s.db.WithContext(ctx).Save(share).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionUpdated, models.KindNodeShare, share.ID, ownerID)
	return share, nil
}

// RevokeNodeShare deletes a grant. Node owner only.
func (s *NodeService) RevokeNodeShare(ctx context.Context, ownerID, shareID uuid.UUID) error {
	share, err := s.ownedNodeShare(ctx, ownerID, shareID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(share).Error; err != nil {
		return err
	}
	s.publish(ctx, events.ActionRevoked, models.KindNodeShare, share.ID, ownerID)
	return nil
}

func (s *NodeService) ownedNodeShare(ctx context.Context, ownerID, shareID uuid.UUID) (*models.NodeShare, error) {
	var share models.NodeShare
	err := s.db.WithContext(ctx).
		Joins("JOIN nodes ON nodes.id = node_shares.node_id").
		Where("node_shares.id = ? AND nodes.owner_id = ?", shareID, ownerID).
		First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: share", ErrNotFound)
		}
		return nil, err
	}
	return &share, nil
}

// ListNodeShares discloses a node's grant list. Owner only, same policy
// as file shares: earlier revisions disclosed this to anyone with read
// access, which let outsiders enumerate who else a node was shared
// with.
func (s *NodeService) ListNodeShares(ctx context.Context, ownerID, nodeID uuid.UUID) ([]models.NodeShare, error) {
	if _, err := s.requireOwnedNode(ctx, ownerID, nodeID); err != nil {
		return nil, err
	}
	var shares []models.NodeShare
	if err := s.db.WithContext(ctx).Where("node_id = ?", nodeID).Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}
