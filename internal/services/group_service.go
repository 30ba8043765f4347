package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupService struct {
	db        *gorm.DB
	publisher events.Publisher
}

func NewGroupService(db *gorm.DB, publisher events.Publisher) *GroupService {
	return &GroupService{db: db, publisher: publisher}
}

// publishGroupEvent is fire-and-forget: a broken broker never fails the
// mutation that triggered the event.
func (s *GroupService) publishGroupEvent(ctx context.Context, event *events.GroupEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGroupEvent(ctx, event); err != nil {
		logger.Log.Warn().Err(err).Str("eventType", event.EventType).Msg("Failed to publish group event")
	}
}

// CreateGroup creates a group and enrolls the owner as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID uuid.UUID, name string, singleUse bool, maxInviteUses int) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidArgument)
	}
	if maxInviteUses < 1 {
		return nil, fmt.Errorf("%w: maxInviteUses must be positive", ErrInvalidArgument)
	}

	group := &models.Group{
		Name:          name,
		OwnerID:       ownerID,
		SingleUse:     singleUse,
		MaxInviteUses: maxInviteUses,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{UserID: ownerID, GroupID: group.ID}).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishGroupEvent(ctx, events.NewGroupEvent(events.GroupCreated, group.ID, ownerID, nil))
	return group, nil
}

// JoinGroupByInvite redeems a group invite code. The group row is
// locked for the whole sequence: re-check activity, upsert membership,
// register the use (rotating the code and resetting the counter when
// the use hits the limit), and self-revoke single-use groups. A
// rejected code applies nothing.
func (s *GroupService) JoinGroupByInvite(ctx context.Context, userID uuid.UUID, inviteCode uuid.UUID) (*models.Group, error) {
	var group models.Group

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			First(&group, "invite_code = ? AND revoked = ?", inviteCode, false).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: invalid or revoked invite code", ErrNotFound)
			}
			return err
		}
		if !group.IsActive() {
			return fmt.Errorf("%w: invite code exhausted", ErrConflict)
		}

		member := models.GroupMember{UserID: userID, GroupID: group.ID}
		if err := tx.Where("user_id = ? AND group_id = ?", userID, group.ID).
			FirstOrCreate(&member).Error; err != nil {
			return err
		}

		group.RegisterInviteUse()
		if group.SingleUse {
			group.Revoked = true
		}
		return tx.Save(&group).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishGroupEvent(ctx, events.NewGroupEvent(events.MemberJoined, group.ID, userID, nil))
	return &group, nil
}

// RevokeGroupInvite permanently disables the group's invite code.
// Owner only.
func (s *GroupService) RevokeGroupInvite(ctx context.Context, ownerID, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: only the owner can revoke the invite", ErrPermissionDenied)
	}
	group.Revoked = true
	if err := s.db.WithContext(ctx).Save(group).Error; err != nil {
		return nil, err
	}
	s.publishGroupEvent(ctx, events.NewGroupEvent(events.InviteRevoked, group.ID, ownerID, nil))
	return group, nil
}

// LeaveGroup removes the caller's own membership. The owner stays.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID == userID {
		return fmt.Errorf("%w: owner cannot leave their own group", ErrConflict)
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Delete(&models.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: membership", ErrNotFound)
	}
	s.publishGroupEvent(ctx, events.NewGroupEvent(events.MemberLeft, groupID, userID, nil))
	return nil
}

// RemoveMember removes another user from the group. Owner only.
func (s *GroupService) RemoveMember(ctx context.Context, ownerID, groupID, memberID uuid.UUID) error {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != ownerID {
		return fmt.Errorf("%w: only the owner can remove members", ErrPermissionDenied)
	}
	if memberID == ownerID {
		return fmt.Errorf("%w: owner cannot remove themselves", ErrConflict)
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", memberID, groupID).
		Delete(&models.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: membership", ErrNotFound)
	}
	s.publishGroupEvent(ctx, events.NewGroupEvent(events.MemberRemoved, groupID, ownerID, &memberID))
	return nil
}

// GetGroup returns a group to one of its members. The row carries the
// invite code, so non-members see NotFound.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member, err := s.isMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: group", ErrNotFound)
	}
	return group, nil
}

// ListMyGroups returns the groups the caller belongs to.
func (s *GroupService) ListMyGroups(ctx context.Context, userID uuid.UUID, limit, offset int, nameContains string) ([]models.Group, error) {
	membership := s.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	q := s.db.WithContext(ctx).Where("id IN (?)", membership)
	if nameContains != "" {
		q = q.Where("name LIKE ?", "%"+nameContains+"%")
	}
	var groups []models.Group
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// ListGroupMembers returns the member users. Members only.
func (s *GroupService) ListGroupMembers(ctx context.Context, userID, groupID uuid.UUID) ([]models.User, error) {
	member, err := s.isMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: group", ErrNotFound)
	}
	membership := s.db.Model(&models.GroupMember{}).Select("user_id").Where("group_id = ?", groupID)
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN (?)", membership).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GroupService) getGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group", ErrNotFound)
		}
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) isMember(ctx context.Context, userID, groupID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Count(&count).Error
	return count > 0, err
}
