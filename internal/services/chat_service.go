package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/L-Ayim/Vault/internal/access"
	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/models"
	"github.com/L-Ayim/Vault/internal/storage"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatService struct {
	db        *gorm.DB
	evaluator *access.Evaluator
	store     storage.Store
	publisher events.Publisher
}

func NewChatService(db *gorm.DB, store storage.Store, publisher events.Publisher) *ChatService {
	return &ChatService{
		db:        db,
		evaluator: access.NewEvaluator(db),
		store:     store,
		publisher: publisher,
	}
}

func (s *ChatService) publish(ctx context.Context, action string, kind models.ResourceKind, resourceID, actorID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResourceEvent(ctx, events.NewResourceEvent(action, kind, resourceID, actorID)); err != nil {
		logger.Log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to publish resource event")
	}
}

// OpenDirectChannel returns the direct channel between the caller and
// another user, creating it on first use. The participant pair is
// stored canonically so both callers land on the same channel.
func (s *ChatService) OpenDirectChannel(ctx context.Context, userID, otherUserID uuid.UUID) (*models.Channel, error) {
	if userID == otherUserID {
		return nil, fmt.Errorf("%w: cannot open a direct channel with yourself", ErrInvalidArgument)
	}
	var other models.User
	if err := s.db.WithContext(ctx).First(&other, "id = ?", otherUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}

	u1, u2 := orderedPair(userID, otherUserID)
	var channel models.Channel
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&channel, "direct_user1_id = ? AND direct_user2_id = ?", u1, u2).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			channel = models.Channel{
				ChannelType:   models.ChannelDirect,
				DirectUser1ID: &u1,
				DirectUser2ID: &u2,
			}
			created = true
			if err := tx.Create(&channel).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		for _, member := range []uuid.UUID{u1, u2} {
			if err := ensureMembership(tx, channel.ID, member); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.publish(ctx, events.ActionCreated, models.KindChannel, channel.ID, userID)
	}
	return &channel, nil
}

// OpenNodeChannel returns the channel attached to a node, creating it
// on first use. Anyone who can read the node may open and join it.
func (s *ChatService) OpenNodeChannel(ctx context.Context, userID, nodeID uuid.UUID) (*models.Channel, error) {
	var node models.Node
	if err := s.db.WithContext(ctx).First(&node, "id = ?", nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: node", ErrNotFound)
		}
		return nil, err
	}
	readable, err := s.evaluator.CanNode(ctx, &userID, &node, models.Read)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, fmt.Errorf("%w: node", ErrNotFound)
	}

	return s.openLinkedChannel(ctx, userID, "node_id = ?", nodeID, models.Channel{
		ChannelType: models.ChannelNode,
		Name:        node.Name,
		NodeID:      &node.ID,
	})
}

// OpenGroupChannel returns the channel attached to a group, creating it
// on first use. Members only.
func (s *ChatService) OpenGroupChannel(ctx context.Context, userID, groupID uuid.UUID) (*models.Channel, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group", ErrNotFound)
		}
		return nil, err
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: group", ErrNotFound)
	}

	return s.openLinkedChannel(ctx, userID, "group_id = ?", groupID, models.Channel{
		ChannelType: models.ChannelGroup,
		Name:        group.Name,
		GroupID:     &group.ID,
	})
}

func (s *ChatService) openLinkedChannel(ctx context.Context, userID uuid.UUID, linkQuery string, linkID uuid.UUID, template models.Channel) (*models.Channel, error) {
	var channel models.Channel
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&channel, linkQuery, linkID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			channel = template
			created = true
			if err := tx.Create(&channel).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return ensureMembership(tx, channel.ID, userID)
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.publish(ctx, events.ActionCreated, models.KindChannel, channel.ID, userID)
	}
	return &channel, nil
}

// CreatePublicChannel creates a named channel anyone can join.
func (s *ChatService) CreatePublicChannel(ctx context.Context, userID uuid.UUID, name string) (*models.Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: channel name is required", ErrInvalidArgument)
	}
	channel := models.Channel{ChannelType: models.ChannelPublic, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&channel).Error; err != nil {
			return err
		}
		return ensureMembership(tx, channel.ID, userID)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionCreated, models.KindChannel, channel.ID, userID)
	return &channel, nil
}

// JoinChannel adds the caller to a channel they are entitled to:
// public channels are open, node channels follow node read access,
// group channels follow membership, direct channels only admit their
// two participants.
func (s *ChatService) JoinChannel(ctx context.Context, userID, channelID uuid.UUID) (*models.Channel, error) {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	ok, err := s.mayJoin(ctx, userID, channel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: channel", ErrNotFound)
	}
	if err := ensureMembership(s.db.WithContext(ctx), channel.ID, userID); err != nil {
		return nil, err
	}
	return channel, nil
}

// LeaveChannel drops the caller's membership and read watermark.
func (s *ChatService) LeaveChannel(ctx context.Context, userID, channelID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&models.ChannelMembership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: channel membership", ErrNotFound)
	}
	return nil
}

func (s *ChatService) mayJoin(ctx context.Context, userID uuid.UUID, channel *models.Channel) (bool, error) {
	switch channel.ChannelType {
	case models.ChannelPublic:
		return true, nil
	case models.ChannelDirect:
		return (channel.DirectUser1ID != nil && *channel.DirectUser1ID == userID) ||
			(channel.DirectUser2ID != nil && *channel.DirectUser2ID == userID), nil
	case models.ChannelNode:
		var node models.Node
		if err := s.db.WithContext(ctx).First(&node, "id = ?", *channel.NodeID).Error; err != nil {
			return false, err
		}
		return s.evaluator.CanNode(ctx, &userID, &node, models.Read)
	case models.ChannelGroup:
		var count int64
		err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", *channel.GroupID, userID).
			Count(&count).Error
		return count > 0, err
	default:
		return false, nil
	}
}

func ensureMembership(tx *gorm.DB, channelID, userID uuid.UUID) error {
	return tx.
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		FirstOrCreate(&models.ChannelMembership{ChannelID: channelID, UserID: userID}).Error
}

func (s *ChatService) getChannel(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	var channel models.Channel
	if err := s.db.WithContext(ctx).First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: channel", ErrNotFound)
		}
		return nil, err
	}
	return &channel, nil
}

func (s *ChatService) requireMembership(ctx context.Context, userID, channelID uuid.UUID) (*models.ChannelMembership, error) {
	var membership models.ChannelMembership
	err := s.db.WithContext(ctx).
		First(&membership, "channel_id = ? AND user_id = ?", channelID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: channel", ErrNotFound)
		}
		return nil, err
	}
	return &membership, nil
}

// SendMessage posts to a channel the caller has joined. An optional
// attachment upload becomes a fresh file (with its initial version)
// owned by the sender, so the sender can manage and re-share it later
// like any other file.
func (s *ChatService) SendMessage(ctx context.Context, userID, channelID uuid.UUID, text string, attachmentName string, attachment io.Reader, attachmentSize int64) (*models.Message, error) {
	if _, err := s.requireMembership(ctx, userID, channelID); err != nil {
		return nil, err
	}
	if text == "" && attachment == nil {
		return nil, fmt.Errorf("%w: message needs text or an attachment", ErrInvalidArgument)
	}

	var attachmentID *uuid.UUID
	if attachment != nil {
		if s.store == nil {
			return nil, fmt.Errorf("%w: attachments are not configured", ErrInvalidArgument)
		}
		handle, err := s.store.Save(ctx, attachmentName, attachment, attachmentSize)
		if err != nil {
			return nil, fmt.Errorf("failed to store attachment: %w", err)
		}
		file := models.File{OwnerID: userID, Name: attachmentName, StorageKey: handle.Key, URL: handle.URL}
		version := models.Version{StorageKey: handle.Key, URL: handle.URL, Note: "Chat attachment"}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&file).Error; err != nil {
				return err
			}
			version.FileID = file.ID
			return tx.Create(&version).Error
		})
		if err != nil {
			return nil, err
		}
		// Messages reference the version snapshot, not the file.
		attachmentID = &version.ID
	}

	message := models.Message{ChannelID: channelID, SenderID: userID, Text: text, AttachmentID: attachmentID}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionCreated, models.KindMessage, message.ID, userID)
	return &message, nil
}

// ListChannelMessages pages a channel's history, newest first. Members
// only.
func (s *ChatService) ListChannelMessages(ctx context.Context, userID, channelID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if _, err := s.requireMembership(ctx, userID, channelID); err != nil {
		return nil, err
	}
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ChannelListing pairs a channel with the caller's unread count.
type ChannelListing struct {
	Channel models.Channel `json:"channel"`
	Unread  int64          `json:"unread"`
}

// ListMyChannels returns every channel the caller has joined together
// with their unread counts.
func (s *ChatService) ListMyChannels(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ChannelListing, error) {
	var memberships []models.ChannelMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		Limit(limit).Offset(offset).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	listings := make([]ChannelListing, 0, len(memberships))
	for _, m := range memberships {
		var channel models.Channel
		if err := s.db.WithContext(ctx).First(&channel, "id = ?", m.ChannelID).Error; err != nil {
			return nil, err
		}
		unread, err := s.unreadCount(ctx, &m)
		if err != nil {
			return nil, err
		}
		listings = append(listings, ChannelListing{Channel: channel, Unread: unread})
	}
	return listings, nil
}

// UnreadCount reports how many messages arrived after the caller's
// read watermark, not counting their own.
func (s *ChatService) UnreadCount(ctx context.Context, userID, channelID uuid.UUID) (int64, error) {
	membership, err := s.requireMembership(ctx, userID, channelID)
	if err != nil {
		return 0, err
	}
	return s.unreadCount(ctx, membership)
}

func (s *ChatService) unreadCount(ctx context.Context, membership *models.ChannelMembership) (int64, error) {
	watermark := time.Time{}
	if membership.LastReadAt != nil {
		watermark = *membership.LastReadAt
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("channel_id = ? AND created_at > ? AND sender_id <> ?", membership.ChannelID, watermark, membership.UserID).
		Count(&count).Error
	return count, err
}

// MarkChannelRead advances the caller's read watermark to now. The
// watermark never moves backwards.
func (s *ChatService) MarkChannelRead(ctx context.Context, userID, channelID uuid.UUID) (*models.ChannelMembership, error) {
	membership, err := s.requireMembership(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if membership.LastReadAt == nil || membership.LastReadAt.Before(now) {
		membership.LastReadAt = &now
		if err := s.db.WithContext(ctx).Save(membership).Error; err != nil {
			return nil, err
		}
	}
	return membership, nil
}

// ListPublicChannels pages joinable public channels.
func (s *ChatService) ListPublicChannels(ctx context.Context, limit, offset int, nameContains string) ([]models.Channel, error) {
	q := s.db.WithContext(ctx).Where("channel_type = ?", models.ChannelPublic)
	if nameContains != "" {
		q = q.Where("name LIKE ?", "%"+nameContains+"%")
	}
	var channels []models.Channel
	if err := q.Limit(limit).Offset(offset).Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}
