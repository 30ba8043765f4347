package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/L-Ayim/Vault/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// generateInviteCode returns a fresh unique friend-invite code.
func generateInviteCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// RegisterUser creates a user and their profile in one transaction. The
// profile is not an ambient side effect: it is part of the creation
// contract and is rolled back with the user.
func (s *AccountService) RegisterUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidArgument)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username already taken", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials and returns the user.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	return &user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: profile", ErrNotFound)
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateProfileParams carries the optional profile fields; nil means
// leave unchanged.
type UpdateProfileParams struct {
	AvatarURL    *string
	AvatarFileID *uuid.UUID
	Bio          *string
	Preferences  *string
}

// UpdateProfile patches the caller's own profile. An avatar file must
// be owned by the caller.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.AvatarURL != nil {
		profile.AvatarURL = *params.AvatarURL
		profile.AvatarFileID = nil
	}
	if params.AvatarFileID != nil {
		var file models.File
		if err := s.db.WithContext(ctx).First(&file, "id = ? AND owner_id = ?", *params.AvatarFileID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: invalid avatar file", ErrInvalidArgument)
			}
			return nil, err
		}
		profile.AvatarFileID = &file.ID
		profile.AvatarURL = file.URL
	}
	if params.Bio != nil {
		profile.Bio = *params.Bio
	}
	if params.Preferences != nil {
		profile.Preferences = *params.Preferences
	}

	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateFriendInvite issues a new invite code. MaxUses only applies to
// MULTI codes and is rejected elsewhere.
func (s *AccountService) CreateFriendInvite(ctx context.Context, userID uuid.UUID, codeType models.CodeType, maxUses *int, expiresAt *time.Time) (*models.Invite, error) {
	if codeType != models.InviteSingle && codeType != models.InviteMulti {
		return nil, fmt.Errorf("%w: unknown code type %q", ErrInvalidArgument, codeType)
	}
	if codeType != models.InviteMulti {
		maxUses = nil
	}
	if maxUses != nil && *maxUses < 1 {
		return nil, fmt.Errorf("%w: maxUses must be positive", ErrInvalidArgument)
	}

	invite := &models.Invite{
		Code:        generateInviteCode(),
		CreatedByID: userID,
		CodeType:    codeType,
		MaxUses:     maxUses,
		ExpiresAt:   expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, err
	}
	return invite, nil
}

// RedeemFriendInvite consumes one use of an invite and creates the
// mutual friendship pair. The row is locked for the whole
// check-increment-create sequence so concurrent redemptions cannot push
// a finite-use code past its limit, and an inactive code fails with no
// side effects.
func (s *AccountService) RedeemFriendInvite(ctx context.Context, userID uuid.UUID, code string) (*models.User, error) {
	var creator models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := lockForUpdate(tx).First(&invite, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: invalid invite code", ErrNotFound)
			}
			return err
		}
		if !invite.IsActive(time.Now()) {
			return fmt.Errorf("%w: invite code expired or revoked", ErrConflict)
		}
		if invite.CreatedByID == userID {
			return fmt.Errorf("%w: cannot redeem your own invite", ErrInvalidArgument)
		}

		invite.UsesCount++
		if err := tx.Save(&invite).Error; err != nil {
			return err
		}

		if err := tx.First(&creator, "id = ?", invite.CreatedByID).Error; err != nil {
			return err
		}

		// Both directions, deduplicated per pair.
		pair := []models.Friendship{
			{UserID: invite.CreatedByID, FriendID: userID},
			{UserID: userID, FriendID: invite.CreatedByID},
		}
		for i := range pair {
			if err := tx.Where("user_id = ? AND friend_id = ?", pair[i].UserID, pair[i].FriendID).
				FirstOrCreate(&pair[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &creator, nil
}

// RevokeFriendInvite marks an invite revoked. Creator only; anyone else
// sees NotFound.
func (s *AccountService) RevokeFriendInvite(ctx context.Context, userID uuid.UUID, code string) error {
	var invite models.Invite
	if err := s.db.WithContext(ctx).First(&invite, "code = ? AND created_by_id = ?", code, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: invite", ErrNotFound)
		}
		return err
	}
	invite.IsRevoked = true
	return s.db.WithContext(ctx).Save(&invite).Error
}

// ListActiveInvites returns the invites currently open for redemption.
func (s *AccountService) ListActiveInvites(ctx context.Context) ([]models.Invite, error) {
	var invites []models.Invite
	err := s.db.WithContext(ctx).
		Where("is_revoked = ?", false).
		Where(s.db.Where("expires_at IS NULL").Or("expires_at > ?", time.Now())).
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	// Usage exhaustion is derived, not stored; filter in memory.
	active := invites[:0]
	now := time.Now()
	for _, inv := range invites {
		if inv.IsActive(now) {
			active = append(active, inv)
		}
	}
	return active, nil
}

// ListFriends returns the users on the other end of the caller's
// friendship rows, in either direction.
func (s *AccountService) ListFriends(ctx context.Context, userID uuid.UUID, limit, offset int, usernameContains string) ([]models.User, error) {
	sent := s.db.Model(&models.Friendship{}).Select("friend_id").Where("user_id = ?", userID)
	received := s.db.Model(&models.Friendship{}).Select("user_id").Where("friend_id = ?", userID)

	q := s.db.WithContext(ctx).
		Where("id IN (?) OR id IN (?)", sent, received)
	if usernameContains != "" {
		q = q.Where("username LIKE ?", "%"+usernameContains+"%")
	}

	var friends []models.User
	if err := q.Limit(limit).Offset(offset).Find(&friends).Error; err != nil {
		return nil, err
	}
	return friends, nil
}

// Unfriend removes both directions of the friendship in one transaction.
func (s *AccountService) Unfriend(ctx context.Context, userID, friendID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where(
			"(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID,
		).Delete(&models.Friendship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: friendship", ErrNotFound)
		}
		return nil
	})
}

// DeleteUser removes an account and all of its records: friendships in
// both directions, invites, group and channel memberships, owned
// groups, files, nodes, messages, and the profile. Owned resources are
// deleted rather than orphaned.
func (s *AccountService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user", ErrNotFound)
			}
			return err
		}

		if err := tx.Where("user_id = ? OR friend_id = ?", userID, userID).Delete(&models.Friendship{}).Error; err != nil {
			return err
		}
		if err := tx.Where("created_by_id = ?", userID).Delete(&models.Invite{}).Error; err != nil {
			return err
		}

		// Owned groups go away entirely, memberships first.
		var ownedGroups []uuid.UUID
		if err := tx.Model(&models.Group{}).Where("owner_id = ?", userID).Pluck("id", &ownedGroups).Error; err != nil {
			return err
		}
		if len(ownedGroups) > 0 {
			if err := tx.Where("group_id IN ?", ownedGroups).Delete(&models.GroupMember{}).Error; err != nil {
				return err
			}
			if err := tx.Where("shared_with_group_id IN ?", ownedGroups).Delete(&models.FileShare{}).Error; err != nil {
				return err
			}
			if err := tx.Where("shared_with_group_id IN ?", ownedGroups).Delete(&models.NodeShare{}).Error; err != nil {
				return err
			}
			var groupChannels []uuid.UUID
			if err := tx.Model(&models.Channel{}).Where("group_id IN ?", ownedGroups).Pluck("id", &groupChannels).Error; err != nil {
				return err
			}
			if err := deleteChannels(tx, groupChannels); err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ownedGroups).Delete(&models.Group{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}

		// Owned nodes with their placements, edges, grants, and channels.
		var ownedNodes []uuid.UUID
		if err := tx.Model(&models.Node{}).Where("owner_id = ?", userID).Pluck("id", &ownedNodes).Error; err != nil {
			return err
		}
		if len(ownedNodes) > 0 {
			if err := tx.Where("node_id IN ?", ownedNodes).Delete(&models.NodeFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("node_a_id IN ? OR node_b_id IN ?", ownedNodes, ownedNodes).Delete(&models.Edge{}).Error; err != nil {
				return err
			}
			if err := tx.Where("node_id IN ?", ownedNodes).Delete(&models.NodeShare{}).Error; err != nil {
				return err
			}
			var nodeChannels []uuid.UUID
			if err := tx.Model(&models.Channel{}).Where("node_id IN ?", ownedNodes).Pluck("id", &nodeChannels).Error; err != nil {
				return err
			}
			if err := deleteChannels(tx, nodeChannels); err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ownedNodes).Delete(&models.Node{}).Error; err != nil {
				return err
			}
		}

		// Owned files with versions, grants, and placements.
		var ownedFiles []uuid.UUID
		if err := tx.Model(&models.File{}).Where("owner_id = ?", userID).Pluck("id", &ownedFiles).Error; err != nil {
			return err
		}
		if len(ownedFiles) > 0 {
			var ownedVersions []uuid.UUID
			if err := tx.Model(&models.Version{}).Where("file_id IN ?", ownedFiles).Pluck("id", &ownedVersions).Error; err != nil {
				return err
			}
			if len(ownedVersions) > 0 {
				if err := tx.Model(&models.Message{}).Where("attachment_id IN ?", ownedVersions).Update("attachment_id", nil).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("file_id IN ?", ownedFiles).Delete(&models.Version{}).Error; err != nil {
				return err
			}
			if err := tx.Where("file_id IN ?", ownedFiles).Delete(&models.FileShare{}).Error; err != nil {
				return err
			}
			if err := tx.Where("file_id IN ?", ownedFiles).Delete(&models.NodeFile{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Profile{}).Where("avatar_file_id IN ?", ownedFiles).Update("avatar_file_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ownedFiles).Delete(&models.File{}).Error; err != nil {
				return err
			}
		}

		// Grants pointing at the user and their direct channels.
		if err := tx.Where("shared_with_user_id = ?", userID).Delete(&models.FileShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shared_with_user_id = ?", userID).Delete(&models.NodeShare{}).Error; err != nil {
			return err
		}
		var directChannels []uuid.UUID
		if err := tx.Model(&models.Channel{}).
			Where("direct_user1_id = ? OR direct_user2_id = ?", userID, userID).
			Pluck("id", &directChannels).Error; err != nil {
			return err
		}
		if err := deleteChannels(tx, directChannels); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ChannelMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

func deleteChannels(tx *gorm.DB, channelIDs []uuid.UUID) error {
	if len(channelIDs) == 0 {
		return nil
	}
	if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.Message{}).Error; err != nil {
		return err
	}
	if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.ChannelMembership{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", channelIDs).Delete(&models.Channel{}).Error
}
