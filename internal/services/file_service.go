package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/L-Ayim/Vault/internal/access"
	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/models"
	rediscache "github.com/L-Ayim/Vault/internal/redis"
	"github.com/L-Ayim/Vault/internal/storage"
	"github.com/L-Ayim/Vault/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileService struct {
	db        *gorm.DB
	evaluator *access.Evaluator
	store     storage.Store
	publisher events.Publisher
	cache     *rediscache.Service
}

func NewFileService(db *gorm.DB, store storage.Store, publisher events.Publisher, cache *rediscache.Service) *FileService {
	return &FileService{
		db:        db,
		evaluator: access.NewEvaluator(db),
		store:     store,
		publisher: publisher,
		cache:     cache,
	}
}

func (s *FileService) publish(ctx context.Context, action string, kind models.ResourceKind, resourceID, actorID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResourceEvent(ctx, events.NewResourceEvent(action, kind, resourceID, actorID)); err != nil {
		logger.Log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to publish resource event")
	}
}

// getFile loads a file, preferring the metadata cache.
func (s *FileService) getFile(ctx context.Context, fileID uuid.UUID) (*models.File, error) {
	if cached, err := s.cache.GetFileMetadata(ctx, fileID); err != nil {
		logger.Log.Warn().Err(err).Msg("File metadata cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	var file models.File
	if err := s.db.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file", ErrNotFound)
		}
		return nil, err
	}

	if err := s.cache.SetFileMetadata(ctx, &file); err != nil {
		logger.Log.Warn().Err(err).Msg("File metadata cache write failed")
	}
	return &file, nil
}

// requireFile resolves a file the principal can access at the requested
// level. A file the principal cannot read reports NotFound so existence
// does not leak.
func (s *FileService) requireFile(ctx context.Context, principal *uuid.UUID, fileID uuid.UUID, requested models.AccessLevel) (*models.File, error) {
	file, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.evaluator.CanFile(ctx, principal, file, requested)
	if err != nil {
		return nil, err
	}
	if ok {
		return file, nil
	}
	readable, err := s.evaluator.CanFile(ctx, principal, file, models.Read)
	if err != nil {
		return nil, err
	}
	if readable {
		return nil, fmt.Errorf("%w: file", ErrPermissionDenied)
	}
	return nil, fmt.Errorf("%w: file", ErrNotFound)
}

// requireOwnedFile resolves a file the principal owns. Non-owners with
// read access get PermissionDenied, everyone else NotFound.
func (s *FileService) requireOwnedFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.File, error) {
	file, err := s.requireFile(ctx, &ownerID, fileID, models.Read)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: file owner required", ErrPermissionDenied)
	}
	return file, nil
}

// UploadFile stores the payload and creates the file plus its initial
// version in one transaction.
func (s *FileService) UploadFile(ctx context.Context, ownerID uuid.UUID, name string, payload io.Reader, size int64) (*models.File, *models.Version, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("%w: file name is required", ErrInvalidArgument)
	}

	handle, err := s.store.Save(ctx, name, payload, size)
	if err != nil {
		return nil, nil, err
	}

	file := &models.File{
		OwnerID:    ownerID,
		Name:       name,
		StorageKey: handle.Key,
		URL:        handle.URL,
	}
	version := &models.Version{
		StorageKey: handle.Key,
		URL:        handle.URL,
		Note:       "Initial upload",
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return err
		}
		version.FileID = file.ID
		return tx.Create(version).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.ActionCreated, models.KindFile, file.ID, ownerID)
	return file, version, nil
}

// AddFileVersion appends an immutable snapshot. Owner only.
func (s *FileService) AddFileVersion(ctx context.Context, userID, fileID uuid.UUID, payload io.Reader, size int64, note string) (*models.Version, error) {
	file, err := s.requireOwnedFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	handle, err := s.store.Save(ctx, file.Name, payload, size)
	if err != nil {
		return nil, err
	}

	version := &models.Version{
		FileID:     file.ID,
		StorageKey: handle.Key,
		URL:        handle.URL,
		Note:       note,
	}
	if err := s.db.WithContext(ctx).Create(version).Error; err != nil {
		return nil, err
	}

	s.publish(ctx, events.ActionUpdated, models.KindFile, file.ID, userID)
	return version, nil
}

// GetFile returns a file to any principal with read access.
func (s *FileService) GetFile(ctx context.Context, principal *uuid.UUID, fileID uuid.UUID) (*models.File, error) {
	return s.requireFile(ctx, principal, fileID, models.Read)
}

// DownloadURL returns a fresh retrievable URL for a readable file.
func (s *FileService) DownloadURL(ctx context.Context, principal *uuid.UUID, fileID uuid.UUID) (string, error) {
	file, err := s.requireFile(ctx, principal, fileID, models.Read)
	if err != nil {
		return "", err
	}
	return s.store.ResolveURL(ctx, file.StorageKey)
}

// ListVersions returns a readable file's versions, newest first.
func (s *FileService) ListVersions(ctx context.Context, principal *uuid.UUID, fileID uuid.UUID, limit, offset int) ([]models.Version, error) {
	if _, err := s.requireFile(ctx, principal, fileID, models.Read); err != nil {
		return nil, err
	}
	var versions []models.Version
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// upsertFileShare updates the existing grant for the target or creates
// one, so each target holds at most one grant per file.
func (s *FileService) upsertFileShare(ctx context.Context, match *models.FileShare, permission models.AccessLevel) (*models.FileShare, error) {
	q := s.db.WithContext(ctx).Where("file_id = ?", match.FileID)
	switch {
	case match.IsPublic:
		q = q.Where("is_public = ?", true)
	case match.SharedWithUserID != nil:
		q = q.Where("shared_with_user_id = ?", *match.SharedWithUserID)
	default:
		q = q.Where("shared_with_group_id = ?", *match.SharedWithGroupID)
	}

	var existing models.FileShare
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

// ShareFileWithUser grants a user access to a file. Owner only.
func (s *FileService) ShareFileWithUser(ctx context.Context, ownerID, fileID, targetUserID uuid.UUID, permission models.AccessLevel) (*models.FileShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	file, err := s.requireOwnedFile(ctx, ownerID, fileID)
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

	share, err := s.upsertFileShare(ctx, &models.FileShare{FileID: file.ID, SharedWithUserID: &target.ID}, permission)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionShared, models.KindFileShare, share.ID, ownerID)
	return share, nil
}

// ShareFileWithGroup grants a group access to a file. Owner only.
func (s *FileService) ShareFileWithGroup(ctx context.Context, ownerID, fileID, groupID uuid.UUID, permission models.AccessLevel) (*models.FileShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	file, err := s.requireOwnedFile(ctx, ownerID, fileID)
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

	share, err := s.upsertFileShare(ctx, &models.FileShare{FileID: file.ID, SharedWithGroupID: &group.ID}, permission)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionShared, models.KindFileShare, share.ID, ownerID)
	return share, nil
}

// MakeFilePublic grants everyone access to a file. Owner only.
func (s *FileService) MakeFilePublic(ctx context.Context, ownerID, fileID uuid.UUID, permission models.AccessLevel) (*models.FileShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	file, err := s.requireOwnedFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	share, err := s.upsertFileShare(ctx, &models.FileShare{FileID: file.ID, IsPublic: true}, permission)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionShared, models.KindFileShare, share.ID, ownerID)
	return share, nil
}

// UpdateFileShare changes a grant's permission. File owner only.
func (s *FileService) UpdateFileShare(ctx context.Context, ownerID, shareID uuid.UUID, permission models.AccessLevel) (*models.FileShare, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, permission)
	}
	share, err := s.ownedFileShare(ctx, ownerID, shareID)
	if err != nil {
		return nil, err
	}
	share.Permission = permission
	if err := s.db.WithContext(ctx).Save(share).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionUpdated, models.KindFileShare, share.ID, ownerID)
	return share, nil
}

// RevokeFileShare deletes a grant. File owner only.
func (s *FileService) RevokeFileShare(ctx context.Context, ownerID, shareID uuid.UUID) error {
	share, err := s.ownedFileShare(ctx, ownerID, shareID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(share).Error; err != nil {
		return err
	}
	s.publish(ctx, events.ActionRevoked, models.KindFileShare, share.ID, ownerID)
	return nil
}

func (s *FileService) ownedFileShare(ctx context.Context, ownerID, shareID uuid.UUID) (*models.FileShare, error) {
	var share models.FileShare
	err := s.db.WithContext(ctx).
		Joins("JOIN files ON files.id = file_shares.file_id").
		Where("file_shares.id = ? AND files.owner_id = ?", shareID, ownerID).
		First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: share", ErrNotFound)
		}
		return nil, err
	}
	return &share, nil
}

// ListFileShares discloses a file's grant list. Owner only: a grant
// list names every user and group with access and is management
// surface, not shared content.
func (s *FileService) ListFileShares(ctx context.Context, ownerID, fileID uuid.UUID) ([]models.FileShare, error) {
	if _, err := s.requireOwnedFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}
	var shares []models.FileShare
	if err := s.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// ListMyFiles returns the files the caller owns or can read, through
// the one shared access predicate.
func (s *FileService) ListMyFiles(ctx context.Context, userID uuid.UUID, limit, offset int, nameContains string) ([]models.File, error) {
	q := s.evaluator.ScopeFiles(s.db.WithContext(ctx).Model(&models.File{}), &userID, models.Read)
	if nameContains != "" {
		q = q.Where("name LIKE ?", "%"+nameContains+"%")
	}
	var files []models.File
	if err := q.Limit(limit).Offset(offset).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// ListPublicFiles returns publicly readable files, no principal needed.
func (s *FileService) ListPublicFiles(ctx context.Context, limit, offset int, nameContains string) ([]models.File, error) {
	q := s.evaluator.ScopeFiles(s.db.WithContext(ctx).Model(&models.File{}), nil, models.Read)
	if nameContains != "" {
		q = q.Where("name LIKE ?", "%"+nameContains+"%")
	}
	var files []models.File
	if err := q.Limit(limit).Offset(offset).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// KeepFile copies a readable file into a new file owned by the caller.
// By default only the latest version is carried over.
func (s *FileService) KeepFile(ctx context.Context, userID, fileID uuid.UUID, copyName string, allVersions bool) (*models.File, []models.Version, error) {
	orig, err := s.requireFile(ctx, &userID, fileID, models.Read)
	if err != nil {
		return nil, nil, err
	}

	var versions []models.Version
	q := s.db.WithContext(ctx).Where("file_id = ?", orig.ID).Order("created_at ASC")
	if !allVersions {
		q = s.db.WithContext(ctx).Where("file_id = ?", orig.ID).Order("created_at DESC").Limit(1)
	}
	if err := q.Find(&versions).Error; err != nil {
		return nil, nil, err
	}

	name := copyName
	if name == "" {
		name = orig.Name + " (copy)"
	}

	newFile := &models.File{
		OwnerID:    userID,
		Name:       name,
		StorageKey: orig.StorageKey,
		URL:        orig.URL,
	}
	copied := make([]models.Version, len(versions))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newFile).Error; err != nil {
			return err
		}
		for i, v := range versions {
			copied[i] = models.Version{
				FileID:     newFile.ID,
				StorageKey: v.StorageKey,
				URL:        v.URL,
				Note:       v.Note,
			}
			if err := tx.Create(&copied[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.ActionCreated, models.KindFile, newFile.ID, userID)
	return newFile, copied, nil
}

// RenameFile renames a file. Owner only.
func (s *FileService) RenameFile(ctx context.Context, ownerID, fileID uuid.UUID, newName string) (*models.File, error) {
	if newName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidArgument)
	}
	file, err := s.requireOwnedFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	file.Name = newName
	if err := s.db.WithContext(ctx).Save(file).Error; err != nil {
		return nil, err
	}
	if err := s.cache.SetFileMetadata(ctx, file); err != nil {
		logger.Log.Warn().Err(err).Msg("File metadata cache write failed")
	}
	s.publish(ctx, events.ActionUpdated, models.KindFile, file.ID, ownerID)
	return file, nil
}

// DeleteFile removes a file and everything hanging off it: versions,
// grants, node placements, and message-attachment references (nulled,
// messages themselves stay). Owner only.
func (s *FileService) DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) error {
	file, err := s.requireOwnedFile(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		versionIDs := tx.Model(&models.Version{}).Select("id").Where("file_id = ?", file.ID)
		if err := tx.Model(&models.Message{}).
			Where("attachment_id IN (?)", versionIDs).
			Update("attachment_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.FileShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", file.ID).Delete(&models.NodeFile{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Profile{}).
			Where("avatar_file_id = ?", file.ID).
			Update("avatar_file_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(file).Error
	})
	if err != nil {
		return err
	}

	if err := s.cache.InvalidateFileMetadata(ctx, file.ID); err != nil {
		logger.Log.Warn().Err(err).Msg("File metadata cache invalidation failed")
	}
	s.publish(ctx, events.ActionDeleted, models.KindFile, file.ID, ownerID)
	return nil
}
