package services

import (
	"context"
	"testing"

	"github.com/L-Ayim/Vault/internal/events"
	"github.com/L-Ayim/Vault/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFileService(db *gorm.DB, pub *recordingPublisher) *FileService {
	var publisher events.Publisher
	if pub != nil {
		publisher = pub
	}
	return NewFileService(db, newMemoryStore(), publisher, nil)
}

func TestUploadCreatesInitialVersion(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	svc := newFileService(db, pub)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	file, version, err := svc.UploadFile(ctx, owner.ID, "notes.txt", payload("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, file.OwnerID)
	assert.Equal(t, file.ID, version.FileID)
	assert.NotEmpty(t, file.StorageKey)

	versions, err := svc.ListVersions(ctx, &owner.ID, file.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	assert.Contains(t, pub.resourceActions(models.KindFile), events.ActionCreated)
}

func TestAddVersionOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	file, _, err := svc.UploadFile(ctx, owner.ID, "notes.txt", payload("v1"), 2)
	require.NoError(t, err)

	_, err = svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Write)
	require.NoError(t, err)

	// Even a write grant does not allow version appends.
	_, err = svc.AddFileVersion(ctx, reader.ID, file.ID, payload("v2"), 2, "second")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	v2, err := svc.AddFileVersion(ctx, owner.ID, file.ID, payload("v2"), 2, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", v2.Note)

	versions, err := svc.ListVersions(ctx, &owner.ID, file.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	// Newest first.
	assert.Equal(t, v2.ID, versions[0].ID)
}

func TestUnsharedFileHiddenFromStrangers(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	stranger := createTestUser(t, db, "stranger")
	file, _, err := svc.UploadFile(ctx, owner.ID, "secret.txt", payload("x"), 1)
	require.NoError(t, err)

	_, err = svc.GetFile(ctx, &stranger.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DownloadURL(ctx, &stranger.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ListVersions(ctx, &stranger.ID, file.ID, 50, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	// Anonymous callers are no better off.
	_, err = svc.GetFile(ctx, nil, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserShareGrantsRead(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	file, _, err := svc.UploadFile(ctx, owner.ID, "doc.txt", payload("x"), 1)
	require.NoError(t, err)

	_, err = svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Read)
	require.NoError(t, err)

	got, err := svc.GetFile(ctx, &reader.ID, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)

	url, err := svc.DownloadURL(ctx, &reader.ID, file.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	// Read access does not extend to owner mutations; the reader sees
	// a denial, not a phantom missing file.
	_, err = svc.RenameFile(ctx, reader.ID, file.ID, "stolen.txt")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestShareUpsertKeepsOneRowPerTarget(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	file, _, err := svc.UploadFile(ctx, owner.ID, "doc.txt", payload("x"), 1)
	require.NoError(t, err)

	first, err := svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Read)
	require.NoError(t, err)
	second, err := svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Write)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.Write, second.Permission)

	var count int64
	require.NoError(t, db.Model(&models.FileShare{}).Where("file_id = ?", file.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGroupShareFollowsLiveMembership(t *testing.T) {
	db := newTestDB(t)
	files := newFileService(db, nil)
	groups := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")

	group, err := groups.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)
	_, err = groups.JoinGroupByInvite(ctx, member.ID, group.InviteCode)
	require.NoError(t, err)

	file, _, err := files.UploadFile(ctx, owner.ID, "doc.txt", payload("x"), 1)
	require.NoError(t, err)
	_, err = files.ShareFileWithGroup(ctx, owner.ID, file.ID, group.ID, models.Read)
	require.NoError(t, err)

	_, err = files.GetFile(ctx, &member.ID, file.ID)
	require.NoError(t, err)

	// Leaving the group cuts access immediately.
	require.NoError(t, groups.LeaveGroup(ctx, member.ID, group.ID))
	_, err = files.GetFile(ctx, &member.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublicShareVisibleToAnonymous(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	file, _, err := svc.UploadFile(ctx, owner.ID, "open.txt", payload("x"), 1)
	require.NoError(t, err)
	_, err = svc.MakeFilePublic(ctx, owner.ID, file.ID, models.Read)
	require.NoError(t, err)

	got, err := svc.GetFile(ctx, nil, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)

	public, err := svc.ListPublicFiles(ctx, 50, 0, "")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, file.ID, public[0].ID)
}

func TestListSharesOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	file, _, err := svc.UploadFile(ctx, owner.ID, "doc.txt", payload("x"), 1)
	require.NoError(t, err)
	_, err = svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Read)
	require.NoError(t, err)

	// Readers cannot enumerate who else the file is shared with.
	_, err = svc.ListFileShares(ctx, reader.ID, file.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	shares, err := svc.ListFileShares(ctx, owner.ID, file.ID)
	require.NoError(t, err)
	assert.Len(t, shares, 1)
}

func TestUpdateAndRevokeShare(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	file, _, err := svc.UploadFile(ctx, owner.ID, "doc.txt", payload("x"), 1)
	require.NoError(t, err)
	share, err := svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Read)
	require.NoError(t, err)

	// Non-owners cannot touch the grant.
	_, err = svc.UpdateFileShare(ctx, reader.ID, share.ID, models.Write)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.UpdateFileShare(ctx, owner.ID, share.ID, models.Write)
	require.NoError(t, err)
	assert.Equal(t, models.Write, updated.Permission)

	require.NoError(t, svc.RevokeFileShare(ctx, owner.ID, share.ID))
	_, err = svc.GetFile(ctx, &reader.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeepFileCopies(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	keeper := createTestUser(t, db, "keeper")
	file, _, err := svc.UploadFile(ctx, owner.ID, "doc.txt", payload("v1"), 2)
	require.NoError(t, err)
	_, err = svc.AddFileVersion(ctx, owner.ID, file.ID, payload("v2"), 2, "second")
	require.NoError(t, err)

	// Keeping requires read access.
	_, _, err = svc.KeepFile(ctx, keeper.ID, file.ID, "", false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ShareFileWithUser(ctx, owner.ID, file.ID, keeper.ID, models.Read)
	require.NoError(t, err)

	copied, versions, err := svc.KeepFile(ctx, keeper.ID, file.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, keeper.ID, copied.OwnerID)
	assert.Len(t, versions, 1, "default keeps the latest version only")

	full, fullVersions, err := svc.KeepFile(ctx, keeper.ID, file.ID, "full copy", true)
	require.NoError(t, err)
	assert.Equal(t, "full copy", full.Name)
	assert.Len(t, fullVersions, 2)

	// The copy is independent: revoking the source share leaves it
	// readable by its new owner.
	shares, err := svc.ListFileShares(ctx, owner.ID, file.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RevokeFileShare(ctx, owner.ID, shares[0].ID))
	_, err = svc.GetFile(ctx, &keeper.ID, copied.ID)
	require.NoError(t, err)
}

func TestDeleteFileCascades(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	svc := newFileService(db, pub)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	file, _, err := svc.UploadFile(ctx, owner.ID, "doc.txt", payload("x"), 1)
	require.NoError(t, err)
	_, err = svc.ShareFileWithUser(ctx, owner.ID, file.ID, reader.ID, models.Read)
	require.NoError(t, err)

	node := models.Node{OwnerID: owner.ID, Name: "n"}
	require.NoError(t, db.Create(&node).Error)
	require.NoError(t, db.Create(&models.NodeFile{NodeID: node.ID, FileID: file.ID}).Error)

	require.NoError(t, svc.DeleteFile(ctx, owner.ID, file.ID))

	var count int64
	require.NoError(t, db.Model(&models.Version{}).Where("file_id = ?", file.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.FileShare{}).Where("file_id = ?", file.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.NodeFile{}).Where("file_id = ?", file.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	assert.Contains(t, pub.resourceActions(models.KindFile), events.ActionDeleted)
}

func TestListMyFilesIncludesShared(t *testing.T) {
	db := newTestDB(t)
	svc := newFileService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	mine, _, err := svc.UploadFile(ctx, owner.ID, "mine.txt", payload("x"), 1)
	require.NoError(t, err)
	theirs, _, err := svc.UploadFile(ctx, other.ID, "theirs.txt", payload("x"), 1)
	require.NoError(t, err)
	_, _, err = svc.UploadFile(ctx, other.ID, "hidden.txt", payload("x"), 1)
	require.NoError(t, err)

	_, err = svc.ShareFileWithUser(ctx, other.ID, theirs.ID, owner.ID, models.Read)
	require.NoError(t, err)

	files, err := svc.ListMyFiles(ctx, owner.ID, 50, 0, "")
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, f := range files {
		ids[f.ID.String()] = true
	}
	assert.True(t, ids[mine.ID.String()])
	assert.True(t, ids[theirs.ID.String()])
	assert.Len(t, files, 2)
}
