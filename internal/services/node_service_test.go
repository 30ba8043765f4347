package services

import (
	"context"
	"testing"

	"github.com/L-Ayim/Vault/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newNodeService(db *gorm.DB) *NodeService {
	return NewNodeService(db, nil, nil)
}

func TestCreateAndRenameNode(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	node, err := svc.CreateNode(ctx, owner.ID, "ideas", "scratch space")
	require.NoError(t, err)

	newName := "plans"
	renamed, err := svc.RenameNode(ctx, owner.ID, node.ID, &newName, nil)
	require.NoError(t, err)
	assert.Equal(t, "plans", renamed.Name)
	assert.Equal(t, "scratch space", renamed.Description)

	stranger := createTestUser(t, db, "stranger")
	_, err = svc.RenameNode(ctx, stranger.ID, node.ID, &newName, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddFileToNodeUpsertsNote(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	node, err := svc.CreateNode(ctx, owner.ID, "n", "")
	require.NoError(t, err)

	// Attaching a file you do not own is allowed; only node ownership
	// matters.
	file := models.File{OwnerID: other.ID, Name: "doc", StorageKey: "k"}
	require.NoError(t, db.Create(&file).Error)

	first, err := svc.AddFileToNode(ctx, owner.ID, node.ID, file.ID, "draft")
	require.NoError(t, err)
	second, err := svc.AddFileToNode(ctx, owner.ID, node.ID, file.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "final", second.Note)

	var count int64
	require.NoError(t, db.Model(&models.NodeFile{}).Where("node_id = ?", node.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Non-owners cannot attach.
	_, err = svc.AddFileToNode(ctx, other.ID, node.ID, file.ID, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveFileSourceOwnershipOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	source, err := svc.CreateNode(ctx, owner.ID, "source", "")
	require.NoError(t, err)
	dest, err := svc.CreateNode(ctx, other.ID, "dest", "")
	require.NoError(t, err)

	file := models.File{OwnerID: owner.ID, Name: "doc", StorageKey: "k"}
	require.NoError(t, db.Create(&file).Error)
	_, err = svc.AddFileToNode(ctx, owner.ID, source.ID, file.ID, "")
	require.NoError(t, err)

	// Moving into someone else's node needs only source ownership.
	require.NoError(t, svc.MoveFileBetweenNodes(ctx, owner.ID, source.ID, dest.ID, file.ID))

	var placements []models.NodeFile
	require.NoError(t, db.Where("file_id = ?", file.ID).Find(&placements).Error)
	require.Len(t, placements, 1)
	assert.Equal(t, dest.ID, placements[0].NodeID)

	// The reverse move fails: the mover does not own the new source.
	err = svc.MoveFileBetweenNodes(ctx, owner.ID, dest.ID, source.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveMergesWhenDestinationHasFile(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	a, err := svc.CreateNode(ctx, owner.ID, "a", "")
	require.NoError(t, err)
	b, err := svc.CreateNode(ctx, owner.ID, "b", "")
	require.NoError(t, err)

	file := models.File{OwnerID: owner.ID, Name: "doc", StorageKey: "k"}
	require.NoError(t, db.Create(&file).Error)
	_, err = svc.AddFileToNode(ctx, owner.ID, a.ID, file.ID, "")
	require.NoError(t, err)
	_, err = svc.AddFileToNode(ctx, owner.ID, b.ID, file.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.MoveFileBetweenNodes(ctx, owner.ID, a.ID, b.ID, file.ID))

	var placements []models.NodeFile
	require.NoError(t, db.Where("file_id = ?", file.ID).Find(&placements).Error)
	require.Len(t, placements, 1)
	assert.Equal(t, b.ID, placements[0].NodeID)
}

func TestCreateEdgeCanonicalAndIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	a, err := svc.CreateNode(ctx, owner.ID, "a", "")
	require.NoError(t, err)
	b, err := svc.CreateNode(ctx, owner.ID, "b", "")
	require.NoError(t, err)

	first, err := svc.CreateEdge(ctx, owner.ID, a.ID, b.ID, "related")
	require.NoError(t, err)

	// The reversed pair resolves to the same edge.
	second, err := svc.CreateEdge(ctx, owner.ID, b.ID, a.ID, "related")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Edge{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Self loops are rejected.
	_, err = svc.CreateEdge(ctx, owner.ID, a.ID, a.ID, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Both endpoints must be owned.
	other := createTestUser(t, db, "other")
	theirs, err := svc.CreateNode(ctx, other.ID, "theirs", "")
	require.NoError(t, err)
	_, err = svc.CreateEdge(ctx, owner.ID, a.ID, theirs.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEdgeRequiresBothOwners(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	a, err := svc.CreateNode(ctx, owner.ID, "a", "")
	require.NoError(t, err)
	b, err := svc.CreateNode(ctx, owner.ID, "b", "")
	require.NoError(t, err)
	edge, err := svc.CreateEdge(ctx, owner.ID, a.ID, b.ID, "")
	require.NoError(t, err)

	err = svc.DeleteEdge(ctx, other.ID, edge.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, svc.DeleteEdge(ctx, owner.ID, edge.ID))
	var count int64
	require.NoError(t, db.Model(&models.Edge{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestNodeShareAccess(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	reader := createTestUser(t, db, "reader")
	node, err := svc.CreateNode(ctx, owner.ID, "shared", "")
	require.NoError(t, err)

	_, err = svc.GetNode(ctx, &reader.ID, node.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ShareNodeWithUser(ctx, owner.ID, node.ID, reader.ID, models.Read)
	require.NoError(t, err)

	got, err := svc.GetNode(ctx, &reader.ID, node.ID)
	require.NoError(t, err)
	assert.Equal(t, node.ID, got.ID)

	// Grant lists stay owner-only.
	_, err = svc.ListNodeShares(ctx, reader.ID, node.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Readable nodes expose their placements and edges.
	_, err = svc.ListNodeFiles(ctx, &reader.ID, node.ID, 50, 0)
	require.NoError(t, err)
	_, err = svc.ListNodeEdges(ctx, &reader.ID, node.ID, 50, 0)
	require.NoError(t, err)
}

func TestDeleteNodeCascades(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	chat := NewChatService(db, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	node, err := svc.CreateNode(ctx, owner.ID, "doomed", "")
	require.NoError(t, err)
	neighbor, err := svc.CreateNode(ctx, owner.ID, "neighbor", "")
	require.NoError(t, err)

	file := models.File{OwnerID: owner.ID, Name: "doc", StorageKey: "k"}
	require.NoError(t, db.Create(&file).Error)
	_, err = svc.AddFileToNode(ctx, owner.ID, node.ID, file.ID, "")
	require.NoError(t, err)
	_, err = svc.CreateEdge(ctx, owner.ID, node.ID, neighbor.ID, "")
	require.NoError(t, err)
	_, err = svc.MakeNodePublic(ctx, owner.ID, node.ID, models.Read)
	require.NoError(t, err)

	channel, err := chat.OpenNodeChannel(ctx, owner.ID, node.ID)
	require.NoError(t, err)
	_, err = chat.SendMessage(ctx, owner.ID, channel.ID, "hello", "", nil, 0)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNode(ctx, owner.ID, node.ID))

	var count int64
	require.NoError(t, db.Model(&models.NodeFile{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.Edge{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.NodeShare{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.Channel{}).Where("id = ?", channel.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.Message{}).Where("channel_id = ?", channel.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// The untouched file and neighbor node survive.
	require.NoError(t, db.First(&models.File{}, "id = ?", file.ID).Error)
	require.NoError(t, db.First(&models.Node{}, "id = ?", neighbor.ID).Error)
}

func TestListMyAndPublicNodes(t *testing.T) {
	db := newTestDB(t)
	svc := newNodeService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	mine, err := svc.CreateNode(ctx, owner.ID, "mine", "")
	require.NoError(t, err)
	open, err := svc.CreateNode(ctx, other.ID, "open", "")
	require.NoError(t, err)
	_, err = svc.CreateNode(ctx, other.ID, "hidden", "")
	require.NoError(t, err)
	_, err = svc.MakeNodePublic(ctx, other.ID, open.ID, models.Read)
	require.NoError(t, err)

	nodes, err := svc.ListMyNodes(ctx, owner.ID, 50, 0, "")
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, n := range nodes {
		ids[n.ID.String()] = true
	}
	assert.True(t, ids[mine.ID.String()])
	assert.True(t, ids[open.ID.String()], "public nodes count as accessible")
	assert.Len(t, nodes, 2)

	public, err := svc.ListPublicNodes(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, open.ID, public[0].ID)
}
