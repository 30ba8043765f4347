package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/L-Ayim/Vault/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroupOwnerIsMember(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)
	assert.NotEqual(t, "", group.InviteCode.String())

	members, err := svc.ListGroupMembers(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner.ID, members[0].ID)
}

func TestJoinGroupRotatesCodeAtLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 2)
	require.NoError(t, err)
	originalCode := group.InviteCode

	// First join: counter goes to 1, code unchanged.
	joiner1 := createTestUser(t, db, "joiner1")
	after1, err := svc.JoinGroupByInvite(ctx, joiner1.ID, originalCode)
	require.NoError(t, err)
	assert.Equal(t, originalCode, after1.InviteCode)
	assert.Equal(t, 1, after1.InviteUsesCount)

	// Second join hits the limit: fresh code, counter reset.
	joiner2 := createTestUser(t, db, "joiner2")
	after2, err := svc.JoinGroupByInvite(ctx, joiner2.ID, originalCode)
	require.NoError(t, err)
	assert.NotEqual(t, originalCode, after2.InviteCode)
	assert.Equal(t, 0, after2.InviteUsesCount)

	// The old code no longer resolves.
	joiner3 := createTestUser(t, db, "joiner3")
	_, err = svc.JoinGroupByInvite(ctx, joiner3.ID, originalCode)
	assert.ErrorIs(t, err, ErrNotFound)

	// The rotated code still works.
	_, err = svc.JoinGroupByInvite(ctx, joiner3.ID, after2.InviteCode)
	require.NoError(t, err)

	members, err := svc.ListGroupMembers(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestSingleUseGroupInviteSelfRevokes(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", true, 100)
	require.NoError(t, err)

	joiner := createTestUser(t, db, "joiner")
	joined, err := svc.JoinGroupByInvite(ctx, joiner.ID, group.InviteCode)
	require.NoError(t, err)
	assert.True(t, joined.Revoked)

	late := createTestUser(t, db, "late")
	_, err = svc.JoinGroupByInvite(ctx, late.ID, joined.InviteCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejoinKeepsSingleMembership(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)

	joiner := createTestUser(t, db, "joiner")
	_, err = svc.JoinGroupByInvite(ctx, joiner.ID, group.InviteCode)
	require.NoError(t, err)
	again, err := svc.JoinGroupByInvite(ctx, joiner.ID, group.InviteCode)
	require.NoError(t, err)

	// Membership stays single even though the counter moves.
	members, err := svc.ListGroupMembers(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, 2, again.InviteUsesCount)
}

func TestRevokeGroupInviteOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)
	_, err = svc.JoinGroupByInvite(ctx, member.ID, group.InviteCode)
	require.NoError(t, err)

	_, err = svc.RevokeGroupInvite(ctx, member.ID, group.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	revoked, err := svc.RevokeGroupInvite(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked)

	late := createTestUser(t, db, "late")
	_, err = svc.JoinGroupByInvite(ctx, late.ID, revoked.InviteCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveAndRemoveMember(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	member := createTestUser(t, db, "member")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)
	_, err = svc.JoinGroupByInvite(ctx, member.ID, group.InviteCode)
	require.NoError(t, err)

	// The owner cannot leave their own group.
	err = svc.LeaveGroup(ctx, owner.ID, group.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// Only the owner can remove members.
	err = svc.RemoveMember(ctx, member.ID, group.ID, owner.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, svc.RemoveMember(ctx, owner.ID, group.ID, member.ID))

	members, err := svc.ListGroupMembers(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestGetGroupHiddenFromNonMembers(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	outsider := createTestUser(t, db, "outsider")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)

	_, err = svc.GetGroup(ctx, outsider.ID, group.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetGroup(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, got.ID)
}

func TestGroupEventsPublished(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	svc := NewGroupService(db, pub)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	group, err := svc.CreateGroup(ctx, owner.ID, "team", false, 100)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		joiner := createTestUser(t, db, fmt.Sprintf("joiner%d", i))
		_, err := svc.JoinGroupByInvite(ctx, joiner.ID, group.InviteCode)
		require.NoError(t, err)
	}

	var joins int
	for _, e := range pub.groupEvents {
		if e.EventType == events.MemberJoined {
			joins++
		}
	}
	assert.Equal(t, 3, joins)
}
