// Package access holds the single access-control decision used by every
// read and write path. The original service re-derived this filter in
// three places with subtly different predicates; here one evaluator
// serves file and node checks, detail resolution, and listings.
package access

import (
	"context"

	"github.com/L-Ayim/Vault/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Evaluator struct {
	db *gorm.DB
}

func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// grant is the target-agnostic view of a share row.
type grant struct {
	isPublic   bool
	userID     *uuid.UUID
	groupID    *uuid.UUID
	permission models.AccessLevel
}

// covered reports whether any grant satisfies the requested level. The
// grants passed in are already filtered to the ones applicable to the
// principal, so only the permission level is left to check.
func covered(grants []grant, requested models.AccessLevel) bool {
	for _, g := range grants {
		if g.permission.Covers(requested) {
			return true
		}
	}
	return false
}

// memberGroupsQuery is a subquery of the principal's group ids. It is
// evaluated inside the grant lookup so membership is read at decision
// time, never cached: leaving a group revokes group-granted access
// immediately.
func (e *Evaluator) memberGroupsQuery(userID uuid.UUID) *gorm.DB {
	return e.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
}

// applicable narrows a share query to grants that apply to the
// principal: public grants, grants naming the principal, and grants
// naming any group the principal currently belongs to. Anonymous
// principals only match public grants.
func (e *Evaluator) applicable(q *gorm.DB, principal *uuid.UUID) *gorm.DB {
	if principal == nil {
		return q.Where("is_public = ?", true)
	}
	return q.Where(
		e.db.Where("is_public = ?", true).
			Or("shared_with_user_id = ?", *principal).
			Or("shared_with_group_id IN (?)", e.memberGroupsQuery(*principal)),
	)
}

// CanFile decides whether the principal may access the file at the
// requested level. Ownership implies all rights; otherwise any
// applicable grant covering the level allows.
func (e *Evaluator) CanFile(ctx context.Context, principal *uuid.UUID, file *models.File, requested models.AccessLevel) (bool, error) {
	if principal != nil && file.OwnerID == *principal {
		return true, nil
	}
	var shares []models.FileShare
	q := e.applicable(e.db.WithContext(ctx).Where("file_id = ?", file.ID), principal)
	if err := q.Find(&shares).Error; err != nil {
		return false, err
	}
	grants := make([]grant, 0, len(shares))
	for _, s := range shares {
		grants = append(grants, grant{s.IsPublic, s.SharedWithUserID, s.SharedWithGroupID, s.Permission})
	}
	return covered(grants, requested), nil
}

// CanNode is CanFile for nodes.
func (e *Evaluator) CanNode(ctx context.Context, principal *uuid.UUID, node *models.Node, requested models.AccessLevel) (bool, error) {
	if principal != nil && node.OwnerID == *principal {
		return true, nil
	}
	var shares []models.NodeShare
	q := e.applicable(e.db.WithContext(ctx).Where("node_id = ?", node.ID), principal)
	if err := q.Find(&shares).Error; err != nil {
		return false, err
	}
	grants := make([]grant, 0, len(shares))
	for _, s := range shares {
		grants = append(grants, grant{s.IsPublic, s.SharedWithUserID, s.SharedWithGroupID, s.Permission})
	}
	return covered(grants, requested), nil
}

// coveringLevels lists the grant levels that satisfy a request.
func coveringLevels(requested models.AccessLevel) []models.AccessLevel {
	if requested == models.Write {
		return []models.AccessLevel{models.Write}
	}
	return []models.AccessLevel{models.Read, models.Write}
}

// ScopeFiles restricts a query over files to rows the principal can
// access at the requested level: owned, or carrying an applicable grant.
// Every file listing goes through this one predicate.
func (e *Evaluator) ScopeFiles(q *gorm.DB, principal *uuid.UUID, requested models.AccessLevel) *gorm.DB {
	sub := e.applicable(
		e.db.Model(&models.FileShare{}).Select("file_id").Where("permission IN ?", coveringLevels(requested)),
		principal,
	)
	if principal == nil {
		return q.Where("id IN (?)", sub)
	}
	return q.Where(e.db.Where("owner_id = ?", *principal).Or("id IN (?)", sub))
}

// ScopeNodes is ScopeFiles for nodes.
func (e *Evaluator) ScopeNodes(q *gorm.DB, principal *uuid.UUID, requested models.AccessLevel) *gorm.DB {
	sub := e.applicable(
		e.db.Model(&models.NodeShare{}).Select("node_id").Where("permission IN ?", coveringLevels(requested)),
		principal,
	)
	if principal == nil {
		return q.Where("id IN (?)", sub)
	}
	return q.Where(e.db.Where("owner_id = ?", *principal).Or("id IN (?)", sub))
}
