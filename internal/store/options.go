package store

import (
	"fmt"

	"gorm.io/gorm"
)

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByCreatedAsc
	SortByCreatedDesc
	SortByTitleAsc
	SortByTitleDesc
	SortBySubject
	SortByDueDate
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type AssignmentQueryFilter BaseQuerier

func NewAssignmentQueryFilter() *AssignmentQueryFilter {
	return &AssignmentQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// ByOwner scopes the query to a single (username, org) pair. Every
// user-facing query carries this filter so missing and not-owned rows are
// indistinguishable to callers.
func (qf *AssignmentQueryFilter) ByOwner(username, orgID string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("username = ? AND org_id = ?", username, orgID)
	})
	return qf
}

func (qf *AssignmentQueryFilter) ByTitleLike(pattern string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("title LIKE ?", fmt.Sprintf("%%%s%%", pattern))
	})
	return qf
}

func (qf *AssignmentQueryFilter) BySubject(subject string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("subject = ?", subject)
	})
	return qf
}

func (qf *AssignmentQueryFilter) ByStatus(status string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

func (qf *AssignmentQueryFilter) BySource(source string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("source = ?", source)
	})
	return qf
}

func (qf *AssignmentQueryFilter) ByKind(kind string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("kind = ?", kind)
	})
	return qf
}

func (qf *AssignmentQueryFilter) ByClassroomID(classroomID string) *AssignmentQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("classroom_id = ?", classroomID)
	})
	return qf
}

type AssignmentQueryOptions BaseQuerier

func NewAssignmentQueryOptions() *AssignmentQueryOptions {
	return &AssignmentQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *AssignmentQueryOptions) WithSortOrder(sort SortOrder) *AssignmentQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		switch sort {
		case SortByCreatedAsc:
			return tx.Order("created_at")
		case SortByCreatedDesc:
			return tx.Order("created_at DESC")
		case SortByTitleAsc:
			return tx.Order("title")
		case SortByTitleDesc:
			return tx.Order("title DESC")
		case SortBySubject:
			return tx.Order("subject")
		case SortByDueDate:
			return tx.Order("due_date")
		default:
			return tx
		}
	})
	return o
}

func (o *AssignmentQueryOptions) WithPagination(limit, offset int) *AssignmentQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		if offset > 0 {
			tx = tx.Offset(offset)
		}
		return tx
	})
	return o
}
