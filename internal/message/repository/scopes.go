package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// Soft deletion is a flag on message; every query that hides deleted rows goes
// through notDeleted (builder) or deletedFilter (raw SQL).
const softDeleteColumn = "is_deleted"

func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where(softDeleteColumn+" = ?", false)
}

// deletedFilter is the raw SQL counterpart of notDeleted for a table alias.
func deletedFilter(alias string, include bool) string {
	if include {
		return ""
	}
	return fmt.Sprintf(" AND %s.%s = FALSE", alias, softDeleteColumn)
}

// sentBy restricts to finalized, non-deleted messages owned by memberID.
func sentBy(memberID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return notDeleted(db.Where("member_id = ?", memberID)).Where("is_send = ?", true)
	}
}

func draftsBy(memberID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return notDeleted(db.Where("member_id = ?", memberID)).Where("is_send = ?", false)
	}
}
