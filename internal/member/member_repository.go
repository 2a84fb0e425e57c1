package member

import (
	"context"
	"errors"
	"fmt"

	"gosocialmsg/internal/dbmysql"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// MemberRepository resolves member ids to member rows
type MemberRepository interface {
	GetMemberByID(ctx context.Context, memberID uint64) (*dbmysql.Member, error)
	// GetMembersByIDs returns members in the order of ids; unknown ids are skipped.
	GetMembersByIDs(ctx context.Context, ids []uint64) ([]*dbmysql.Member, error)
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetMemberByID(ctx context.Context, memberID uint64) (*dbmysql.Member, error) {
	var member dbmysql.Member
	err := r.db.WithContext(ctx).Where("id = ?", memberID).Take(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &member, nil
}

func (r *memberRepository) GetMembersByIDs(ctx context.Context, ids []uint64) ([]*dbmysql.Member, error) {
	if len(ids) == 0 {
		return []*dbmysql.Member{}, nil
	}

	var members []*dbmysql.Member
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	byID := lo.KeyBy(members, func(m *dbmysql.Member) uint64 {
		return m.ID
	})

	ordered := make([]*dbmysql.Member, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}
