// Package pager materializes one page of a gorm query together with its navigation metadata.
package pager

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// Page is one page of results
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	LastPage int   `json:"last_page"`
}

func (p *Page[T]) HasNext() bool {
	return p.Page < p.LastPage
}

func (p *Page[T]) HasPrevious() bool {
	return p.Page > 1
}

// Pager paginates queries with a default and an upper bound on page size
type Pager struct {
	defaultSize int
	maxSize     int
}

func New(defaultSize, maxSize int) *Pager {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return &Pager{defaultSize: defaultSize, maxSize: maxSize}
}

// Normalize clamps a requested page/size pair to usable values.
func (p *Pager) Normalize(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if size <= 0 {
		size = p.defaultSize
	}
	if size > p.maxSize {
		size = p.maxSize
	}
	return page, size
}

// Paginate counts the rows matched by query and loads the requested page ordered by order.
// query must have its model set.
func Paginate[T any](ctx context.Context, p *Pager, query *gorm.DB, order string, page, size int) (*Page[T], error) {
	page, size = p.Normalize(page, size)
	base := query.WithContext(ctx).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count page rows: %w", err)
	}

	result := &Page[T]{
		Items:    []T{},
		Total:    total,
		Page:     page,
		PageSize: size,
		LastPage: lastPage(total, size),
	}
	if total == 0 || int64((page-1)*size) >= total {
		return result, nil
	}

	if err := base.Order(order).Limit(size).Offset((page - 1) * size).Find(&result.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	return result, nil
}

func lastPage(total int64, size int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}
