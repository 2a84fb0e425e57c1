package common

import "context"

type contextKey string

const memberIDKey contextKey = "member_id"

// WithMemberID stores the authenticated member id in ctx.
func WithMemberID(ctx context.Context, memberID uint64) context.Context {
	return context.WithValue(ctx, memberIDKey, memberID)
}

// MemberIDFromContext returns the authenticated member id, or ErrUnauthenticated.
func MemberIDFromContext(ctx context.Context) (uint64, error) {
	id, ok := ctx.Value(memberIDKey).(uint64)
	if !ok || id == 0 {
		return 0, ErrUnauthenticated
	}
	return id, nil
}
