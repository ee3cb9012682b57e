package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the domain repositories. The connection it holds may be
// the shared pool or an open transaction.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the connection to ctx. A nil ctx returns the bare connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Rebind returns a Base on tx, or b itself when tx is nil.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// First loads the first T matching where. A miss returns gorm.ErrRecordNotFound.
func First[T any](ctx context.Context, b Base, where string, args ...any) (*T, error) {
	var row T
	if err := b.DB(ctx).Where(where, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Count returns how many T rows match where.
func Count[T any](ctx context.Context, b Base, where string, args ...any) (int64, error) {
	var n int64
	err := b.DB(ctx).Model(new(T)).Where(where, args...).Count(&n).Error
	return n, err
}
