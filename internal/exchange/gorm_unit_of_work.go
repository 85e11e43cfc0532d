package exchange

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormTx wraps an open gorm transaction.
type GormTx struct {
	DB *gorm.DB
}

// Commit commits the transaction.
func (t *GormTx) Commit() error {
	return t.DB.Commit().Error
}

// Rollback rolls the transaction back.
func (t *GormTx) Rollback() error {
	return t.DB.Rollback().Error
}

// GormUnitOfWork begins transactions on a gorm connection.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork returns a UnitOfWork backed by db.
func NewGormUnitOfWork(db *gorm.DB) (*GormUnitOfWork, error) {
	if db == nil {
		return nil, errors.New("exchange: db is required")
	}
	return &GormUnitOfWork{db: db}, nil
}

// Begin starts a transaction bound to ctx.
func (u *GormUnitOfWork) Begin(ctx context.Context) (*GormTx, error) {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &GormTx{DB: tx}, nil
}
