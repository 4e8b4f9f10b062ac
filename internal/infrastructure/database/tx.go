package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// context にぶら下げる用のキー
type txKey struct{}

// ctx に *gorm.DB（トランザクション）を埋め込む
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Repository 側で「この ctx に Tx がぶら下がっているか？」を見るためのヘルパ
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// TxManager は「この DB でトランザクションを貼る」ための小さなラッパ
type TxManager struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTxManager(db *gorm.DB, logger *zap.Logger) *TxManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManager{
		db:     db,
		logger: logger,
	}
}

// WithinTx は ctx を引き継いだトランザクションを開始し、fn をその中で実行する。
// すでに ctx に Tx があればそれに相乗りする（ネストはしない）。
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin tx: %w", tx.Error)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			m.logger.Error("failed to rollback tx", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
