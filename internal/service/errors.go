package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnknownMerchant     = errors.New("unknown merchant")
	ErrIdentityConflict    = errors.New("identity conflict")
	ErrCodeIssuance        = errors.New("discount code issuance failed")
	ErrAffiliateUnresolved = errors.New("affiliate unresolved")
	ErrTransientStorage    = errors.New("transient storage failure")
	ErrIngestionTimeout    = errors.New("ingestion timed out")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrQueueUnavailable    = errors.New("payout queue unavailable")
	ErrPayoutSenderMissing = errors.New("payout sender not configured")
)

// IsRetryable 判断失败是否可由调用方整体重试（无残留状态）
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStorage) || errors.Is(err, ErrIngestionTimeout)
}

// classifyStorageError 将底层错误归类为业务错误，已归类的错误原样返回
func classifyStorageError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrInvalidInput,
		ErrUnknownMerchant,
		ErrIdentityConflict,
		ErrCodeIssuance,
		ErrAffiliateUnresolved,
		ErrTransientStorage,
		ErrIngestionTimeout,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrIngestionTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransientStorage, err)
}

// isUniqueViolation 判断唯一约束冲突。连接需开启 TranslateError（见 models.OpenDB）
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
