package credits

import (
	"context"
	"errors"
	"fmt"

	dbutil "github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists the ledger through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a Store backed by conn.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn}
}

// Atomic runs fn inside one gorm transaction.
func (s *GormStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("%w: nil database", ErrTransientStore)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

// ReadAccount loads the account row without locking.
func (s *GormStore) ReadAccount(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errFind
	}
	return &user, nil
}

// ReadTransactions returns one page of the history, newest first, plus the total count.
func (s *GormStore) ReadTransactions(ctx context.Context, userID uint64, limit, offset int) ([]models.CreditTransaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("user_id = ?", userID)

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, errCount
	}

	var rows []models.CreditTransaction
	if errFind := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; errFind != nil {
		return nil, 0, errFind
	}
	return rows, total, nil
}

// Totals aggregates earned and consumed amounts.
func (s *GormStore) Totals(ctx context.Context, userID uint64) (int64, int64, error) {
	var row struct {
		Earned   int64
		Consumed int64
	}
	errScan := s.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS earned, "+
				"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS consumed",
		).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if errScan != nil {
		return 0, 0, errScan
	}
	return row.Earned, row.Consumed, nil
}

// SumAmounts returns the signed sum of all amounts of an account.
func (s *GormStore) SumAmounts(ctx context.Context, userID uint64) (int64, error) {
	var sum int64
	errScan := s.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	if errScan != nil {
		return 0, errScan
	}
	return sum, nil
}

// ListActiveMembers pages through active paid memberships.
func (s *GormStore) ListActiveMembers(ctx context.Context, afterID uint64, limit int) ([]models.User, error) {
	var rows []models.User
	errFind := s.db.WithContext(ctx).
		Where("id > ? AND membership_status = ? AND tier <> ? AND disabled = ?", afterID, models.MembershipActive, models.TierFree, false).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// gormTx implements Tx on an open gorm transaction.
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) CreateAccount(user *models.User) error {
	if errCreate := t.db.Create(user).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return invalid("email", "already registered")
		}
		return errCreate
	}
	return nil
}

func (t *gormTx) LockAccount(userID uint64) (*models.User, error) {
	var user models.User
	errFind := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		Take(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errFind
	}
	return &user, nil
}

func (t *gormTx) InsertTransaction(record *models.CreditTransaction) error {
	return t.db.Create(record).Error
}

func (t *gormTx) UpdateBalance(userID uint64, delta int64) (int64, error) {
	res := t.db.Model(&models.User{}).
		Where("id = ? AND credits + ? >= 0", userID, delta).
		Update("credits", gorm.Expr("credits + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if errCount := t.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; errCount != nil {
			return 0, errCount
		}
		if count == 0 {
			return 0, ErrAccountNotFound
		}
		return 0, ErrInsufficientBalance
	}

	var balance int64
	if errScan := t.db.Model(&models.User{}).Select("credits").Where("id = ?", userID).Scan(&balance).Error; errScan != nil {
		return 0, errScan
	}
	return balance, nil
}

func (t *gormTx) UpdateAccount(userID uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := t.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (t *gormTx) FindByIdempotencyKey(userID uint64, key string) (*models.CreditTransaction, error) {
	var row models.CreditTransaction
	errFind := t.db.Where("user_id = ? AND idempotency_key = ?", userID, key).Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &row, nil
}

func (t *gormTx) FindTransaction(transactionID uint64) (*models.CreditTransaction, error) {
	var row models.CreditTransaction
	errFind := t.db.Where("id = ?", transactionID).Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, errFind
	}
	return &row, nil
}

func (t *gormTx) SumRefunds(referenceID uint64) (int64, error) {
	var sum int64
	errScan := t.db.Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("reference_id = ? AND type = ?", referenceID, models.TransactionRefund).
		Scan(&sum).Error
	if errScan != nil {
		return 0, errScan
	}
	return sum, nil
}
