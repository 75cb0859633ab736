package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"couponverify/internal/models"
	"couponverify/internal/repository"
	"couponverify/pkg/db"
)

// Repos required by the service (interfaces to allow mocking).
type CouponRepo interface {
	GetAndLock(ctx context.Context, tx *sql.Tx, code string, companyID int) (*repository.RedeemableCoupon, error)
	MarkUsed(ctx context.Context, tx *sql.Tx, couponID int, phone string) (time.Time, error)
	InsertIgnoringConflict(ctx context.Context, tx *sql.Tx, code string, companyID int) (bool, error)
}

type CompanyRepo interface {
	ListActive(ctx context.Context, search string) ([]models.Company, error)
	ExistsActive(ctx context.Context, tx *sql.Tx, companyID int) (bool, error)
}

type RecordRepo interface {
	Count(ctx context.Context, f repository.RecordFilter) (int, error)
	List(ctx context.Context, f repository.RecordFilter, limit, offset int) ([]models.RecordView, error)
	Insert(ctx context.Context, tx *sql.Tx, couponID int, phone, ip string) (time.Time, error)
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

const (
	MinBatchCount = 1
	MaxBatchCount = 100

	// maxRerolls bounds how often a single batch slot is re-drawn after a
	// code collision before the whole batch fails.
	maxRerolls = 10
)

type CouponService struct {
	db          *sql.DB
	couponRepo  CouponRepo
	companyRepo CompanyRepo
	recordRepo  RecordRepo
	logger      zerolog.Logger
}

func NewCouponService(conn *sql.DB, cRepo CouponRepo, compRepo CompanyRepo, rRepo RecordRepo, logger zerolog.Logger) *CouponService {
	return &CouponService{
		db:          conn,
		couponRepo:  cRepo,
		companyRepo: compRepo,
		recordRepo:  rRepo,
		logger:      logger,
	}
}

// Verify redeems code against companyID on behalf of actor. The check and the
// state flip run under one row lock, so two racing redemptions of the same
// code cannot both succeed; the audit row is appended in the same transaction
// and neither write is observable unless both commit.
func (s *CouponService) Verify(ctx context.Context, code string, companyID int, actor, sourceIP string) (models.Receipt, error) {
	if !codePattern.MatchString(code) {
		return models.Receipt{}, &ValidationError{Field: "code", Message: "券码格式不正确，请输入8位大写英文和数字组合"}
	}
	if companyID <= 0 {
		return models.Receipt{}, &ValidationError{Field: "companyId", Message: "券码和企业不能为空"}
	}

	var receipt models.Receipt
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		coupon, err := s.couponRepo.GetAndLock(ctx, tx, code, companyID)
		if err != nil {
			return fmt.Errorf("lock coupon: %w", err)
		}
		if coupon == nil {
			return ErrCouponNotFound
		}
		if coupon.IsUsed {
			return &AlreadyUsedError{UsedAt: coupon.UsedAt.Time}
		}

		if _, err := s.couponRepo.MarkUsed(ctx, tx, coupon.ID, actor); err != nil {
			return fmt.Errorf("mark used: %w", err)
		}
		verifiedAt, err := s.recordRepo.Insert(ctx, tx, coupon.ID, actor, sourceIP)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}

		receipt = models.Receipt{
			Code:             coupon.Code,
			Company:          coupon.CompanyName,
			VerificationTime: verifiedAt,
		}
		return nil
	})
	if err != nil {
		return models.Receipt{}, err
	}

	s.logger.Info().
		Str("code", receipt.Code).
		Int("company_id", companyID).
		Str("actor", actor).
		Msg("coupon redeemed")
	return receipt, nil
}

// ListCompanies returns the active companies for the redemption selector.
func (s *CouponService) ListCompanies(ctx context.Context, search string) ([]models.Company, error) {
	return s.companyRepo.ListActive(ctx, search)
}

// ListRecords returns one page of the redemption log, most recent first. The
// total is computed under the same filter as the page itself.
func (s *CouponService) ListRecords(ctx context.Context, filter repository.RecordFilter, page, limit int) (models.RecordPage, error) {
	if page < 1 {
		return models.RecordPage{}, &ValidationError{Field: "page", Message: "页码不正确"}
	}
	if limit < 1 {
		return models.RecordPage{}, &ValidationError{Field: "limit", Message: "每页数量不正确"}
	}

	total, err := s.recordRepo.Count(ctx, filter)
	if err != nil {
		return models.RecordPage{}, fmt.Errorf("count records: %w", err)
	}
	records, err := s.recordRepo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return models.RecordPage{}, fmt.Errorf("list records: %w", err)
	}

	return models.RecordPage{
		Records: records,
		Pagination: models.Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// GenerateBatch creates count coupons for a company inside one transaction.
// Codes that collide with existing ones are re-drawn rather than aborting the
// batch; the unique constraint on code remains the final defense.
func (s *CouponService) GenerateBatch(ctx context.Context, companyID, count int) ([]string, error) {
	if companyID <= 0 || count < MinBatchCount || count > MaxBatchCount {
		return nil, &ValidationError{Field: "count", Message: "参数错误，count范围1-100"}
	}

	batchID := uuid.NewString()
	codes := make([]string, 0, count)
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// checked inside the transaction so a company deactivated mid-flight
		// fails the batch as a validation error, not an FK violation
		ok, err := s.companyRepo.ExistsActive(ctx, tx, companyID)
		if err != nil {
			return fmt.Errorf("check company: %w", err)
		}
		if !ok {
			return &ValidationError{Field: "companyId", Message: "企业不存在或已停用"}
		}

		for i := 0; i < count; i++ {
			inserted := false
			for attempt := 0; attempt < maxRerolls; attempt++ {
				code := generateCode()
				ok, err := s.couponRepo.InsertIgnoringConflict(ctx, tx, code, companyID)
				if err != nil {
					return fmt.Errorf("insert coupon: %w", err)
				}
				if ok {
					codes = append(codes, code)
					inserted = true
					break
				}
				// collided with an existing code, draw again
			}
			if !inserted {
				return fmt.Errorf("batch %s: %d consecutive code collisions", batchID, maxRerolls)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("company_id", companyID).
		Int("count", count).
		Msg("coupon batch generated")
	return codes, nil
}
