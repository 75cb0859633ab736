package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couponverify/internal/repository"
)

func newCouponService(t *testing.T) (*CouponService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	svc := NewCouponService(mockDB,
		repository.NewCouponRepo(mockDB),
		repository.NewCompanyRepo(mockDB),
		repository.NewRecordRepo(mockDB),
		zerolog.Nop())
	return svc, mock
}

func couponRow(id int, code string, used bool, usedAt interface{}, company string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "is_used", "used_at", "name"}).
		AddRow(id, code, used, usedAt, company)
}

func TestVerify_Success(t *testing.T) {
	svc, mock := newCouponService(t)
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF c").
		WithArgs("ABCD1234", 1).
		WillReturnRows(couponRow(7, "ABCD1234", false, nil, "阿里巴巴集团"))
	mock.ExpectQuery("UPDATE coupons").
		WithArgs(7, "13800138000").
		WillReturnRows(sqlmock.NewRows([]string{"used_at"}).AddRow(now))
	mock.ExpectQuery("INSERT INTO verification_logs").
		WithArgs(7, "13800138000", "203.0.113.9").
		WillReturnRows(sqlmock.NewRows([]string{"verification_time"}).AddRow(now))
	mock.ExpectCommit()

	receipt, err := svc.Verify(context.Background(), "ABCD1234", 1, "13800138000", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", receipt.Code)
	assert.Equal(t, "阿里巴巴集团", receipt.Company)
	assert.Equal(t, now, receipt.VerificationTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_AlreadyUsed(t *testing.T) {
	svc, mock := newCouponService(t)
	usedAt := time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF c").
		WithArgs("ABCD1234", 1).
		WillReturnRows(couponRow(7, "ABCD1234", true, usedAt, "阿里巴巴集团"))
	mock.ExpectRollback()

	_, err := svc.Verify(context.Background(), "ABCD1234", 1, "13800138000", "203.0.113.9")
	var usedErr *AlreadyUsedError
	require.ErrorAs(t, err, &usedErr)
	assert.Equal(t, usedAt, usedErr.UsedAt)
	assert.Contains(t, err.Error(), "已被使用")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_SecondAttemptFails(t *testing.T) {
	// is_used is monotone: redeeming the same code twice in a row succeeds
	// once and then reports already-used.
	svc, mock := newCouponService(t)
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF c").
		WithArgs("WXYZ0099", 2).
		WillReturnRows(couponRow(11, "WXYZ0099", false, nil, "腾讯科技"))
	mock.ExpectQuery("UPDATE coupons").
		WithArgs(11, "13800138000").
		WillReturnRows(sqlmock.NewRows([]string{"used_at"}).AddRow(now))
	mock.ExpectQuery("INSERT INTO verification_logs").
		WithArgs(11, "13800138000", "198.51.100.4").
		WillReturnRows(sqlmock.NewRows([]string{"verification_time"}).AddRow(now))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF c").
		WithArgs("WXYZ0099", 2).
		WillReturnRows(couponRow(11, "WXYZ0099", true, now, "腾讯科技"))
	mock.ExpectRollback()

	_, err := svc.Verify(context.Background(), "WXYZ0099", 2, "13800138000", "198.51.100.4")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), "WXYZ0099", 2, "13800138000", "198.51.100.4")
	var usedErr *AlreadyUsedError
	require.ErrorAs(t, err, &usedErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_NotFound(t *testing.T) {
	// A code that exists under a different company is indistinguishable from
	// a code that does not exist at all.
	svc, mock := newCouponService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF c").
		WithArgs("ABCD1234", 99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "is_used", "used_at", "name"}))
	mock.ExpectRollback()

	_, err := svc.Verify(context.Background(), "ABCD1234", 99, "13800138000", "203.0.113.9")
	require.ErrorIs(t, err, ErrCouponNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_ValidationBeforeTransaction(t *testing.T) {
	svc, mock := newCouponService(t)

	tests := []struct {
		name      string
		code      string
		companyID int
	}{
		{name: "lowercase code", code: "abcd1234", companyID: 1},
		{name: "too short", code: "ABC123", companyID: 1},
		{name: "too long", code: "ABCD12345", companyID: 1},
		{name: "non-alphanumeric", code: "ABCD-234", companyID: 1},
		{name: "missing company", code: "ABCD1234", companyID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), tt.code, tt.companyID, "13800138000", "203.0.113.9")
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}

	// no transaction was ever opened
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecords_Pagination(t *testing.T) {
	svc, mock := newCouponService(t)
	filter := repository.RecordFilter{Date: "2024-05-01", CompanyID: 2}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("2024-05-01", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
	mock.ExpectQuery("ORDER BY vl.verification_time DESC").
		WithArgs("2024-05-01", 2, 20, 20).
		WillReturnRows(sqlmock.NewRows([]string{"verification_time", "code", "name", "user_phone", "ip_address"}).
			AddRow(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), "ABCD1234", "腾讯科技", "13800138000", "203.0.113.9").
			AddRow(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "WXYZ0099", "腾讯科技", "13800138000", nil))

	page, err := svc.ListRecords(context.Background(), filter, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 45, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 20, page.Pagination.Limit)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "ABCD1234", page.Records[0].Code)
	assert.Equal(t, "", page.Records[1].IPAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecords_TotalPagesRounding(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{total: 45, limit: 20, want: 3},
		{total: 40, limit: 20, want: 2},
		{total: 0, limit: 20, want: 0},
		{total: 1, limit: 20, want: 1},
		{total: 21, limit: 20, want: 2},
	}

	for _, tt := range tests {
		svc, mock := newCouponService(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.total))
		mock.ExpectQuery("ORDER BY vl.verification_time DESC").
			WithArgs(tt.limit, 0).
			WillReturnRows(sqlmock.NewRows([]string{"verification_time", "code", "name", "user_phone", "ip_address"}))

		page, err := svc.ListRecords(context.Background(), repository.RecordFilter{}, 1, tt.limit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, page.Pagination.TotalPages, "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestListRecords_RejectsBadPage(t *testing.T) {
	svc, _ := newCouponService(t)

	_, err := svc.ListRecords(context.Background(), repository.RecordFilter{}, 0, 20)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = svc.ListRecords(context.Background(), repository.RecordFilter{}, 1, 0)
	require.ErrorAs(t, err, &vErr)
}

func TestGenerateBatch_Success(t *testing.T) {
	svc, mock := newCouponService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	for i := 0; i < 5; i++ {
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (code) DO NOTHING")).
			WithArgs(sqlmock.AnyArg(), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	codes, err := svc.GenerateBatch(context.Background(), 3, 5)
	require.NoError(t, err)
	require.Len(t, codes, 5)
	for _, code := range codes {
		assert.Regexp(t, `^[A-Z0-9]{8}$`, code)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateBatch_RerollsOnCollision(t *testing.T) {
	svc, mock := newCouponService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	// first slot collides once, then lands
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (code) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (code) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// second slot lands immediately
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (code) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	codes, err := svc.GenerateBatch(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Len(t, codes, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateBatch_CountOutOfRange(t *testing.T) {
	svc, mock := newCouponService(t)

	for _, count := range []int{0, -1, 101, 1000} {
		_, err := svc.GenerateBatch(context.Background(), 1, count)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "count=%d", count)
		assert.Equal(t, "参数错误，count范围1-100", vErr.Message)
	}

	// nothing was inserted
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateBatch_UnknownCompany(t *testing.T) {
	// the existence check shares the insert transaction, so a company
	// deactivated between request and batch still fails as validation,
	// never as a foreign key violation
	svc, mock := newCouponService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := svc.GenerateBatch(context.Background(), 42, 10)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "companyId", vErr.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCompanies(t *testing.T) {
	svc, mock := newCouponService(t)

	mock.ExpectQuery("ORDER BY name").
		WithArgs("科技").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "腾讯科技"))

	companies, err := svc.ListCompanies(context.Background(), "科技")
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "腾讯科技", companies[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
