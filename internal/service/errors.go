package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrCouponNotFound covers both an unknown code and a code that belongs to a
// different company; callers must not be able to tell the two apart.
var ErrCouponNotFound = errors.New("券码不存在或企业不匹配")

var (
	ErrUserNotFound       = errors.New("手机号未注册或已被禁用")
	ErrInvalidCredentials = errors.New("密码错误")
)

// AlreadyUsedError carries the original redemption time for the user-facing
// message.
type AlreadyUsedError struct {
	UsedAt time.Time
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("券码已被使用，使用时间: %s", e.UsedAt.Format("2006-01-02 15:04:05"))
}

// ValidationError reports a malformed request field, detected before any
// transaction is opened.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsTransient reports whether err is a store failure worth retrying by the
// caller: connection loss, lock-wait timeout, deadlock, serialization failure.
// The engine itself never retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"57014": // query_canceled (statement timeout)
			return true
		}
		switch pqErr.Code.Class() {
		case "08", // connection exceptions
			"53": // insufficient resources
			return true
		}
	}
	return false
}
