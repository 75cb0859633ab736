package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"couponverify/internal/api/middleware"
	"couponverify/internal/repository"
	"couponverify/internal/service"
)

// --- Request DTOs ---

type VerifyRequest struct {
	Code      string `json:"code"`
	CompanyID int    `json:"companyId"`
}

type BatchAddRequest struct {
	CompanyID int `json:"companyId"`
	Count     int `json:"count"`
}

const defaultRecordsLimit = 20

type CouponHandler struct {
	service *service.CouponService
	logger  zerolog.Logger
}

func NewCouponHandler(svc *service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{service: svc, logger: logger}
}

// ListCompanies handles GET /api/coupon/companies
func (h *CouponHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, "", companies)
}

// Verify handles POST /api/coupon/verify
func (h *CouponHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}
	if req.Code == "" || req.CompanyID == 0 {
		writeFailure(w, http.StatusBadRequest, "券码和企业不能为空")
		return
	}

	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "访问令牌缺失")
		return
	}

	receipt, err := h.service.Verify(r.Context(), req.Code, req.CompanyID, claims.Phone, clientIP(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, "核销成功", receipt)
}

// ListRecords handles GET /api/coupon/records
func (h *CouponHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.RecordFilter{Date: q.Get("date")}
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			writeFailure(w, http.StatusBadRequest, "日期格式不正确，应为YYYY-MM-DD")
			return
		}
	}
	if cid := q.Get("companyId"); cid != "" {
		id, err := strconv.Atoi(cid)
		if err != nil || id <= 0 {
			writeFailure(w, http.StatusBadRequest, "企业ID格式不正确")
			return
		}
		filter.CompanyID = id
	}

	page := intQuery(q.Get("page"), 1)
	limit := intQuery(q.Get("limit"), defaultRecordsLimit)

	records, err := h.service.ListRecords(r.Context(), filter, page, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, "", records)
}

// BatchAdd handles POST /api/coupon/batch-add
func (h *CouponHandler) BatchAdd(w http.ResponseWriter, r *http.Request) {
	req := BatchAddRequest{Count: 10}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	codes, err := h.service.GenerateBatch(r.Context(), req.CompanyID, req.Count)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("成功生成%d个券码", len(codes)), map[string]interface{}{"codes": codes})
}

// fail maps service errors onto the response envelope. Business failures get
// their precise message; infrastructure failures stay generic.
func (h *CouponHandler) fail(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	var usedErr *service.AlreadyUsedError
	switch {
	case errors.As(err, &vErr):
		writeFailure(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, service.ErrCouponNotFound):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &usedErr):
		writeFailure(w, http.StatusBadRequest, usedErr.Error())
	case service.IsTransient(err):
		writeFailure(w, http.StatusServiceUnavailable, "服务暂时不可用，请稍后重试")
	default:
		h.logger.Error().Err(err).Msg("coupon request failed")
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
	}
}

func intQuery(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}
