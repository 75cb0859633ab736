package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"couponverify/internal/api/middleware"
	"couponverify/internal/service"
)

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type AuthHandler struct {
	service *service.AuthService
	logger  zerolog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeFailure(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidCredentials):
			writeFailure(w, http.StatusUnauthorized, err.Error())
		case service.IsTransient(err):
			writeFailure(w, http.StatusServiceUnavailable, "服务暂时不可用，请稍后重试")
		default:
			h.logger.Error().Err(err).Msg("login failed")
			writeFailure(w, http.StatusInternalServerError, "服务器错误")
		}
		return
	}

	writeSuccess(w, "登录成功", map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":    user.ID,
			"phone": user.Phone,
		},
	})
}

// VerifyToken handles GET /api/auth/verify
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "访问令牌缺失")
		return
	}
	writeSuccess(w, "令牌有效", map[string]interface{}{
		"user": map[string]interface{}{
			"userId": claims.UserID,
			"phone":  claims.Phone,
		},
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless; the client
// discards its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "退出成功", nil)
}
