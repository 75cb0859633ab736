package service

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"couponverify/internal/auth"
	"couponverify/internal/models"
)

type UserRepo interface {
	FindActiveByPhone(ctx context.Context, phone string) (*models.User, error)
}

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

type AuthService struct {
	userRepo  UserRepo
	jwtSecret string
}

func NewAuthService(userRepo UserRepo, jwtSecret string) *AuthService {
	return &AuthService{userRepo: userRepo, jwtSecret: jwtSecret}
}

// Login verifies the phone/password pair against the active users and issues
// a bearer token.
func (s *AuthService) Login(ctx context.Context, phone, password string) (string, *models.User, error) {
	if phone == "" || password == "" {
		return "", nil, &ValidationError{Field: "phone", Message: "手机号和密码不能为空"}
	}
	if !phonePattern.MatchString(phone) {
		return "", nil, &ValidationError{Field: "phone", Message: "手机号格式不正确"}
	}

	user, err := s.userRepo.FindActiveByPhone(ctx, phone)
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Phone, s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}
