package validator

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"smartephone/internal/repository"
	"smartephone/internal/usecase"

	"github.com/rs/zerolog"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcryptの上限
	maxUsernameLen = 100
)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, username string, email string, password string) error {
	// 必須チェック
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "All fields are required!")
	}
	if len(username) > maxUsernameLen {
		return usecase.NewHTTPError(http.StatusBadRequest, "username too long")
	}
	if !isEmailLike(email) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if err := v.ValidatePassword(ctx, password); err != nil {
		return err
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "User already exists")
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("lookup email failed")
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "All fields are required!")
	}
	if !isEmailLike(email) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	return nil
}

func (v *authValidator) ValidatePassword(ctx context.Context, password string) error {
	if password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "Password required")
	}
	if len(password) < minPasswordLen {
		return usecase.NewHTTPError(http.StatusBadRequest, "password too short")
	}
	if len(password) > maxPasswordLen {
		return usecase.NewHTTPError(http.StatusBadRequest, "password too long")
	}
	return nil
}

// 表示名付き（"A <a@b.c>"）は受け付けない
func isEmailLike(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
