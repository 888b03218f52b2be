package repository

import (
	"context"
	"errors"

	"smartephone/internal/domain/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

type UserRepository interface {
	// emailが既にあればErrDuplicateEmail
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// emailは呼び出し側で小文字化済み
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// username/password/last_login_atなど。token_versionは書かない
	Update(ctx context.Context, user *model.User) error
	// 発行済みトークンを全部無効にする
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
