package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"smartephone/internal/domain/model"
	"smartephone/internal/repository"

	"github.com/rs/zerolog"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, username string, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidatePassword(ctx context.Context, password string) error
}

type UserDTO struct {
	ID       int64  `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// register/login/パスワード変更の共通レスポンス
type AuthOutput struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    UserDTO          `json:"user"`
	Cart    []model.CartLine `json:"cart"`
}

type AuthUsecase struct {
	users     repository.UserRepository
	carts     repository.CartRepository
	validator AuthValidator
	hasher    PasswordHasher
	issuer    TokenIssuer
	clock     Clock
}

func NewAuthUsecase(
	users repository.UserRepository,
	carts repository.CartRepository,
	validator AuthValidator,
	hasher PasswordHasher,
	issuer TokenIssuer,
	clock Clock,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		carts:     carts,
		validator: validator,
		hasher:    hasher,
		issuer:    issuer,
		clock:     clock,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	//入力検証（email重複もここで弾く）
	if err := u.validator.ValidateRegister(ctx, in.Username, in.Email, in.Password); err != nil {
		return AuthOutput{}, err
	}

	//パスワードは必ずハッシュ化して保存
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	now := u.clock.Now()
	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.users.Create(ctx, user); err != nil {
		//validatorの後に同じemailが入った場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "email already registered")
		}
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	token, _, err := u.issuer.Issue(*user, now)
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("user registered")

	return AuthOutput{
		Message: "Registration successful",
		Token:   token,
		User:    toUserDTO(user),
		Cart:    []model.CartLine{},
	}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := u.validator.ValidateLogin(ctx, in.Email, in.Password); err != nil {
		return AuthOutput{}, err
	}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return AuthOutput{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	if !u.hasher.Verify(in.Password, user.PasswordHash) {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	now := u.clock.Now()

	//last_loginの更新失敗ではログインを止めない
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := u.users.Update(ctx, user); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", user.ID).Msg("update last login failed")
	}

	token, _, err := u.issuer.Issue(*user, now)
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	//保存済みカートも一緒に返す
	lines := []model.CartLine{}
	cart, err := u.carts.FindByUserID(ctx, user.ID)
	switch {
	case err == nil:
		lines = cart.Items
	case errors.Is(err, repository.ErrNotFound):
	default:
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	return AuthOutput{
		Message: "Login successful",
		Token:   token,
		User:    toUserDTO(user),
		Cart:    lines,
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (UserDTO, error) {
	if userID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return UserDTO{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	return toUserDTO(user), nil
}

// パスワード変更。token_versionを上げるので古いトークンは使えなくなる
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID int64, password string) (AuthOutput, error) {
	if userID <= 0 {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.ValidatePassword(ctx, password); err != nil {
		return AuthOutput{}, err
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return AuthOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	hashed, err := u.hasher.Hash(password)
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	now := u.clock.Now()
	user.PasswordHash = hashed
	user.UpdatedAt = now
	if err := u.users.Update(ctx, user); err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	if err := u.users.IncrementTokenVersion(ctx, userID); err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	user.TokenVersion++

	token, _, err := u.issuer.Issue(*user, now)
	if err != nil {
		return AuthOutput{}, wrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("password changed")

	return AuthOutput{
		Message: "Password updated successfully",
		Token:   token,
		User:    toUserDTO(user),
		Cart:    []model.CartLine{},
	}, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}
