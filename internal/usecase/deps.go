package usecase

import (
	"context"
	"time"

	"smartephone/internal/domain/model"
	"smartephone/internal/domain/payment"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/crypto/bcrypt"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// 平文パスワードのハッシュ化と照合
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hashed string) bool
}

type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptPasswordHasher) Verify(plain string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// JWTを発行する約束
type TokenIssuer interface {
	Issue(user model.User, now time.Time) (token string, expiresAt time.Time, err error)
}

// 外部決済サービスで決済リンクを作る約束
type PaymentLinkCreator interface {
	CreateLink(ctx context.Context, in payment.LinkRequest) (payment.Link, error)
}

// 代引き注文の注文番号を作る約束
type OrderRefGenerator interface {
	NewRef() string
}

type ShortOrderRefGenerator struct{}

func (ShortOrderRefGenerator) NewRef() string {
	return "COD-" + shortuuid.New()
}
