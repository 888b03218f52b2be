package token

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// アクセストークンから取り出す値
type Claims struct {
	UserID       int64
	Role         string
	TokenVersion int
}

// HS256以外・期限切れ・sub/role/tvが欠けたトークンはErrInvalidToken
func Verify(raw string, secret string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	tok, err := parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || tok == nil || !tok.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	userID, err := int64Claim(mc["sub"])
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%w: sub", ErrInvalidToken)
	}
	role, ok := mc["role"].(string)
	if !ok || role == "" {
		return Claims{}, fmt.Errorf("%w: role", ErrInvalidToken)
	}
	tv, err := int64Claim(mc["tv"])
	if err != nil || tv < 0 {
		return Claims{}, fmt.Errorf("%w: tv", ErrInvalidToken)
	}

	return Claims{UserID: userID, Role: role, TokenVersion: int(tv)}, nil
}

// JSONの数値はfloat64で来る。文字列のsubも受け付ける
func int64Claim(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("not a number")
	}
}
