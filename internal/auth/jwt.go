package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

var ErrInvalidToken = fmt.Errorf("invalid session token: %w", apperr.ErrUnauthorized)

const issuerName = "store-service"

type Claims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue подписывает токен сессии (HS256) для пользователя.
func (i *Issuer) Issue(userID int64, staff bool) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Staff: staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse проверяет подпись и срок действия и возвращает вызывающего.
func (i *Issuer) Parse(tokenString string) (access.Caller, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return access.Caller{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return access.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return access.Caller{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return access.Caller{UserID: userID, Staff: claims.Staff}, nil
}
