package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/splitfair/splitfair/internal/apperr"
)

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

type Claims struct {
	UserID string `json:"uid"`
	Type   string `json:"typ"` // "access" | "refresh"
	jwt.RegisteredClaims
}

// GeneratePair issues an access and refresh token for the user.
func (tm *TokenManager) GeneratePair(userID string) (access, refresh string, accessExp time.Time, err error) {
	now := time.Now()

	accClaims := Claims{
		UserID: userID,
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTTL)),
		},
	}
	refClaims := Claims{
		UserID: userID,
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.refreshTTL)),
		},
	}

	access, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accClaims).SignedString(tm.accessSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refClaims).SignedString(tm.refreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, accClaims.ExpiresAt.Time, nil
}

// ParseAccess verifies an access token and returns its claims.
func (tm *TokenManager) ParseAccess(token string) (*Claims, error) {
	return tm.parse(token, tm.accessSecret, "access")
}

// ParseRefresh verifies a refresh token and returns its claims.
func (tm *TokenManager) ParseRefresh(token string) (*Claims, error) {
	return tm.parse(token, tm.refreshSecret, "refresh")
}

func (tm *TokenManager) parse(token string, secret []byte, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.Type != typ || claims.UserID == "" {
		return nil, apperr.Unauthorized("invalid token")
	}
	return claims, nil
}
