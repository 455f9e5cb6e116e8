package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

type refreshTokenClaims struct {
	Use string `json:"typ"`
	jwt.RegisteredClaims
}

// SignRefresh seals {userID, sessionID, expiresAt} into a refresh envelope.
// expiresAt should be the session row's expiry.
func (i *TokenIssuer) SignRefresh(userID, sessionID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshTokenClaims{
		Use: useRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString(i.refreshKey)
}

// VerifyRefresh fully validates a refresh envelope, expiry included.
func (i *TokenIssuer) VerifyRefresh(tokenString string) (*models.RefreshClaims, error) {
	return i.parseRefresh(tokenString, i.parser(jwt.WithExpirationRequired(), jwt.WithIssuedAt()))
}

// InspectRefresh checks the signature, algorithm and shape of a refresh
// envelope but tolerates expiry. Logout uses it: deleting the row of an
// expired envelope is harmless, and a forged one never gets this far.
func (i *TokenIssuer) InspectRefresh(tokenString string) (*models.RefreshClaims, error) {
	return i.parseRefresh(tokenString, jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	))
}

func (i *TokenIssuer) parseRefresh(tokenString string, p *jwt.Parser) (*models.RefreshClaims, error) {
	claims := &refreshTokenClaims{}

	token, err := p.ParseWithClaims(tokenString, claims, i.keyFunc(i.refreshKey))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid ||
		claims.Use != useRefresh ||
		claims.Issuer != i.issuer ||
		claims.Subject == "" ||
		claims.ID == "" ||
		claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &models.RefreshClaims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
