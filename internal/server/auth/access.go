package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

type accessTokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Use   string `json:"typ"`
	jwt.RegisteredClaims
}

// IssueAccess signs a short-lived access token for id.
func (i *TokenIssuer) IssueAccess(id models.Identity) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		Email: id.Email,
		Role:  id.Role,
		Use:   useAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := token.SignedString(i.accessKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess checks signature, algorithm, issuer, token use and expiry.
// Expired tokens yield common.ErrTokenExpired; every other defect yields
// common.ErrInvalidToken. Parser errors are never returned as is.
func (i *TokenIssuer) VerifyAccess(tokenString string) (*models.AccessClaims, error) {
	claims := &accessTokenClaims{}

	token, err := i.parser(jwt.WithExpirationRequired(), jwt.WithIssuedAt()).
		ParseWithClaims(tokenString, claims, i.keyFunc(i.accessKey))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.Use != useAccess || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &models.AccessClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
