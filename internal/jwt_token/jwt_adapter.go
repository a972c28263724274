package jwttoken

import (
	"dealflow/internal/platform/middleware"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

func ToMiddlewareClaims(claims *Claims) (*middleware.JWTClaims, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no valid user")
	}
	return &middleware.JWTClaims{
		UserID: userID,
		JTI:    claims.ID,
	}, nil
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}
