// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec verifies the session tokens that carry a caller's dashboard
// capabilities.
//
// # Architecture
//
// Tokens are issued by the login service and signed with RS256; this package
// only holds the public key. The verified [SessionClaims] satisfy the
// results.Session capability check, so result categories never see the
// token itself.
package sec

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims represents the payload embedded inside a session token.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID           string `json:"uid"`
	Role             string `json:"rol"`
	SentencesAllowed bool   `json:"sen,omitempty"`
}

// CanListSentences reports whether the caller may list individual sentences.
// Researchers and above always may; others need the explicit claim. A nil
// session may not.
func (claims *SessionClaims) CanListSentences() bool {
	if claims == nil {
		return false
	}
	return claims.SentencesAllowed || UserRole(claims.Role).AtLeast(RoleResearcher)
}

// TokenVerifier checks RS256 session tokens against one public key.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	issuer    string
	now       func() time.Time
}

// NewTokenVerifier reads the PEM public key at publicKeyPath.
func NewTokenVerifier(publicKeyPath, issuer string) (*TokenVerifier, error) {
	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewTokenVerifierFromKey(publicKey, issuer), nil
}

// NewTokenVerifierFromKey builds a verifier around an already parsed key.
func NewTokenVerifierFromKey(publicKey *rsa.PublicKey, issuer string) *TokenVerifier {
	return &TokenVerifier{publicKey: publicKey, issuer: issuer, now: time.Now}
}

// VerifyToken checks the signature, issuer and expiry of a JWT string.
func (verifier *TokenVerifier) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return verifier.publicKey, nil
	},
		jwt.WithIssuer(verifier.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(verifier.now),
	)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
