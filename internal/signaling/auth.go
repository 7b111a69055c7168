// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package signaling

import (
	"fmt"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token shape this node verifies on the signaling
// handshake. Token issuance is an external collaborator;
// this package only verifies what it's handed.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Verifier checks a client-presented access token against cfg.JWT.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   config.JWT
}

// NewVerifier builds a Verifier bound to secret and the configured
// issuer/audience/leeway.
func NewVerifier(secret []byte, cfg config.JWT) *Verifier {
	return &Verifier{secret: secret, issuer: cfg.Issuer, audience: cfg.Audience, leeway: cfg}
}

// Verify parses and validates tokenString, returning the embedded user id.
func (v *Verifier) Verify(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway.Leeway),
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", apierrors.Wrap(apierrors.Unauthorized, fmt.Sprintf("invalid access token: %v", err), err)
	}
	if claims.UserID == "" {
		return "", apierrors.New(apierrors.Unauthorized, "access token missing subject")
	}
	return claims.UserID, nil
}
