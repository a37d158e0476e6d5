package service

import (
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenLifetime is assumed when the provider declares none.
const defaultTokenLifetime = 24 * time.Hour

// tokenLifetime returns how long a freshly issued token may be cached.
// The declared lifetime comes from expires_in, else from the JWT exp claim,
// else defaultTokenLifetime; margin is then subtracted, or the lifetime is
// halved when it is not larger than margin.
func tokenLifetime(grant *domain.TokenGrant, margin time.Duration, now time.Time) time.Duration {
	lifetime := time.Duration(grant.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = jwtLifetime(grant.AccessToken, now)
	}
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	if lifetime > margin {
		return lifetime - margin
	}
	return lifetime / 2
}

// jwtLifetime reads the exp claim without verifying the signature: the
// token is only forwarded, never trusted here.
func jwtLifetime(token string, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Time.Sub(now)
}
