// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a token stays valid; 0 means no exp claim.
	tokenTTL time.Duration
)

// Claims is what a valid session token resolves to.
type Claims struct {
	PlayerID      uuid.UUID
	SessionHandle string
}

// Init generates a fresh ed25519 key pair. Tokens do not survive a restart.
func Init(ttl time.Duration) error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	tokenTTL = ttl
	return nil
}

// InitFromSeed derives the key pair from a hex-encoded 32-byte seed so every server instance
// accepts the same tokens.
func InitFromSeed(seedHex string, ttl time.Duration) error {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return fmt.Errorf("decode session key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("session key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	privateKey = ed25519.NewKeyFromSeed(seed)
	publicKey = privateKey.Public().(ed25519.PublicKey)
	tokenTTL = ttl
	return nil
}

// CreateJWT signs a token with "sub" = player id and "sid" = the durable session handle.
func CreateJWT(playerID uuid.UUID, sessionHandle string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playerID.String(),
		"sid": sessionHandle,
		"iat": time.Now().Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token string and returns its claims.
func AuthenticateJWT(tokenString string) (Claims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("missing sub in jwt")
	}
	playerID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid player id in jwt: %w", err)
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return Claims{}, fmt.Errorf("missing sid in jwt")
	}
	return Claims{PlayerID: playerID, SessionHandle: sid}, nil
}
