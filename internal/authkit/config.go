package authkit

import "time"

// ServerConfig configures token signing and lifetimes.
type ServerConfig struct {
	JWTSigningKey []byte
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}
