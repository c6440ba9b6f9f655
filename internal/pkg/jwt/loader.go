// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string

	// Ephemeral signs with a key generated at startup; every restart
	// invalidates issued tokens. Development only.
	Ephemeral bool
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func LoadAndBuild(cfg Config) (*Manager, error) {
	if cfg.Ephemeral {
		priv, err := rsa.GenerateKey(rand.Reader, ephemeralKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		return NewManager(priv, &priv.PublicKey, cfg), nil
	}

	priv, pub, err := loadKeyPair(cfg.PrivPath, cfg.PubPath)
	if err != nil {
		return nil, err
	}
	return NewManager(priv, pub, cfg), nil
}

// NewManager builds a manager from keys already in memory.
func NewManager(priv *rsa.PrivateKey, pub *rsa.PublicKey, cfg Config) *Manager {
	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}
}
