package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const ephemeralKeyBits = 2048

var errNotRSA = errors.New("key is not RSA")

func readPEM(path, what string) (*pem.Block, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s key %s: %w", what, path, err)
	}
	return decodePEM(b, what)
}

func decodePEM(b []byte, what string) (*pem.Block, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s key", what)
	}
	return block, nil
}

// ParseRSAPrivateKeyPEM accepts PKCS#8 and PKCS#1 blocks
func ParseRSAPrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	block, err := decodePEM(b, "private")
	if err != nil {
		return nil, err
	}
	return privateFromBlock(block)
}

// ParseRSAPublicKeyPEM accepts PKIX and PKCS#1 blocks
func ParseRSAPublicKeyPEM(b []byte) (*rsa.PublicKey, error) {
	block, err := decodePEM(b, "public")
	if err != nil {
		return nil, err
	}
	return publicFromBlock(block)
}

func privateFromBlock(block *pem.Block) (*rsa.PrivateKey, error) {
	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errNotRSA
		}
		return rsaKey, nil
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported private key block %q", block.Type)
	}
}

func publicFromBlock(block *pem.Block) (*rsa.PublicKey, error) {
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKIX public key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errNotRSA
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported public key block %q", block.Type)
	}
}

// loadKeyPair reads both halves and checks that they belong together
func loadKeyPair(privPath, pubPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privBlock, err := readPEM(privPath, "private")
	if err != nil {
		return nil, nil, err
	}
	priv, err := privateFromBlock(privBlock)
	if err != nil {
		return nil, nil, err
	}

	pubBlock, err := readPEM(pubPath, "public")
	if err != nil {
		return nil, nil, err
	}
	pub, err := publicFromBlock(pubBlock)
	if err != nil {
		return nil, nil, err
	}

	if !priv.PublicKey.Equal(pub) {
		return nil, nil, errors.New("public key does not match private key")
	}
	return priv, pub, nil
}
