package models

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext password into a storable digest and checks
// candidates against it.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// SHA256Hasher is the default scheme: a single unsalted SHA-256 pass,
// hex-encoded. Equal passwords always produce equal digests, which keeps
// stored data compatible but is not fit for protecting real credentials;
// use BcryptHasher for that.
type SHA256Hasher struct{}

func (SHA256Hasher) hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (h SHA256Hasher) Hash(password string) (string, error) {
	return h.hash(password), nil
}

func (h SHA256Hasher) Compare(hash, password string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(h.hash(password))) == 1
}

// BcryptHasher is the salted, adaptive scheme. Cost zero means
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HasherFor picks the scheme that produced hash.
func HasherFor(hash string) Hasher {
	if strings.HasPrefix(hash, "$2") {
		return BcryptHasher{}
	}
	return SHA256Hasher{}
}

// HasherByName maps a configured scheme name to its Hasher. Unknown names
// yield false.
func HasherByName(name string) (Hasher, bool) {
	switch name {
	case "", "sha256":
		return SHA256Hasher{}, true
	case "bcrypt":
		return BcryptHasher{}, true
	}
	return nil, false
}
