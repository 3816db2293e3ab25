package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken covers malformed, forged and expired download tokens.
var ErrInvalidToken = errors.New("invalid download token")

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token binding the entry to its stored key until expiry.
func (s *SignedURLSigner) Generate(entryID, key string) (string, time.Time, error) {
	if entryID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("entry id and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	signature := s.sign(entryID, ts, encodedKey)
	token := strings.Join([]string{entryID, ts, encodedKey, signature}, ".")
	return token, expiresAt, nil
}

// Verify checks token against the entry it is presented for.
func (s *SignedURLSigner) Verify(token, entryID, key string) error {
	tokenEntry, tokenKey, _, err := s.Parse(token, false)
	if err != nil {
		return err
	}
	if tokenEntry != entryID || tokenKey != key {
		return ErrInvalidToken
	}
	return nil
}

// Parse validates a token and returns the embedded metadata.
// When allowExpired is true, the timestamp check is skipped.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (entryID, key string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 || len(s.secret) == 0 {
		return "", "", time.Time{}, ErrInvalidToken
	}
	entryID, ts, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(entryID, ts, encodedKey)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, ErrInvalidToken
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	return entryID, string(rawKey), expiresAt, nil
}

func (s *SignedURLSigner) sign(entryID, ts, encodedKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(entryID + "|" + ts + "|" + encodedKey))
	return hex.EncodeToString(mac.Sum(nil))
}
