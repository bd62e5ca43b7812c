package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/andreasstove999/labtest-storefront/internal/cache"
)

var ErrInvalidOTP = errors.New("invalid or expired code")

// MaxOTPAttempts is how many wrong guesses burn a pending code.
const MaxOTPAttempts = 5

// OTPStore keeps one pending numeric code per email, plus a counter of
// failed guesses against it.
type OTPStore struct {
	cache       cache.Cache
	ttl         time.Duration
	length      int
	maxAttempts int64
}

func NewOTPStore(c cache.Cache, ttl time.Duration, length int) *OTPStore {
	if length <= 0 {
		length = 6
	}
	return &OTPStore{cache: c, ttl: ttl, length: length, maxAttempts: MaxOTPAttempts}
}

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

func attemptsKey(email string) string { return otpKey(email) + ":attempts" }

// Issue generates a fresh code for email, replacing any earlier one.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := randomDigits(s.length)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, otpKey(email), []byte(code), s.ttl); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	if err := s.cache.Del(ctx, attemptsKey(email)); err != nil {
		return "", fmt.Errorf("reset otp attempts: %w", err)
	}
	return code, nil
}

// Verify consumes the code on success. A wrong code leaves it in place until
// maxAttempts wrong guesses have been made, then the code is dropped.
func (s *OTPStore) Verify(ctx context.Context, email, code string) error {
	key := otpKey(email)
	stored, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("load otp: %w", err)
	}
	if subtle.ConstantTimeCompare(stored, []byte(strings.TrimSpace(code))) != 1 {
		n, err := s.cache.Incr(ctx, attemptsKey(email), s.ttl)
		if err != nil {
			return fmt.Errorf("count otp attempt: %w", err)
		}
		if n >= s.maxAttempts {
			if err := s.cache.Del(ctx, key, attemptsKey(email)); err != nil {
				return fmt.Errorf("delete otp: %w", err)
			}
		}
		return ErrInvalidOTP
	}
	if err := s.cache.Del(ctx, key, attemptsKey(email)); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
