package account

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
)

var (
	tokenSalt = []byte("resultsportal.core.account.token_gen")
	tsEncoder = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes the UID of `acc` for use in links.
func EncodeUID(acc Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acc.UID))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TokenGenerator makes and checks password reset tokens.
// A token is invalidated by a password change or a new login.
type TokenGenerator struct {
	secretKey []byte
	timeout   time.Duration
}

func NewTokenGenerator(secretKey string, timeout time.Duration) TokenGenerator {
	return TokenGenerator{secretKey: []byte(secretKey), timeout: timeout}
}

// MakeToken generates a password reset token for `acc`.
func (tg TokenGenerator) MakeToken(acc Account) (string, error) {
	return tg.makeTokenWithTimestamp(acc, numDaysSince2001(core.NowFunc()))
}

// VerifyToken checks that `token` is a valid password reset token for `acc`.
func (tg TokenGenerator) VerifyToken(acc Account, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := tsEncoder.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that the token has not been tampered with
	want, err := tg.makeTokenWithTimestamp(acc, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	if numDaysSince2001(core.NowFunc())-ts > int(tg.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (tg TokenGenerator) makeTokenWithTimestamp(acc Account, ts int) (string, error) {
	sig, err := tg.sign(hashValue(acc, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsEncoder.EncodeToString([]byte(strconv.Itoa(ts))), sig), nil
}

func (tg TokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), tg.secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(acc Account, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(acc.UID)
	val.Write(acc.PasswordHash)
	if !acc.PasswordChangedAt.IsZero() {
		val.WriteString(strconv.FormatInt(acc.PasswordChangedAt.UnixMilli(), 10))
	}
	if !acc.LastLogin.IsZero() {
		val.WriteString(strconv.FormatInt(acc.LastLogin.Unix(), 10))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
