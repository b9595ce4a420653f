package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	tokenSalt = []byte("ozgeshe.core.user.password_reset")
	nowFunc   = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator makes and checks password reset tokens of the form "<issued at, base36>-<hmac>".
// The HMAC covers the account state a reset must not survive: password hash, email, last login
// and active flag. Changing any of them invalidates every outstanding token.
type tokenGenerator struct {
	secretKey []byte
	timeout   time.Duration
}

func encodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

func (g tokenGenerator) makeToken(usr User) string {
	return g.tokenAt(usr, nowFunc().Unix())
}

func (g tokenGenerator) verifyToken(usr User, token string) error {
	issued, sig, ok := strings.Cut(token, "-")
	if !ok || issued == "" || sig == "" {
		return errInvalidToken
	}
	ts, err := strconv.ParseInt(issued, 36, 64)
	if err != nil || ts <= 0 {
		return errInvalidToken
	}

	if !hmac.Equal([]byte(g.tokenAt(usr, ts)), []byte(token)) {
		return errInvalidToken
	}
	if nowFunc().Sub(time.Unix(ts, 0)) > g.timeout {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) tokenAt(usr User, ts int64) string {
	issued := strconv.FormatInt(ts, 36)

	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), g.secretKey...))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	mac.Write([]byte(usr.Email))
	if usr.LastLogin.Valid {
		mac.Write([]byte(usr.LastLogin.Time.UTC().Format(time.RFC3339Nano)))
	}
	mac.Write([]byte(strconv.FormatBool(usr.IsActive)))
	mac.Write([]byte(issued))
	return issued + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
