package user

import (
	"errors"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/smartsubmit/smartsubmit/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrTokenMissing = errors.New("no token provided")
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// Claims is the bearer-token payload: only the user id (subject) and expiry.
// Roles are deliberately not encoded so that a role revocation takes effect
// on the next request without reissuing tokens.
type Claims struct {
	jwt.StandardClaims
}

// TokenSource issues and verifies signed bearer tokens for users.
type TokenSource struct {
	secret []byte
	delta  time.Duration
	issuer string
}

func NewTokenSource(conf *core.Config) *TokenSource {
	return &TokenSource{
		secret: []byte(conf.SecretKey),
		delta:  conf.JWTExpirationDelta,
		issuer: conf.AppName,
	}
}

// Issue returns a signed token encoding usr's id with the configured expiry.
func (ts *TokenSource) Issue(usr User) (string, error) {
	now := NowFunc()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ts.issuer,
			Subject:   strconv.Itoa(usr.ID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ts.delta).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Verify checks the signature and expiry of a token and returns the user id
// it was issued for. An empty token fails with ErrTokenMissing; any
// signature, expiry or payload problem fails with ErrTokenInvalid.
//
// The HTTP layer verifies bearer tokens through echo's JWT middleware, which
// parses with the same key and Claims type; Verify is the canonical
// verification path for non-HTTP callers (CLIs, background jobs).
func (ts *TokenSource) Verify(tokenStr string) (int, error) {
	if tokenStr == "" {
		return 0, ErrTokenMissing
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return ts.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return 0, ErrTokenInvalid
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}
