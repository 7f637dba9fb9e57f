package session

import (
	"crypto/sha256"
	"io"

	"github.com/gorilla/securecookie"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the browser cookie that references the server-side session.
const CookieName = "session_id"

const cookieKeyInfo = "session-cookie-mac"

// CookieCodec signs session ids so that a forged or altered cookie is
// indistinguishable from no cookie at all.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

// NewCookieCodec derives the hash key from the application secret. Values
// older than maxAge are rejected; zero keeps securecookie's default.
func NewCookieCodec(secret string, maxAge int) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("secret key is required")
	}
	hashKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), hashKey); err != nil {
		return nil, errors.Wrap(err, "derive cookie key")
	}

	sc := securecookie.New(hashKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	if maxAge > 0 {
		sc.MaxAge(maxAge)
	}
	return &CookieCodec{sc: sc}, nil
}

// Encode returns the cookie value for id.
func (c *CookieCodec) Encode(id string) (string, error) {
	value, err := c.sc.Encode(CookieName, id)
	if err != nil {
		return "", errors.Wrap(err, "encode session cookie")
	}
	return value, nil
}

// Decode returns the id carried by value, or false if it was not produced by
// this codec or has aged out.
func (c *CookieCodec) Decode(value string) (string, bool) {
	var id string
	if err := c.sc.Decode(CookieName, value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}
