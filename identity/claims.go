package identity

import (
	"strings"

	"github.com/jrsteele09/go-entra-webapp/internal/utils"
)

// Claims holds the identity-token claims returned by the provider. Routes treat
// it as opaque apart from the display fields exposed through Identity.
type Claims map[string]any

// String returns a string claim or "" when absent or of another type.
func (c Claims) String(name string) string {
	if v, ok := c[name].(string); ok {
		return v
	}
	return ""
}

// Strings returns a multi-valued claim. A single string is returned as a one
// element slice.
func (c Claims) Strings(name string) []string {
	switch v := c[name].(type) {
	case []string:
		return v
	case []any:
		return utils.ToStringSlice(v)
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Empty reports whether there is nothing that identifies a user.
func (c Claims) Empty() bool {
	return len(c) == 0
}

// Identity is the view model derived from claims for rendering.
type Identity struct {
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	JobTitle          string   `json:"job_title,omitempty"`
	Subject           string   `json:"sub,omitempty"`
	ObjectID          string   `json:"oid,omitempty"`
	TenantID          string   `json:"tid,omitempty"`
	Email             string   `json:"email,omitempty"`
	Roles             []string `json:"roles,omitempty"`
}

// Identity extracts the display fields.
func (c Claims) Identity() Identity {
	jobTitle := c.String("job_title")
	if jobTitle == "" {
		jobTitle = c.String("jobTitle")
	}
	email := c.String("email")
	if email == "" && strings.Contains(c.String("preferred_username"), "@") {
		email = c.String("preferred_username")
	}
	return Identity{
		Name:              c.String("name"),
		PreferredUsername: c.String("preferred_username"),
		JobTitle:          jobTitle,
		Subject:           c.String("sub"),
		ObjectID:          c.String("oid"),
		TenantID:          c.String("tid"),
		Email:             email,
		Roles:             c.Strings("roles"),
	}
}

// DisplayName is the best human readable label available.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.PreferredUsername != "":
		return i.PreferredUsername
	default:
		return i.Subject
	}
}
