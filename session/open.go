package session

import (
	"fmt"

	"github.com/jrsteele09/go-entra-webapp/internal/config"
)

// Open returns the store selected by configuration.
func Open(c config.SessionConfig) (Store, error) {
	switch c.GetSessionStore() {
	case config.StoreSQLite:
		return OpenSQLite(c.GetSQLitePath())
	case config.StoreMemory, "":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", c.GetSessionStore())
	}
}
