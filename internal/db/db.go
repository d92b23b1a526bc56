package db

import "database/sql"

// DB wraps the sql handle so stores depend on one local type.
type DB struct {
	*sql.DB
}
