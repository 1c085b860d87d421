package migrations

import "embed"

// Files exposes embedded SQL migrations, one directory per driver, applied in
// lexicographical order.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS
