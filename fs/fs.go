package appfs

import "embed"

// FS holds the SQL migrations and the email templates shipped with the binaries.
// `all:` keeps the `_base.*` layouts, which embed skips by default.
//go:embed migrations all:templates
var FS embed.FS
