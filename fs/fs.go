package appfs

import "embed"

// FS embeds the database migrations so the binary can migrate itself
// without a checkout of the repository.
//go:embed migrations
var FS embed.FS
