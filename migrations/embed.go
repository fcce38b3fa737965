// Package migrations embeds the SQL schema so binaries can migrate without
// shipping the directory.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed *.sql
var FS embed.FS

// Source returns the migrations in dir when dir is an existing directory,
// and the embedded set otherwise. The second result names the choice.
func Source(dir string) (fs.FS, string) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir), dir
		}
	}
	return FS, "embedded"
}
