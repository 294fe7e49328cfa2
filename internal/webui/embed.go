package webui

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/lucke/calcutta-web/internal/util/mergefs"
)

//go:embed static
var staticData embed.FS

//go:embed template
var templates embed.FS

// staticFS returns the static files to serve. Files from dir, if given, take precedence over the
// built-in ones.
func staticFS(dir string) (fs.FS, error) {
	our, err := fs.Sub(staticData, "static")
	if err != nil {
		return nil, fmt.Errorf("sub: %w", err)
	}
	if dir == "" {
		return our, nil
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%v is not a directory", dir)
	}
	return mergefs.New(os.DirFS(dir), our), nil
}
