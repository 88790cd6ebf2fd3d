package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static templates
var assets embed.FS

// assetDir exposes one top level directory of the embedded assets.
func assetDir(dir string) http.FileSystem {
	sub, err := fs.Sub(assets, dir)
	if err != nil {
		panic("web: embedded asset directory " + dir + ": " + err.Error())
	}

	return http.FS(sub)
}
