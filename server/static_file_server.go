package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFiles embed.FS

// FileServerHandler serves the embedded assets under RouteStatic.
func FileServerHandler() http.Handler {
	return http.StripPrefix(RouteStatic, http.FileServer(http.FS(StaticFilesFS())))
}

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}
	return subFS
}

// StaticCacheMiddleware lets browsers keep assets for a day.
func (s *Server) StaticCacheMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next(w, r)
	}
}
