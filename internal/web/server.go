package web

import (
	"net/http"
	"path"
	"strings"
)

const indexPage = "/index.html"

// Server serves the files under Dir. Directory requests fall back to
// index.html and then to a listing, as http.FileServer does.
type Server struct {
	Dir string
}

func (s *Server) Handler() http.Handler {
	root := http.Dir(s.Dir)
	files := http.FileServer(root)
	return NoCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// http.FileServer redirects .../index.html to .../; serve it in place.
		if strings.HasSuffix(r.URL.Path, indexPage) && serveIndex(w, r, root) {
			return
		}
		files.ServeHTTP(w, r)
	}))
}

func serveIndex(w http.ResponseWriter, r *http.Request, root http.FileSystem) bool {
	f, err := root.Open(path.Clean("/" + r.URL.Path))
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
