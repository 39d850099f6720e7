package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"todoapp/internal/domain/errors"

	"github.com/gin-gonic/gin"
)

// serveStatic answers everything that is neither an API call nor a route of
// its own: an existing file under the public directory, or the SPA entry
// document so the client can route itself.
func (s *EdgeServer) serveStatic(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodGet && ctx.Request.Method != http.MethodHead {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		return
	}

	if name, ok := s.resolveStatic(ctx.Request.URL.Path); ok {
		s.serveFile(ctx, name)
		return
	}
	s.serveFile(ctx, s.indexPath())
}

func (s *EdgeServer) indexPath() string {
	return filepath.Join(s.cfg.PublicDir, s.cfg.IndexFile)
}

// resolveStatic maps a URL path onto a regular file inside the public
// directory. Cleaning against "/" keeps ".." from escaping it.
func (s *EdgeServer) resolveStatic(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		return "", false
	}
	full := filepath.Join(s.cfg.PublicDir, filepath.FromSlash(clean))

	info, err := os.Stat(full)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		index := filepath.Join(full, s.cfg.IndexFile)
		if fi, err := os.Stat(index); err == nil && !fi.IsDir() {
			return index, true
		}
		return "", false
	}
	return full, true
}

func (s *EdgeServer) serveFile(ctx *gin.Context, name string) {
	f, err := os.Open(name)
	if err != nil {
		s.logger.Error("static file unavailable", "file", name, "err", err)
		ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		return
	}
	http.ServeContent(ctx.Writer, ctx.Request, info.Name(), info.ModTime(), f)
}
