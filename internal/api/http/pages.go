package http

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	indexPage       = "index.html"
	pageContentType = "text/html; charset=utf-8"
)

var errNotPage = errors.New("not an html page")

// Page serves a host page with its legacy embeds upgraded to sandboxed frames.
// Frames are registered under the page's cleaned relative path.
func (h *Handlers) Page(c *gin.Context) {
	page, err := resolvePage(c.Param("path"))
	if err != nil {
		h.pageServed("not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	f, err := os.Open(filepath.Join(h.pagesDir, filepath.FromSlash(page)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.pageServed("not_found")
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
			return
		}
		h.pageServed("error")
		h.logger.Error("failed to open page", zap.String("page", page), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read page"})
		return
	}
	defer f.Close()

	// pages are re-encoded as UTF-8 whatever their declared charset
	src, err := charset.NewReader(f, "text/html")
	if err != nil {
		h.pageServed("error")
		h.logger.Error("failed to decode page", zap.String("page", page), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode page"})
		return
	}

	var buf bytes.Buffer
	res, err := h.upgrader.Upgrade(&buf, src, page)
	if err != nil {
		h.pageServed("error")
		h.logger.Error("failed to upgrade page", zap.String("page", page), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade page"})
		return
	}

	h.logger.Debug("page served",
		zap.String("page", page),
		zap.Int("upgraded", res.Upgraded),
		zap.Int("frames", len(res.Frames)),
	)
	h.pageServed("ok")
	c.Header("Cache-Control", "no-store")
	c.Header("Vary", "Accept-Encoding")

	if !acceptsGzip(c.GetHeader("Accept-Encoding")) {
		c.Data(http.StatusOK, pageContentType, buf.Bytes())
		return
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(buf.Bytes()); err == nil && zw.Close() == nil {
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, pageContentType, gz.Bytes())
		return
	}
	c.Data(http.StatusOK, pageContentType, buf.Bytes())
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// resolvePage maps a request path to a slash-separated path inside the pages
// directory. Directory requests resolve to their index page.
func resolvePage(p string) (string, error) {
	dirRequest := p == "" || strings.HasSuffix(p, "/")
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if dirRequest {
		cleaned = path.Join(cleaned, indexPage)
	}

	switch strings.ToLower(path.Ext(cleaned)) {
	case ".html", ".htm":
		return cleaned, nil
	default:
		return "", errNotPage
	}
}

func (h *Handlers) pageServed(status string) {
	if h.metrics != nil {
		h.metrics.RecordPageServed(status)
	}
}
