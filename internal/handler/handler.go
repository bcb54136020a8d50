package handler

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/bluele/gcache"

	"transitmon/internal/config"
	"transitmon/internal/coordinator"
	"transitmon/internal/storage"
	"transitmon/internal/templates"
)

const (
	maxSearchSessions = 256
	searchSessionTTL  = 30 * time.Minute
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	db       *storage.DB
	manager  *coordinator.Manager
	cfg      *config.Config
	logger   *slog.Logger
	sessions gcache.Cache // search session id -> *search.Engine
	version  string       // content hash of static assets, for cache busting
	now      func() time.Time
}

// New creates a Handler. static holds the assets served under /static/.
func New(db *storage.DB, manager *coordinator.Manager, cfg *config.Config, static fs.FS, logger *slog.Logger) *Handler {
	v := computeAssetVersion(static)
	logger.Info("asset version computed", "version", v)

	return &Handler{
		db:      db,
		manager: manager,
		cfg:     cfg,
		logger:  logger,
		sessions: gcache.New(maxSearchSessions).
			LRU().
			Expiration(searchSessionTTL).
			Build(),
		version: v,
		now:     time.Now,
	}
}

// computeAssetVersion hashes all CSS and JS files in static to produce a
// short version string. Changes to any file produce a new version.
func computeAssetVersion(static fs.FS) string {
	h := md5.New()
	var paths []string
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	sort.Strings(paths)
	for _, p := range paths {
		f, err := static.Open(p)
		if err != nil {
			continue
		}
		io.Copy(h, f)
		f.Close()
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:8]
}

// page creates a templates.Page with the asset version pre-filled.
func (h *Handler) page(title string) templates.Page {
	return templates.Page{Title: title, AssetVersion: h.version}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
