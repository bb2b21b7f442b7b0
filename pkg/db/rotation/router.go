package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/edures/resourcedesk-backend/pkg/config"
)

// Router tracks a fixed ring of sqlite files and decides when the active one
// is full. It only routes; opening connections is the caller's job.
type Router struct {
	mu        sync.Mutex
	files     []string
	current   int
	sizeLimit int64
}

// FileStat describes one file in the ring for operational endpoints.
type FileStat struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	IsCurrent bool   `json:"is_current"`
	IsFull    bool   `json:"is_full"`
}

// NewRouter builds the ring from configuration. File one keeps the bare base
// name so existing single-file deployments keep working.
func NewRouter(cfg config.RotationConfig) (*Router, error) {
	if cfg.FileCount <= 0 {
		return nil, fmt.Errorf("rotation file count must be positive")
	}
	if cfg.SizeLimitBytes <= 0 {
		return nil, fmt.Errorf("rotation size limit must be positive")
	}
	files := make([]string, cfg.FileCount)
	for i := range files {
		name := cfg.BaseName + ".db"
		if i > 0 {
			name = fmt.Sprintf("%s%d.db", cfg.BaseName, i+1)
		}
		files[i] = filepath.Join(cfg.Dir, name)
	}
	return &Router{files: files, sizeLimit: cfg.SizeLimitBytes}, nil
}

// Current returns the path of the active file.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files[r.current]
}

// ShouldRotate reports whether the active file has crossed the size limit.
func (r *Router) ShouldRotate() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fileSize(r.files[r.current]) >= r.sizeLimit
}

// Advance moves to the next file in the ring and returns its path.
func (r *Router) Advance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = (r.current + 1) % len(r.files)
	return r.files[r.current]
}

// Stats returns size and status for every file in the ring.
func (r *Router) Stats() []FileStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make([]FileStat, len(r.files))
	for i, path := range r.files {
		size := fileSize(path)
		stats[i] = FileStat{
			Path:      path,
			SizeBytes: size,
			IsCurrent: i == r.current,
			IsFull:    size >= r.sizeLimit,
		}
	}
	return stats
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
