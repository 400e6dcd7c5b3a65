// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ManuGH/settingsd/internal/store"
)

// DocumentChecker loads the settings document. A file that does not parse is
// degraded rather than unhealthy: the front end still starts on defaults.
type DocumentChecker struct {
	load func(ctx context.Context) error
}

// NewDocumentChecker wraps a load function, typically a Store's Load.
func NewDocumentChecker(load func(ctx context.Context) error) *DocumentChecker {
	return &DocumentChecker{load: load}
}

func (c *DocumentChecker) Name() string {
	return "config_document"
}

func (c *DocumentChecker) Check(ctx context.Context) CheckResult {
	err := c.load(ctx)
	switch {
	case err == nil:
		return CheckResult{Status: StatusHealthy, Message: "document loads"}
	case errors.Is(err, store.ErrParse):
		return CheckResult{Status: StatusDegraded, Message: "document does not parse, defaults in use", Error: store.PublicMessage(err)}
	default:
		return CheckResult{Status: StatusUnhealthy, Error: store.PublicMessage(err)}
	}
}

// WritableDirChecker verifies that saves can create files in dir. A missing
// directory is fine as long as the nearest existing ancestor is writable.
// Reports never name the directory.
type WritableDirChecker struct {
	dir string
}

// NewWritableDirChecker creates a checker for the settings directory.
func NewWritableDirChecker(dir string) *WritableDirChecker {
	return &WritableDirChecker{dir: dir}
}

func (c *WritableDirChecker) Name() string {
	return "config_dir_writable"
}

func (c *WritableDirChecker) Check(_ context.Context) CheckResult {
	dir := c.dir
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return CheckResult{Status: StatusUnhealthy, Error: "not a directory"}
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return CheckResult{Status: StatusUnhealthy, Error: store.PublicMessage(err)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return CheckResult{Status: StatusUnhealthy, Error: "no existing ancestor"}
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".settingsd-check-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: store.PublicMessage(err)}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	if dir != c.dir {
		return CheckResult{Status: StatusHealthy, Message: "created on first save"}
	}
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}
