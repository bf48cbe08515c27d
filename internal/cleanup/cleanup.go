// Package cleanup retention-prunes old files from the managed data
// directories.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Cleaner deletes all but the newest files in each managed directory.
// Newness is by filename-descending sort, which is correct because both
// snapshot stamps and table names sort lexicographically.
type Cleaner struct {
	dirs []string
	exts []string
	keep int
	log  *zap.Logger
}

// New creates a Cleaner over dirs that manages files with the given
// extensions (e.g. ".json", ".csv") and retains the keep newest per
// directory.
func New(dirs []string, exts []string, keep int, log *zap.Logger) *Cleaner {
	return &Cleaner{dirs: dirs, exts: exts, keep: keep, log: log}
}

// Run prunes each directory independently. Deletion is immediate and
// irreversible; directories at or under the retention threshold are no-ops.
func (c *Cleaner) Run(ctx context.Context) error {
	for _, dir := range c.dirs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.pruneDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cleaner) pruneDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !c.managed(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if len(names) <= c.keep {
		c.log.Info("nothing to clean", zap.String("dir", dir), zap.Int("files", len(names)))
		return nil
	}

	old := names[c.keep:]
	for _, name := range old {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("removing %s: %w", filepath.Join(dir, name), err)
		}
	}

	c.log.Info("cleaned old files",
		zap.String("dir", dir),
		zap.Int("removed", len(old)),
		zap.Int("kept", c.keep))
	return nil
}

func (c *Cleaner) managed(name string) bool {
	for _, ext := range c.exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
