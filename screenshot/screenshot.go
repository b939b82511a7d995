// Package screenshot finds the most recent screenshot written by the runner.
//
// The result is the latest known observation, not necessarily the screen at
// the moment an event was published: screenshots and events are produced
// independently.
package screenshot

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/testmesh/logging"
)

// DefaultDir is the runner's default execution output directory.
const DefaultDir = "execution_output"

// Locator returns the path of the latest screenshot or "" if none is known.
type Locator interface {
	Latest() string
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() string

// Latest implements Locator.
func (f LocatorFunc) Latest() string { return f() }

// None is a Locator that never finds a screenshot.
var None Locator = LocatorFunc(func() string { return "" })

// IsImage reports whether name has a screenshot extension (.png, .jpg, .jpeg).
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// DirLocator scans a directory on every call and returns the image with the
// newest modification time. Ties are broken by name.
type DirLocator struct {
	Dir    string
	Logger logging.Logger
}

// NewDirLocator creates a DirLocator for dir (DefaultDir if empty).
func NewDirLocator(dir string, logger logging.Logger) *DirLocator {
	if dir == "" {
		dir = DefaultDir
	}
	return &DirLocator{Dir: dir, Logger: logging.OrNoOp(logger)}
}

// Latest implements Locator.
func (l *DirLocator) Latest() string {
	path, _ := scan(l.Dir, logging.OrNoOp(l.Logger))
	return path
}

func scan(dir string, logger logging.Logger) (string, time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("screenshot.scan.failed", "dir", dir, "error", err.Error())
		}
		return "", time.Time{}
	}

	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if best == "" || mod.After(bestMod) || (mod.Equal(bestMod) && e.Name() > filepath.Base(best)) {
			best = filepath.Join(dir, e.Name())
			bestMod = mod
		}
	}
	return best, bestMod
}
