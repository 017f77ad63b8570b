// Package activation implements a managed symlink farm under a configured
// link root exposing store contents at standard filesystem locations.
// Grounded on dep's use of karrick/godirwalk for allocation-light
// filesystem traversal (vendor/github.com/karrick/godirwalk), here walking
// a potentially large link farm to find orphaned symlinks.
package activation

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"

	"pax/internal/db"
	"pax/internal/pkgerrors"
)

// Link pairs a link path (relative to the link root) with the store path
// it should point at.
type Link struct {
	Path   string // relative to link root, e.g. "bin/curl"
	Target string // absolute path into the store, e.g. "<store>/<hash>/bin/curl"
}

// Layer activates and deactivates symlinks for installed packages under a
// single configured root.
type Layer struct {
	root string
	d    *db.DB
}

func New(root string, database *db.DB) *Layer {
	return &Layer{root: root, d: database}
}

// Activate creates a link for each entry of links, creating parent
// directories as needed. It fails atomically: if any target path already
// exists and is not owned by pkgName (per the database), no links are
// created and a ConflictError is returned.
func (l *Layer) Activate(pkgName string, links []Link) error {
	for _, link := range links {
		full := filepath.Join(l.root, link.Path)
		if fi, err := os.Lstat(full); err == nil {
			owner, ok, _ := l.d.FindFileOwner(link.Path)
			if fi.Mode()&os.ModeSymlink == 0 || !ok || owner != pkgName {
				return pkgerrors.New(pkgerrors.Conflict, "activation target %q already exists and is not owned by %s", link.Path, pkgName)
			}
		}
	}

	for _, link := range links {
		full := filepath.Join(l.root, link.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return pkgerrors.Wrap(pkgerrors.IO, err, "create parent directory for "+link.Path)
		}
		os.Remove(full) // clear a stale link from this same package, if any
		if err := os.Symlink(link.Target, full); err != nil {
			return pkgerrors.Wrap(pkgerrors.IO, err, "create symlink "+link.Path)
		}
	}
	return nil
}

// Deactivate removes every link previously recorded for pkgName (its
// symlink-typed files rows).
func (l *Layer) Deactivate(pkgName string) error {
	files, err := l.d.GetFiles(pkgName)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.Type != db.FileSymlink {
			continue
		}
		full := filepath.Join(l.root, f.Path)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return pkgerrors.Wrap(pkgerrors.IO, err, "remove symlink "+f.Path)
		}
	}
	return nil
}

// CleanupOrphaned walks the link root and removes every symlink whose
// owner cannot be identified in the database or whose target no longer
// exists, returning the relative paths it removed.
func (l *Layer) CleanupOrphaned() ([]string, error) {
	var removed []string
	err := godirwalk.Walk(l.root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if !de.IsSymlink() {
				return nil
			}
			rel, err := filepath.Rel(l.root, osPathname)
			if err != nil {
				return err
			}

			_, owned, _ := l.d.FindFileOwner(rel)
			targetExists := false
			if target, err := os.Readlink(osPathname); err == nil {
				if _, statErr := os.Stat(target); statErr == nil {
					targetExists = true
				}
			}

			if !owned || !targetExists {
				if err := os.Remove(osPathname); err != nil && !os.IsNotExist(err) {
					return err
				}
				removed = append(removed, rel)
			}
			return nil
		},
		ErrorCallback: func(osPathname string, err error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		if os.IsNotExist(err) {
			return removed, nil
		}
		return removed, pkgerrors.Wrap(pkgerrors.IO, err, "walk link root")
	}
	return removed, nil
}
