// Package browse turns flat object keys into a folder/file view one delimiter
// level at a time, and searches that view for labels.
package browse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"s3labels/storage"
)

// Order selects how a listing is sorted.
type Order int

const (
	// OrderName sorts folders and files lexicographically.
	OrderName Order = iota
	// OrderNewest sorts by most recent modification first. Folder times come
	// from one extra probe per folder.
	OrderNewest
)

func (o Order) String() string {
	if o == OrderNewest {
		return "newest"
	}
	return "name"
}

// ParseOrder accepts "", "name" or "newest".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return OrderName, nil
	case "newest":
		return OrderNewest, nil
	default:
		return OrderName, fmt.Errorf("unknown sort order %q", s)
	}
}

const (
	// probeLimit bounds the single page read to date a folder.
	probeLimit = 1000
	// probeWorkers bounds concurrent folder probes.
	probeWorkers = 8
)

// Listing is one level of the virtual hierarchy under a prefix. Folder names
// are relative to the prefix with no delimiter; files are full keys.
type Listing struct {
	Folders []string `json:"folders"`
	Files   []string `json:"files"`
}

type entry struct {
	name     string // folder name, or full key for files
	modified time.Time
}

type level struct {
	folders []entry
	files   []entry
}

type Lister struct {
	backend storage.Backend
}

func NewLister(backend storage.Backend) *Lister {
	return &Lister{backend: backend}
}

// List returns the immediate folders and files under prefix. A non-empty prefix
// is treated as a folder: "2026" lists the same level as "2026/".
func (l *Lister) List(ctx context.Context, bucket, prefix string, order Order) (Listing, error) {
	lvl, err := l.level(ctx, bucket, prefix, order)
	if err != nil {
		return Listing{}, err
	}

	listing := Listing{
		Folders: make([]string, 0, len(lvl.folders)),
		Files:   make([]string, 0, len(lvl.files)),
	}
	for _, f := range lvl.folders {
		listing.Folders = append(listing.Folders, f.name)
	}
	for _, f := range lvl.files {
		listing.Files = append(listing.Files, f.name)
	}
	return listing, nil
}

// ChildPrefix joins a folder name from a Listing back onto its parent prefix.
func ChildPrefix(prefix, folder string) string {
	return prefix + folder + storage.Delimiter
}

// ParentPrefix returns the prefix one level up, or "" at the root.
func ParentPrefix(prefix string) string {
	p := strings.TrimSuffix(prefix, storage.Delimiter)
	i := strings.LastIndex(p, storage.Delimiter)
	if i < 0 {
		return ""
	}
	return p[:i+1]
}

// BaseName is the last path segment of a key.
func BaseName(key string) string {
	return key[strings.LastIndex(key, storage.Delimiter)+1:]
}

// FolderPrefix makes a non-empty prefix end in the delimiter.
func FolderPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, storage.Delimiter) {
		return prefix
	}
	return prefix + storage.Delimiter
}

func (l *Lister) level(ctx context.Context, bucket, prefix string, order Order) (*level, error) {
	prefix = FolderPrefix(prefix)
	objects, prefixes, err := l.backend.ListLevel(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	lvl := &level{}
	seen := make(map[string]struct{}, len(prefixes))
	for _, cp := range prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), storage.Delimiter)
		if name == "" || strings.Contains(name, storage.Delimiter) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		lvl.folders = append(lvl.folders, entry{name: name})
	}

	for _, obj := range objects {
		if obj.Key == prefix || !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		if strings.Contains(obj.Key[len(prefix):], storage.Delimiter) {
			continue
		}
		lvl.files = append(lvl.files, entry{name: obj.Key, modified: obj.LastModified})
	}

	if order == OrderNewest {
		if err := l.dateFolders(ctx, bucket, prefix, lvl.folders); err != nil {
			return nil, err
		}
		sortNewest(lvl.folders)
		sortNewest(lvl.files)
	} else {
		sortByName(lvl.folders)
		sortByName(lvl.files)
	}
	return lvl, nil
}

// dateFolders fills in each folder's modification time from its newest child.
func (l *Lister) dateFolders(ctx context.Context, bucket, prefix string, folders []entry) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeWorkers)

	for i := range folders {
		g.Go(func() error {
			t, err := l.NewestChild(ctx, bucket, ChildPrefix(prefix, folders[i].name))
			if err != nil {
				return err
			}
			folders[i].modified = t
			return nil
		})
	}
	return g.Wait()
}

// NewestChild returns the latest modification time among the first page of
// objects under folderPrefix, or the zero time if it is empty.
func (l *Lister) NewestChild(ctx context.Context, bucket, folderPrefix string) (time.Time, error) {
	objects, err := l.backend.ListObjects(ctx, bucket, folderPrefix, probeLimit)
	if err != nil {
		return time.Time{}, err
	}

	var newest time.Time
	for _, obj := range objects {
		if obj.LastModified.After(newest) {
			newest = obj.LastModified
		}
	}
	log.WithFields(log.Fields{"prefix": folderPrefix, "newest": newest}).Debug("probed folder")
	return newest, nil
}

func sortByName(entries []entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
}

// sortNewest orders by time descending; unknown times go last, ties by name.
func sortNewest(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.modified.IsZero() != b.modified.IsZero() {
			return b.modified.IsZero()
		}
		if !a.modified.Equal(b.modified) {
			return a.modified.After(b.modified)
		}
		return a.name < b.name
	})
}
