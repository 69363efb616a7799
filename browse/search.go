package browse

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LabelExt is the extension a search result must carry.
const LabelExt = ".png"

// ErrEmptyTerm is returned when a search is started without a term.
var ErrEmptyTerm = errors.New("search term must not be empty")

type Searcher struct {
	lister *Lister
}

func NewSearcher(lister *Lister) *Searcher {
	return &Searcher{lister: lister}
}

// Search walks the hierarchy under prefix depth-first, newest first. Files at a
// level are checked before any subfolder is entered; the first label whose
// basename contains term (case-insensitive) wins.
func (s *Searcher) Search(ctx context.Context, bucket, prefix, term string) (string, bool, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return "", false, ErrEmptyTerm
	}
	return s.search(ctx, bucket, prefix, term)
}

func (s *Searcher) search(ctx context.Context, bucket, prefix, term string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	lvl, err := s.lister.level(ctx, bucket, prefix, OrderNewest)
	if err != nil {
		return "", false, err
	}

	for _, f := range lvl.files {
		name := strings.ToLower(BaseName(f.name))
		if strings.HasSuffix(name, LabelExt) && strings.Contains(name, term) {
			return f.name, true, nil
		}
	}

	for _, f := range lvl.folders {
		key, found, err := s.search(ctx, bucket, ChildPrefix(prefix, f.name), term)
		if err != nil || found {
			return key, found, err
		}
	}
	return "", false, nil
}

// SearchNewest lists everything under prefix in one recursive pass and returns
// the most recently modified label whose full key contains term
// (case-insensitive), regardless of depth.
func (s *Searcher) SearchNewest(ctx context.Context, bucket, prefix, term string) (string, bool, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return "", false, ErrEmptyTerm
	}

	objects, err := s.lister.backend.ListObjects(ctx, bucket, prefix, 0)
	if err != nil {
		return "", false, err
	}

	var matches []entry
	for _, obj := range objects {
		key := strings.ToLower(obj.Key)
		if strings.HasSuffix(key, LabelExt) && strings.Contains(key, term) {
			matches = append(matches, entry{name: obj.Key, modified: obj.LastModified})
		}
	}
	log.WithFields(log.Fields{"prefix": prefix, "scanned": len(objects), "matches": len(matches)}).Debug("searched")

	if len(matches) == 0 {
		return "", false, nil
	}
	sortNewest(matches)
	return matches[0].name, true, nil
}
