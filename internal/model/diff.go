package model

import "sort"

// PageDiff is the difference between two crawl runs of the same seed.
// Pages are compared by URL; a page present in both runs whose content
// hash differs is reported as changed.
type PageDiff struct {
	// Added contains URLs present only in the newer run.
	Added []string `json:"added"`

	// Removed contains URLs present only in the older run.
	Removed []string `json:"removed"`

	// Changed contains URLs whose content hash differs between runs.
	Changed []string `json:"changed"`

	// Unchanged is the number of URLs whose hash is identical.
	Unchanged int `json:"unchanged"`
}

// HasChanges reports whether the two runs differ at all.
func (d *PageDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// DiffPages compares the pages of an older and a newer run.
// All result slices are sorted.
func DiffPages(older, newer []*PageRecord) *PageDiff {
	oldHashes := make(map[string]string, len(older))
	for _, p := range older {
		oldHashes[p.URL] = p.Hash
	}

	diff := &PageDiff{
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
	}

	seen := make(map[string]struct{}, len(newer))
	for _, p := range newer {
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}

		oldHash, ok := oldHashes[p.URL]
		switch {
		case !ok:
			diff.Added = append(diff.Added, p.URL)
		case oldHash != p.Hash:
			diff.Changed = append(diff.Changed, p.URL)
		default:
			diff.Unchanged++
		}
	}

	for u := range oldHashes {
		if _, ok := seen[u]; !ok {
			diff.Removed = append(diff.Removed, u)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}
