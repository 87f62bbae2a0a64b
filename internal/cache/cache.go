// Package cache holds the shared-page cache invalidation contract.
package cache

import "context"

// ShareCache drops cached renderings grouped under a tag.
type ShareCache interface {
	InvalidateTag(ctx context.Context, tag string) error
}

// ShareTag is the cache tag of a publicly shared page.
func ShareTag(pageID string) string {
	return "share-page-" + pageID
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) InvalidateTag(context.Context, string) error { return nil }
