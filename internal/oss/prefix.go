package oss

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const resolverCacheSize = 4096

// PrefixResolver answers whether a logical drive path lives under a bucket
// mount. It is the only path-to-backend lookup in the system; callers hold an
// instance instead of consulting ambient state, and Refresh swaps the mount
// table when the configuration changes.
type PrefixResolver struct {
	mu    sync.RWMutex
	roots []string
	cache *lru.Cache[string, string]
}

func NewPrefixResolver(roots []string) *PrefixResolver {
	cache, _ := lru.New[string, string](resolverCacheSize)
	r := &PrefixResolver{cache: cache}
	r.Refresh(roots)
	return r
}

func normalizePath(p string) string {
	return strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
}

// Resolve returns the mount root that path (or one of its ancestors) belongs
// to. The empty cached value remembers a negative answer.
func (r *PrefixResolver) Resolve(p string) (string, bool) {
	key := normalizePath(p)
	if key == "" {
		return "", false
	}
	if cached, ok := r.cache.Get(key); ok {
		return cached, cached != ""
	}
	root := r.lookup(key)
	r.cache.Add(key, root)
	return root, root != ""
}

func (r *PrefixResolver) lookup(p string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, root := range r.roots {
		if p == root || strings.HasPrefix(p, root+"/") {
			return root
		}
	}
	return ""
}

// Refresh replaces the mount table and drops every cached answer.
func (r *PrefixResolver) Refresh(roots []string) {
	normalized := make([]string, 0, len(roots))
	for _, root := range roots {
		if trimmed := normalizePath(root); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	r.mu.Lock()
	r.roots = normalized
	r.mu.Unlock()
	r.cache.Purge()
}

// Invalidate forgets the cached answer for a single path.
func (r *PrefixResolver) Invalidate(p string) {
	r.cache.Remove(normalizePath(p))
}
