package collection_state

import (
	"fmt"
	"iter"

	"github.com/turbot/trail-inspector/types"
)

// LogCache maps object keys to the documents loaded from them. It records which objects
// have already been collected, so they are never fetched twice during the life of the cache.
// Documents are returned in insertion order. LogCache is not safe for concurrent use.
type LogCache struct {
	documents map[string]*types.LogDocument
	keys      []string
}

func NewLogCache() *LogCache {
	return &LogCache{
		documents: make(map[string]*types.LogDocument),
	}
}

func (c *LogCache) Contains(key string) bool {
	_, ok := c.documents[key]
	return ok
}

func (c *LogCache) Get(key string) (*types.LogDocument, bool) {
	doc, ok := c.documents[key]
	return doc, ok
}

// Insert adds a document, keyed by its object key. Cached documents are never replaced:
// inserting a key which is already present returns an error.
func (c *LogCache) Insert(doc *types.LogDocument) error {
	if doc == nil {
		return fmt.Errorf("cannot cache a nil document")
	}
	if c.Contains(doc.Key) {
		return fmt.Errorf("object %s is already cached", doc.Key)
	}
	c.documents[doc.Key] = doc
	c.keys = append(c.keys, doc.Key)
	return nil
}

// All returns the cached documents in insertion order
func (c *LogCache) All() iter.Seq2[string, *types.LogDocument] {
	return func(yield func(string, *types.LogDocument) bool) {
		for _, key := range c.keys {
			if !yield(key, c.documents[key]) {
				return
			}
		}
	}
}

func (c *LogCache) Len() int {
	return len(c.keys)
}

// Keys returns a copy of the cached keys in insertion order
func (c *LogCache) Keys() []string {
	res := make([]string, len(c.keys))
	copy(res, c.keys)
	return res
}
