package council

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const workflowsKey = "workflows"

type templateCache struct {
	cache *cache.Cache
}

func newTemplateCache(ttl time.Duration) *templateCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	// One key only: Get already skips expired entries, so no janitor.
	return &templateCache{cache: cache.New(ttl, 0)}
}

func (t *templateCache) get() (map[string]WorkflowTemplate, bool) {
	if x, found := t.cache.Get(workflowsKey); found {
		return x.(map[string]WorkflowTemplate), true
	}
	return nil, false
}

func (t *templateCache) set(m map[string]WorkflowTemplate) {
	t.cache.Set(workflowsKey, m, cache.DefaultExpiration)
}

func (t *templateCache) invalidate() {
	t.cache.Delete(workflowsKey)
}
