package condition

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the memoisation table. The cache's lifetime is
// one evaluation cycle (spec §4.3), so this is a safety valve against a
// pathological metadata list with an enormous number of distinct
// condition strings rather than a tuning knob.
const defaultCacheSize = 4096

// Cache memoises condition results keyed on the literal condition
// string, for the lifetime of one evaluation cycle (spec §4.3
// "Memoisation"). It is intrinsically sequential per spec §9's design
// note; the mutex here guards the occasional concurrent access from a
// re-entrant evaluator recursing through and() suboperands, and the
// lru.Cache's own internal locking (see spec §9: "switch to a sharded
// map" if parallelism is ever wanted) gives that for free.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, bool]
}

// NewCache creates a condition result cache.
func NewCache() *Cache {
	inner, _ := lru.New[string, bool](defaultCacheSize)
	return &Cache{inner: inner}
}

// Get returns a memoised result for the literal condition string.
func (c *Cache) Get(condition string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Get(condition)
}

// Put memoises a result for the literal condition string.
func (c *Cache) Put(condition string, result bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(condition, result)
}

// OnPluginCacheInvalidated implements plugin.ClearObserver: the condition
// cache is cleared whenever the plugin cache is (re)loaded, since any
// memoised file/active/checksum/version result may now be stale.
func (c *Cache) OnPluginCacheInvalidated() {
	c.Clear()
}

// Clear empties the cache, e.g. on metadata-list reload (spec §3: "the
// condition cache... is cleared whenever any plugin is (re)loaded or
// either metadata list is reloaded").
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}

// Evaluator parses and evaluates condition strings against a GameState,
// memoising results in a Cache.
type Evaluator struct {
	parser *Parser
	cache  *Cache
	state  GameState
}

// NewEvaluator creates an Evaluator bound to state, backed by cache (which
// may be shared with other Evaluators over the lifetime of one
// evaluation cycle).
func NewEvaluator(state GameState, cache *Cache) *Evaluator {
	return &Evaluator{parser: NewParser(), cache: cache, state: state}
}

// Eval parses (if necessary) and evaluates a condition string, returning
// the memoised result on a cache hit. An empty condition string is
// always true (the absence of a condition means "always applies").
func (e *Evaluator) Eval(conditionStr string) (bool, error) {
	if conditionStr == "" {
		return true, nil
	}

	if result, ok := e.cache.Get(conditionStr); ok {
		return result, nil
	}

	expr, err := e.parser.Parse(conditionStr)
	if err != nil {
		return false, err
	}

	result, err := expr.Eval(e.state)
	if err != nil {
		return false, err
	}

	e.cache.Put(conditionStr, result)
	return result, nil
}

// Validate parses conditionStr without evaluating it, reporting only
// syntax errors (spec §4.2: "Parsing alone... never throws for a
// syntactically valid expression, even if referenced files do not
// exist").
func (e *Evaluator) Validate(conditionStr string) error {
	if conditionStr == "" {
		return nil
	}
	_, err := e.parser.Parse(conditionStr)
	return err
}
