// Package execctx provides the per-invocation execution context used for
// inter-step data sharing.
//
// A Context is created by a pipeline immediately before validation, seeded
// with the original request under KeyRequest, mutated by each step, and
// discarded when the invocation returns. It is exclusively owned by one
// invocation; the engine never shares a Context across concurrent calls, so
// no locking is needed.
package execctx

// KeyRequest is the reserved key under which a pipeline seeds the original
// request or command.
const KeyRequest = "request"

// Context is a string-keyed heterogeneous store scoped to one pipeline
// invocation. Lookups on missing keys report absence instead of failing so
// step authors can compose optional reads.
type Context struct {
	values map[string]any
}

// New creates an empty context.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// Put stores v under key, replacing any previous value.
func (c *Context) Put(key string, v any) {
	c.values[key] = v
}

// Get returns the value stored under key and whether it is present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetOrDefault returns the value stored under key, or def when absent.
func (c *Context) GetOrDefault(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Remove deletes key and returns the previous value, if any.
func (c *Context) Remove(key string) (any, bool) {
	v, ok := c.values[key]
	if ok {
		delete(c.values, key)
	}
	return v, ok
}

// Clear removes all entries.
func (c *Context) Clear() {
	c.values = make(map[string]any)
}

// Size returns the number of entries.
func (c *Context) Size() int {
	return len(c.values)
}

// Key pairs a context key with the static type stored under it. Sharing one
// Key value between the writing and the reading step catches key/type
// mismatches at compile time.
type Key[T any] struct {
	name string
}

// NewKey creates a typed key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the underlying string key.
func (k Key[T]) Name() string {
	return k.name
}

// Put stores v under the typed key k.
func Put[T any](c *Context, k Key[T], v T) {
	c.Put(k.name, v)
}

// Get returns the value stored under k. The second return is false when the
// key is absent or the stored value is not a T.
func Get[T any](c *Context, k Key[T]) (T, bool) {
	var zero T
	v, ok := c.Get(k.name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// GetOrDefault returns the value stored under k, or def when absent or of
// the wrong type.
func GetOrDefault[T any](c *Context, k Key[T], def T) T {
	if v, ok := Get(c, k); ok {
		return v
	}
	return def
}
