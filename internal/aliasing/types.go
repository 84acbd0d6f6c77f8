// Package aliasing generates search aliases for industrial tags by
// running a priority-ordered pipeline of transformation rules over a
// seed tag. Each rule either extends the working alias set or replaces
// it, and a final validation pass bounds and cleans the result.
package aliasing

import (
	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// Context carries enrichment values (site, unit, equipment_type) through
// the pipeline. Transformers may write recognized values back so later
// rules can use them.
type Context struct {
	EntityType string
	Values     map[string]string
}

// NewContext builds a pipeline context. values may be nil.
func NewContext(entityType string, values map[string]string) *Context {
	ctx := &Context{EntityType: entityType, Values: make(map[string]string)}
	for k, v := range values {
		ctx.Values[k] = v
	}
	return ctx
}

// Get returns a context value, empty when absent.
func (c *Context) Get(key string) string {
	if c == nil {
		return ""
	}
	return c.Values[key]
}

// SetIfAbsent stores a value only when the key has none yet.
func (c *Context) SetIfAbsent(key, value string) {
	if c == nil || value == "" {
		return
	}
	if _, ok := c.Values[key]; !ok {
		c.Values[key] = value
	}
}

// Transformer generates alias variants from the working alias set.
// Implementations treat the input as a set and must not mutate it.
type Transformer interface {
	// Kind returns the discriminator tag this transformer serves.
	Kind() string

	// Transform returns the new aliases produced from the input set.
	// Whether the output replaces or extends the input is the engine's
	// decision, driven by the rule's preserve_original flag.
	Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error)
}

// Result is the outcome of one aliasing run.
type Result struct {
	OriginalTag string         `json:"original_tag"`
	Aliases     []string       `json:"aliases"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
