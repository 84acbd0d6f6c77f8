package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// Handler extracts keys from one field value using a single method.
// Implementations must be safe for concurrent use.
type Handler interface {
	// Method returns the discriminator tag this handler serves.
	Method() string

	// Extract pulls keys out of text. field is the source field name the
	// text came from; enrich carries entity context values.
	Extract(ctx context.Context, text, field string, rule *config.ExtractionRule, enrich map[string]string) ([]*ExtractedKey, error)
}

// NewHandlers builds the standard method handler set. corpus may be nil;
// frequency analysis then runs on the input text alone.
func NewHandlers(logger *zap.Logger, corpus CorpusProvider) map[string]Handler {
	return map[string]Handler{
		config.MethodRegex:           NewRegexHandler(logger),
		config.MethodFixedWidth:      NewFixedWidthHandler(logger),
		config.MethodTokenReassembly: NewReassemblyHandler(logger),
		config.MethodHeuristic:       NewHeuristicHandler(logger, corpus),
	}
}

// handlerFor resolves the handler for a rule's method.
func handlerFor(handlers map[string]Handler, method string) (Handler, error) {
	h, ok := handlers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownMethod, method)
	}
	return h, nil
}
