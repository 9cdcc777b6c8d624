// Package boundary exposes the one-shot call/release contract used by foreign
// callers: a record holding either the serialized result or an error message.
package boundary

import (
	"context"
	"sync"

	"github.com/quantarax/dicompreview/internal/pipeline"
)

// Result carries exactly one of JSON and Error.
type Result struct {
	JSON  *string
	Error *string
}

var (
	defaultOnce   sync.Once
	defaultParser *pipeline.Parser
)

func parser() *pipeline.Parser {
	defaultOnce.Do(func() {
		defaultParser = pipeline.New(nil)
	})
	return defaultParser
}

// Call parses path with the default configuration.
func Call(path string) *Result {
	return CallWith(context.Background(), parser(), path)
}

// CallWith parses path with p.
func CallWith(ctx context.Context, p *pipeline.Parser, path string) *Result {
	res, err := p.ParseFile(ctx, path)
	if err != nil {
		msg := err.Error()
		return &Result{Error: &msg}
	}
	data := string(res.JSON)
	return &Result{JSON: &data}
}

// Release drops both fields. It is safe on a nil record, on a record with no
// fields set, and when called more than once.
func (r *Result) Release() {
	if r == nil {
		return
	}
	r.JSON = nil
	r.Error = nil
}
