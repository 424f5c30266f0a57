package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"reflector/internal/domain"
	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
)

// ToolRegistry maps capability names to their schema and validator.
// It is built once and read-only afterwards, so it is safe for concurrent use.
type ToolRegistry struct {
	capabilities map[string]Capability
	order        []string
}

// NewToolRegistry creates a registry from the given capabilities.
// A later capability with the same name replaces an earlier one.
func NewToolRegistry(caps ...Capability) *ToolRegistry {
	r := &ToolRegistry{capabilities: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		name := c.Definition.Name
		if _, exists := r.capabilities[name]; !exists {
			r.order = append(r.order, name)
		}
		r.capabilities[name] = c
	}
	return r
}

// Get retrieves a capability by name.
func (r *ToolRegistry) Get(name string) (Capability, bool) {
	c, ok := r.capabilities[name]
	return c, ok
}

// Definitions returns the schemas to bind on the model, in registration order.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.capabilities[name].Definition)
	}
	return defs
}

// Parse validates a raw call against its capability schema.
// Unknown tools and invalid arguments fail with *domain.MalformedToolCallError.
func (r *ToolRegistry) Parse(call llm.ToolCall) (Invocation, error) {
	c, ok := r.capabilities[call.Name]
	if !ok {
		return nil, &domain.MalformedToolCallError{
			ToolName: call.Name,
			Reason:   fmt.Sprintf("unknown tool %q", call.Name),
		}
	}
	return c.Validate(call.Arguments)
}

// Outcome is the result of resolving one tool call. Err is nil when the call was applied.
type Outcome struct {
	Call llm.ToolCall
	Err  error
}

// Applied reports whether the call changed the working document.
func (o Outcome) Applied() bool { return o.Err == nil }

// Result renders the outcome as the tool message content returned to the model.
// Error codes help the model understand what went wrong.
func (o Outcome) Result() map[string]interface{} {
	if o.Err == nil {
		return map[string]interface{}{
			"success": true,
			"message": "Block updated",
		}
	}

	code := "EXECUTION_ERROR"
	var refErr *domain.ReferenceError
	var malformedErr *domain.MalformedToolCallError
	switch {
	case errors.As(o.Err, &refErr):
		code = "BLOCK_NOT_FOUND"
	case errors.As(o.Err, &malformedErr):
		code = "MALFORMED_CALL"
	}
	return map[string]interface{}{
		"success":    false,
		"error_code": code,
		"message":    o.Err.Error(),
	}
}

// ResultJSON is Result encoded as a string.
func (o Outcome) ResultJSON() string {
	b, err := json.Marshal(o.Result())
	if err != nil {
		return fmt.Sprintf(`{"success":false,"message":%q}`, err.Error())
	}
	return string(b)
}

// Resolution is the document produced by applying a model response's tool calls,
// with one Outcome per call in the order the adapter returned them.
type Resolution struct {
	Document models.Document
	Outcomes []Outcome
}

// AppliedCount returns the number of calls that were applied.
func (r Resolution) AppliedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Applied() {
			n++
		}
	}
	return n
}

// Rejected returns the outcomes of calls that were dropped.
func (r Resolution) Rejected() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Applied() {
			out = append(out, o)
		}
	}
	return out
}

// Resolve applies calls in order against doc.
// A malformed call or a call naming an unknown block is skipped; later calls see the
// document as of the last successful application. Resolve never fails as a whole.
func (r *ToolRegistry) Resolve(doc models.Document, calls []llm.ToolCall) Resolution {
	res := Resolution{
		Document: doc,
		Outcomes: make([]Outcome, 0, len(calls)),
	}
	for _, call := range calls {
		inv, err := r.Parse(call)
		if err != nil {
			res.Outcomes = append(res.Outcomes, Outcome{Call: call, Err: err})
			continue
		}
		next, err := inv.Apply(res.Document)
		if err != nil {
			res.Outcomes = append(res.Outcomes, Outcome{Call: call, Err: err})
			continue
		}
		res.Document = next
		res.Outcomes = append(res.Outcomes, Outcome{Call: call})
	}
	return res
}
