package tools

import (
	"encoding/json"

	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
)

// Capability is one entry of the static tool registry: the schema exported to the model
// and the validator that turns raw arguments into an applicable Invocation.
type Capability struct {
	Definition llm.ToolDefinition

	// Validate decodes and checks raw arguments.
	// Failures must be *domain.MalformedToolCallError so resolution can skip the call.
	Validate func(args json.RawMessage) (Invocation, error)
}

// Invocation is a validated tool call that can be applied to a document.
// Apply must be pure: it returns a new document and never mutates its input.
type Invocation interface {
	Apply(doc models.Document) (models.Document, error)
}
