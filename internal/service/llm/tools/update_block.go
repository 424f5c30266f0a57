package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"reflector/internal/domain"
	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
)

// UpdateBlockToolName is the name the model uses to call the update tool.
const UpdateBlockToolName = "update_block"

// UpdateBlockInput is the argument payload of an update_block call.
type UpdateBlockInput struct {
	BlockID string `json:"block_id" jsonschema_description:"The ID of the block to update."`
	Content string `json:"content" jsonschema_description:"The new content for the block."`
}

// Apply replaces the content of the target block.
func (in UpdateBlockInput) Apply(doc models.Document) (models.Document, error) {
	return doc.WithUpdatedBlock(in.BlockID, in.Content)
}

var updateBlockSchema = GenerateSchema[UpdateBlockInput]()

// NewUpdateBlockCapability builds the update_block registry entry.
func NewUpdateBlockCapability(config *ToolConfig) Capability {
	if config == nil {
		config = DefaultToolConfig()
	}
	return Capability{
		Definition: llm.ToolDefinition{
			Name:        UpdateBlockToolName,
			Description: "Update a block in the editor.",
			Parameters:  updateBlockSchema,
		},
		Validate: func(args json.RawMessage) (Invocation, error) {
			input, err := parseUpdateBlock(args, config)
			if err != nil {
				return nil, err
			}
			return input, nil
		},
	}
}

// parseUpdateBlock validates raw arguments the way models actually send them.
// Input parameters:
//   - block_id (string, required, non-empty)
//   - content (string, required, may be empty to clear a block)
func parseUpdateBlock(args json.RawMessage, config *ToolConfig) (UpdateBlockInput, error) {
	input, err := decodeArguments(args)
	if err != nil {
		return UpdateBlockInput{}, malformed(err.Error())
	}

	blockID, err := requiredString(input, "block_id")
	if err != nil {
		return UpdateBlockInput{}, err
	}
	if blockID == "" {
		return UpdateBlockInput{}, malformed("block_id must not be empty")
	}

	content, err := requiredString(input, "content")
	if err != nil {
		return UpdateBlockInput{}, err
	}
	if config.MaxContentLength > 0 && utf8.RuneCountInString(content) > config.MaxContentLength {
		return UpdateBlockInput{}, malformed(fmt.Sprintf("content exceeds %d characters", config.MaxContentLength))
	}

	return UpdateBlockInput{BlockID: blockID, Content: content}, nil
}

// decodeArguments accepts a JSON object, or a JSON string holding one.
// Some OpenAI-compatible servers double-encode tool arguments.
func decodeArguments(args json.RawMessage) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 {
		return map[string]interface{}{}, nil
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("arguments are not valid JSON: %v", err)
		}
		trimmed = bytes.TrimSpace([]byte(inner))
	}

	var input map[string]interface{}
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %v", err)
	}
	if input == nil {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return input, nil
}

func requiredString(input map[string]interface{}, key string) (string, error) {
	raw, ok := input[key]
	if !ok || raw == nil {
		return "", malformed("missing required parameter: " + key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", malformed(fmt.Sprintf("%s must be a string, got %T", key, raw))
	}
	return s, nil
}

func malformed(reason string) *domain.MalformedToolCallError {
	return &domain.MalformedToolCallError{ToolName: UpdateBlockToolName, Reason: reason}
}
