package llm

// ToolDefinition is the provider-neutral description of a capability the model may call.
// Adapters translate it into their SDK's tool format.
//
// Parameters holds a JSON Schema object:
//
//	{
//	  "type": "object",
//	  "properties": {...},
//	  "required": [...]
//	}
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Properties returns the schema's "properties" entry, or an empty object.
func (td ToolDefinition) Properties() map[string]interface{} {
	if props, ok := td.Parameters["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

// Required returns the schema's "required" entry as strings.
// Accepts both []string and the []interface{} produced by encoding/json.
func (td ToolDefinition) Required() []string {
	switch v := td.Parameters["required"].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
