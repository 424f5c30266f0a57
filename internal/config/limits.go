package config

import "time"

const (
	// MaxPromptLength is the maximum length of a reflect instruction, in characters.
	MaxPromptLength = 10000

	// MaxBlocks is the maximum number of blocks a reflect request may carry.
	// The whole document is rendered into the context message.
	MaxBlocks = 500

	// MaxBlockIDLength bounds block identifiers.
	MaxBlockIDLength = 255

	// MaxBlockContentLength bounds a single block, in characters.
	// update_block enforces the same limit on model-issued content.
	MaxBlockContentLength = 100000

	// MaxThreadIDLength bounds caller supplied thread ids.
	MaxThreadIDLength = 255
)

// Defaults for the reflect turn.
const (
	DefaultProvider       = "openai"
	DefaultOpenAIBaseURL  = "http://localhost:11434/v1"
	DefaultAdapterTimeout = 60 * time.Second
	DefaultMaxTokens      = 1024
)
