package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflector/internal/domain/models"
	"reflector/internal/domain/models/llm"
)

func TestFormatContext(t *testing.T) {
	tests := []struct {
		name string
		doc  models.Document
		want string
	}{
		{
			name: "empty document",
			doc:  models.Document{},
			want: "Current editor blocks:",
		},
		{
			name: "blocks in document order",
			doc: models.NewDocument(
				models.Block{ID: "b2", Content: "second"},
				models.Block{ID: "b1", Content: "first\nwith two lines"},
			),
			want: "Current editor blocks:\nBlock b2:\nsecond\nBlock b1:\nfirst\nwith two lines",
		},
		{
			name: "empty content keeps the block",
			doc:  models.NewDocument(models.Block{ID: "b1"}),
			want: "Current editor blocks:\nBlock b1:\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatContext(tt.doc))
		})
	}
}

func TestState_AppendOrder(t *testing.T) {
	doc := models.NewDocument(models.Block{ID: "b1", Content: "x"})
	state := NewState("thread-1", doc)

	state.AppendMessage(llm.RoleUser, "make it better")
	state.AppendContextMessage()
	state.AppendAssistant(llm.Message{
		Content:   "done",
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "update_block", Arguments: json.RawMessage(`{}`)}},
	})
	state.AppendToolResult("c1", `{"success":true}`)

	require.Len(t, state.Messages, 4)
	assert.Equal(t, llm.RoleUser, state.Messages[0].Role)
	assert.Equal(t, "make it better", state.Messages[0].Content)
	assert.Equal(t, llm.RoleSystem, state.Messages[1].Role)
	assert.Equal(t, "Current editor blocks:\nBlock b1:\nx", state.Messages[1].Content)
	assert.Equal(t, llm.RoleAssistant, state.Messages[2].Role)
	assert.Len(t, state.Messages[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, state.Messages[3].Role)
	assert.Equal(t, "c1", state.Messages[3].ToolCallID)
}

func TestState_ContextReflectsCurrentDocument(t *testing.T) {
	state := NewState("t", models.NewDocument(models.Block{ID: "b1", Content: "x"}))

	updated, err := state.Document.WithUpdatedBlock("b1", "y")
	require.NoError(t, err)
	state.Document = updated
	state.AppendContextMessage()

	assert.Contains(t, state.Messages[0].Content, "Block b1:\ny")
}

func TestState_SnapshotIsIndependent(t *testing.T) {
	doc := models.NewDocument(models.Block{ID: "b1", Content: "x"})
	state := NewState("t", doc)
	state.AppendAssistant(llm.Message{
		ToolCalls: []llm.ToolCall{{ID: "c1", Name: "update_block", Arguments: json.RawMessage(`{"a":1}`)}},
	})

	snap := state.Snapshot()
	state.Messages[0].ToolCalls[0].Arguments[2] = 'b'
	state.Document.Blocks[0].Content = "mutated"
	state.AppendMessage(llm.RoleUser, "more")

	assert.Len(t, snap.Messages, 1)
	assert.JSONEq(t, `{"a":1}`, string(snap.Messages[0].ToolCalls[0].Arguments))
	assert.Equal(t, "x", snap.Document.Blocks[0].Content)
}

func TestNewState_DoesNotAliasInput(t *testing.T) {
	doc := models.NewDocument(models.Block{ID: "b1", Content: "x"})
	state := NewState("t", doc)
	state.Document.Blocks[0].Content = "changed"

	assert.Equal(t, "x", doc.Blocks[0].Content)
}
