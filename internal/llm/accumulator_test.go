package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestToolCallAccumulator_IndexedFragments(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(ToolCallDelta{Index: intPtr(0), ID: "call_a", Name: "submit_pre_chat_form"})
	acc.Add(ToolCallDelta{Index: intPtr(1), ID: "call_b", Name: "handoff_to_support"})
	acc.Add(ToolCallDelta{Index: intPtr(0), Arguments: `{"name":`})
	acc.Add(ToolCallDelta{Index: intPtr(1), Arguments: `{"email":"a@b.co"}`})
	acc.Add(ToolCallDelta{Index: intPtr(0), Arguments: `"Jane"}`})

	calls := acc.Finish()
	require.Len(t, calls, 2)
	assert.Equal(t, ToolCall{ID: "call_a", Name: "submit_pre_chat_form", Arguments: `{"name":"Jane"}`}, calls[0])
	assert.Equal(t, ToolCall{ID: "call_b", Name: "handoff_to_support", Arguments: `{"email":"a@b.co"}`}, calls[1])
}

func TestToolCallAccumulator_UnindexedFragments(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(ToolCallDelta{ID: "x", Name: "first"})
	acc.Add(ToolCallDelta{Arguments: `{"a":1}`})
	acc.Add(ToolCallDelta{ID: "y", Name: "second", Arguments: `{}`})
	acc.Add(ToolCallDelta{Name: "third"})

	calls := acc.Finish()
	require.Len(t, calls, 3)
	assert.Equal(t, "first", calls[0].Name)
	assert.Equal(t, `{"a":1}`, calls[0].Arguments)
	assert.Equal(t, "second", calls[1].Name)
	assert.Equal(t, "third", calls[2].Name)
	assert.Equal(t, "call_2", calls[2].ID)
	assert.Equal(t, "{}", calls[2].Arguments)
}

func TestToolCallAccumulator_EmptyAndNameless(t *testing.T) {
	acc := NewToolCallAccumulator()
	assert.Empty(t, acc.Finish())

	acc = NewToolCallAccumulator()
	acc.Add(ToolCallDelta{Index: intPtr(0), Arguments: `{}`})
	assert.Empty(t, acc.Finish())
}

func TestToolCallAccumulator_IgnoresFragmentsAfterFinish(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Add(ToolCallDelta{Index: intPtr(0), ID: "c", Name: "n", Arguments: `{}`})
	first := acc.Finish()
	acc.Add(ToolCallDelta{Index: intPtr(0), Arguments: `garbage`})
	assert.Equal(t, first, acc.Finish())
}
