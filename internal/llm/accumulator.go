package llm

import (
	"fmt"
	"sort"
	"strings"
)

type callState int

const (
	callIdle callState = iota
	callAccumulating
	callComplete
)

// ToolCall is a fully received tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type pendingCall struct {
	state callState
	id    string
	name  string
	args  strings.Builder
}

// ToolCallAccumulator buffers streamed tool call fragments keyed by call
// index until the stream ends. Fragments without an index extend the most
// recent call unless they carry a new id or a second name.
type ToolCallAccumulator struct {
	calls   map[int]*pendingCall
	current int
	maxIdx  int
}

func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{calls: make(map[int]*pendingCall), current: -1, maxIdx: -1}
}

func (a *ToolCallAccumulator) Add(d ToolCallDelta) {
	idx := a.resolveIndex(d)
	call, ok := a.calls[idx]
	if !ok {
		call = &pendingCall{}
		a.calls[idx] = call
	}
	if call.state == callComplete {
		return
	}
	call.state = callAccumulating
	if d.ID != "" && call.id == "" {
		call.id = d.ID
	}
	if d.Name != "" && call.name == "" {
		call.name = d.Name
	}
	call.args.WriteString(d.Arguments)

	a.current = idx
	if idx > a.maxIdx {
		a.maxIdx = idx
	}
}

func (a *ToolCallAccumulator) resolveIndex(d ToolCallDelta) int {
	if d.Index != nil {
		return *d.Index
	}
	cur, ok := a.calls[a.current]
	if !ok {
		return a.maxIdx + 1
	}
	switch {
	case d.ID != "" && cur.id != "" && d.ID != cur.id:
		return a.maxIdx + 1
	case d.ID == "" && d.Name != "" && cur.name != "":
		return a.maxIdx + 1
	}
	return a.current
}

// Finish completes every buffered call and returns them in index order.
// Calls that never received a name are dropped.
func (a *ToolCallAccumulator) Finish() []ToolCall {
	indexes := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		call := a.calls[idx]
		call.state = callComplete
		if call.name == "" {
			continue
		}
		id := call.id
		if id == "" {
			id = fmt.Sprintf("call_%d", idx)
		}
		args := strings.TrimSpace(call.args.String())
		if args == "" {
			args = "{}"
		}
		out = append(out, ToolCall{ID: id, Name: call.name, Arguments: args})
	}
	return out
}
