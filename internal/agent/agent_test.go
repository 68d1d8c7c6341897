package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragagent/internal/calculator"
	"ragagent/internal/domain"
	"ragagent/internal/llm"
	"ragagent/internal/tools"
)

// scriptedModel replies with its messages in order and records transcripts.
type scriptedModel struct {
	replies []llm.Message
	seen    [][]llm.Message
	specs   []llm.ToolSpec
}

func (m *scriptedModel) Chat(_ context.Context, messages []llm.Message, specs []llm.ToolSpec) (llm.Message, error) {
	m.seen = append(m.seen, append([]llm.Message(nil), messages...))
	m.specs = specs
	if len(m.seen) > len(m.replies) {
		return llm.Message{}, errors.New("script exhausted")
	}
	return m.replies[len(m.seen)-1], nil
}

func call(id, name, args string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

type brokenTool struct{}

func (brokenTool) Name() string        { return "broken" }
func (brokenTool) Description() string { return "always fails" }

func (brokenTool) Call(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func newRegistry(t *testing.T, extra ...domain.Tool) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(append([]domain.Tool{tools.NewCalculator(calculator.DefaultLimits)}, extra...)...)
	require.NoError(t, err)
	return r
}

func TestRunAnswersDirectly(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{{Role: llm.RoleAssistant, Content: "Hello!"}}}
	res, err := New(model, newRegistry(t), Options{}).Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Output)
	assert.Empty(t, res.Steps)

	require.Len(t, model.seen, 1)
	assert.Equal(t, llm.RoleSystem, model.seen[0][0].Role)
	assert.Equal(t, DefaultSystemPrompt, model.seen[0][0].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi"}, model.seen[0][1])
	require.Len(t, model.specs, 1)
	assert.Equal(t, "calculator", model.specs[0].Name)
	assert.Equal(t, []string{"input"}, model.specs[0].Parameters["required"])
}

func TestRunCallsTools(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		call("c1", "calculator", `{"input":"6*7"}`),
		{Role: llm.RoleAssistant, Content: "The answer is 42."},
	}}
	res, err := New(model, newRegistry(t), Options{}).Run(context.Background(), "what is 6*7?")
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", res.Output)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, Step{Tool: "calculator", Input: "6*7", Output: `{"success":true,"result":42}`}, res.Steps[0])

	second := model.seen[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleTool, Content: `{"success":true,"result":42}`, ToolCallID: "c1"}, second[3])
}

func TestRunReportsToolFailuresToModel(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		call("c1", "shell", `{"input":"ls"}`),
		call("c2", "broken", `{"input":"x"}`),
		{Role: llm.RoleAssistant, Content: "done"},
	}}
	res, err := New(model, newRegistry(t, brokenTool{}), Options{}).Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
	require.Len(t, res.Steps, 2)
	assert.True(t, res.Steps[0].Failed)
	assert.Contains(t, res.Steps[0].Output, `unknown tool "shell"`)
	assert.Contains(t, res.Steps[0].Output, "calculator, broken")
	assert.True(t, res.Steps[1].Failed)
	assert.Equal(t, "Error: backend down", res.Steps[1].Output)
}

func TestRunMaxSteps(t *testing.T) {
	loop := call("c", "calculator", `{"input":"1"}`)
	model := &scriptedModel{replies: []llm.Message{loop, loop, loop}}
	res, err := New(model, newRegistry(t), Options{MaxSteps: 2}).Run(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrMaxSteps)
	assert.Len(t, res.Steps, 2)
	assert.Len(t, model.seen, 2)
}

func TestRunModelError(t *testing.T) {
	model := &scriptedModel{}
	_, err := New(model, newRegistry(t), Options{}).Run(context.Background(), "hi")
	assert.ErrorContains(t, err, "script exhausted")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&scriptedModel{}, newRegistry(t), Options{}).Run(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeInput(t *testing.T) {
	tests := map[string]string{
		`{"input":"2+2"}`: "2+2",
		`{"input":42}`:    "42",
		`"sqrt(4)"`:       "sqrt(4)",
		`1+1`:             "1+1",
		`{"other":"x"}`:   "",
		`not json`:        "not json",
	}
	for in, want := range tests {
		assert.Equal(t, want, decodeInput(in), in)
	}
}
