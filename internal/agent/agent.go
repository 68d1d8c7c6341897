// Package agent runs the tool-calling loop between a chat model and the
// registered tools.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mitchellh/mapstructure"

	"ragagent/internal/domain"
	"ragagent/internal/llm"
)

// ErrMaxSteps is returned when the model keeps requesting tools past the
// configured number of steps.
var ErrMaxSteps = errors.New("agent stopped after max steps without an answer")

const DefaultSystemPrompt = "You are a helpful assistant. Use the retrieval tool for questions about the uploaded documents, " +
	"the calculator for any arithmetic, web_search for information that is not in the documents and " +
	"email_sender to send email (input: recipient|subject|body). Answer concisely."

const defaultMaxSteps = 8

// Tools is the view of the tool registry the agent needs.
type Tools interface {
	List() []domain.Tool
	Get(name string) (domain.Tool, bool)
}

// Step records one tool invocation.
type Step struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Failed bool   `json:"failed,omitempty"`
}

// Result is the final answer and the tool trace that led to it.
type Result struct {
	Output string `json:"output"`
	Steps  []Step `json:"steps"`
}

type Options struct {
	SystemPrompt string
	MaxSteps     int
	Logger       *slog.Logger
}

type Agent struct {
	model        llm.ChatModel
	tools        Tools
	systemPrompt string
	maxSteps     int
	log          *slog.Logger
}

func New(model llm.ChatModel, tools Tools, opts Options) *Agent {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Agent{
		model:        model,
		tools:        tools,
		systemPrompt: opts.SystemPrompt,
		maxSteps:     opts.MaxSteps,
		log:          opts.Logger,
	}
}

// Run answers input. Tool failures are fed back to the model; only model
// errors, cancellation and ErrMaxSteps end the run early. The partial trace
// is returned alongside those errors.
func (a *Agent) Run(ctx context.Context, input string) (Result, error) {
	var res Result
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.systemPrompt},
		{Role: llm.RoleUser, Content: input},
	}
	specs := a.specs()
	for step := 0; step < a.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		reply, err := a.model.Chat(ctx, messages, specs)
		if err != nil {
			return res, fmt.Errorf("chat model: %w", err)
		}
		messages = append(messages, reply)
		if len(reply.ToolCalls) == 0 {
			res.Output = reply.Content
			return res, nil
		}
		for _, call := range reply.ToolCalls {
			st := a.invoke(ctx, call)
			res.Steps = append(res.Steps, st)
			messages = append(messages, llm.Message{Role: llm.RoleTool, Content: st.Output, ToolCallID: call.ID})
		}
	}
	return res, fmt.Errorf("%w (%d)", ErrMaxSteps, a.maxSteps)
}

type toolArgs struct {
	Input string `mapstructure:"input"`
}

func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) Step {
	st := Step{Tool: call.Name, Input: decodeInput(call.Arguments)}
	tool, ok := a.tools.Get(call.Name)
	if !ok {
		st.Failed = true
		st.Output = fmt.Sprintf("Error: unknown tool %q. Available tools: %s", call.Name, strings.Join(a.names(), ", "))
		a.log.Warn("unknown tool requested", "tool", call.Name)
		return st
	}
	out, err := tool.Call(ctx, st.Input)
	if err != nil {
		st.Failed = true
		st.Output = "Error: " + err.Error()
		a.log.Warn("tool failed", "tool", call.Name, "error", err)
		return st
	}
	st.Output = out
	a.log.Debug("tool called", "tool", call.Name, "input", st.Input)
	return st
}

// decodeInput extracts the input argument. Models occasionally send a bare
// string or a number instead of the declared object; those are used as is.
func decodeInput(arguments string) string {
	var raw any
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return arguments
	}
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		var args toolArgs
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &args,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return arguments
		}
		if err := dec.Decode(v); err != nil {
			return arguments
		}
		return args.Input
	}
	return arguments
}

func (a *Agent) specs() []llm.ToolSpec {
	tools := a.tools.List()
	specs := make([]llm.ToolSpec, len(tools))
	for i, t := range tools {
		specs[i] = llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"input": map[string]any{"type": "string", "description": "Input passed to the tool."},
				},
				"required": []string{"input"},
			},
		}
	}
	return specs
}

func (a *Agent) names() []string {
	tools := a.tools.List()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}
