package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragagent/internal/calculator"
	"ragagent/internal/domain"
	"ragagent/internal/service"
)

func TestRegistry(t *testing.T) {
	calc := NewCalculator(calculator.DefaultLimits)
	mail := NewEmailSender(nil)
	r, err := NewRegistry(calc, mail)
	require.NoError(t, err)
	assert.Equal(t, []string{"calculator", "email_sender"}, r.Names())

	got, ok := r.Get("calculator")
	require.True(t, ok)
	assert.Same(t, calc, got)

	err = r.Register(NewCalculator(calculator.DefaultLimits))
	assert.ErrorContains(t, err, "already registered")
	assert.Len(t, r.List(), 2)

	out, err := r.Call(context.Background(), "calculator", "1+1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"result":2}`, out)

	_, err = r.Call(context.Background(), "shell", "ls")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestCalculatorTool(t *testing.T) {
	calc := NewCalculator(calculator.DefaultLimits)
	tests := []struct {
		in   string
		want string
	}{
		{"2 + 3 * 4", `{"success":true,"result":14}`},
		{"7 / 2", `{"success":true,"result":3.5}`},
		{"sqrt(16)", `{"success":true,"result":4.0}`},
		{"1 / 0", `{"success":false,"error":"division by zero"}`},
		{"__import__(1)", `{"success":false,"error":"Function not allowed or unsupported call"}`},
		{"x + 1", `{"success":false,"error":"Name not allowed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, err := calc.Call(context.Background(), tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, out)
		})
	}
}

type fakeIndex struct {
	res []domain.SearchResult
	err error
	k   int
}

func (f *fakeIndex) Query(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	f.k = k
	return f.res, f.err
}

func TestRetrieval(t *testing.T) {
	idx := &fakeIndex{res: []domain.SearchResult{
		{Chunk: domain.Chunk{Text: "first"}, Score: 0.9},
		{Chunk: domain.Chunk{Text: "second"}, Score: 0.5},
	}}
	r := NewRetrieval(idx, 0)
	out, err := r.Call(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond", out)
	assert.Equal(t, service.DefaultTopK, idx.k)

	idx.err = service.ErrNoIndex
	out, err = r.Call(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, NoIndexMessage, out)

	idx.err = errors.New("store down")
	_, err = r.Call(context.Background(), "q")
	assert.Error(t, err)
}

func TestEmailSender(t *testing.T) {
	s := NewEmailSender(nil)
	out, err := s.Call(context.Background(), "bob@example.com | Hello | body with | pipes")
	require.NoError(t, err)

	var res emailResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Email queued (mock)", res.Message)
	assert.NotEmpty(t, res.ID)

	box := s.Outbox()
	require.Len(t, box, 1)
	assert.Equal(t, res.ID, box[0].ID)
	assert.Equal(t, "bob@example.com", box[0].Recipient)
	assert.Equal(t, "Hello", box[0].Subject)
	assert.Equal(t, " body with | pipes", box[0].Body)

	out, err = s.Call(context.Background(), "bob@example.com|no body")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"expected input of the form recipient|subject|body"}`, out)
	assert.Len(t, s.Outbox(), 1)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "héll", preview("héllo", 4))
	assert.Equal(t, "hi", preview("hi", 200))
}
