package tui

import (
	"context"

	"ragagent/internal/agent"
	"ragagent/internal/app"
	"ragagent/internal/domain"
	"ragagent/internal/service"
)

// Backend is the TUI-facing subset of the application.
type Backend interface {
	Ask(ctx context.Context, question string) (agent.Result, error)
	Build(ctx context.Context, paths []string) (service.Manifest, error)
	Load(ctx context.Context) (service.Manifest, error)
	Clear(ctx context.Context) (bool, error)
	Query(ctx context.Context, q string, k int) ([]domain.SearchResult, error)
	Calculate(ctx context.Context, expr string) (string, error)
	Ready() bool
	Summary() string
}

type appBackend struct{ *app.App }

// FromApp adapts an App to Backend.
func FromApp(a *app.App) Backend { return appBackend{a} }

func (b appBackend) Build(ctx context.Context, paths []string) (service.Manifest, error) {
	return b.Index.Build(ctx, paths)
}

func (b appBackend) Load(ctx context.Context) (service.Manifest, error) { return b.Index.Load(ctx) }

func (b appBackend) Clear(ctx context.Context) (bool, error) { return b.Index.Clear(ctx) }

func (b appBackend) Query(ctx context.Context, q string, k int) ([]domain.SearchResult, error) {
	return b.Index.Query(ctx, q, k)
}

func (b appBackend) Calculate(ctx context.Context, expr string) (string, error) {
	return b.Calc.Call(ctx, expr)
}

func (b appBackend) Ready() bool { return b.Index.Ready() }

func (b appBackend) Summary() string { return b.Index.Summary() }
