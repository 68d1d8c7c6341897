package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragagent/internal/agent"
	"ragagent/internal/domain"
	"ragagent/internal/service"
	"ragagent/internal/textutil"
)

const (
	previewRunes = 400
	helpText     = "Ask a question, or /build <paths>, /load, /clear, /calc <expr>. Up/down cycles chunks."
)

type askDoneMsg struct {
	question string
	result   agent.Result
	chunks   []domain.SearchResult
	err      error
}

type indexDoneMsg struct {
	status string
	err    error
}

type calcDoneMsg struct {
	expr string
	out  string
	err  error
}

// Model is the Bubble Tea model for the agent console.
type Model struct {
	ctx      context.Context
	backend  Backend
	topK     int
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	busy      bool
	answer    string
	steps     []agent.Step
	results   []domain.SearchResult
	cursor    int
	status    string
	lastQuery string
	ready     bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, backend Backend, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the agent, or type /help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if topK <= 0 {
		topK = service.DefaultTopK
	}
	status := "No index loaded. " + helpText
	if backend.Ready() {
		status = "Index loaded. " + helpText
	}
	return Model{ctx: ctx, backend: backend, topK: topK, input: ti, viewport: vp, spinner: sp, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case askDoneMsg:
		m.busy = false
		m.answer, m.steps = msg.result.Output, msg.result.Steps
		m.results, m.cursor, m.lastQuery = msg.chunks, 0, msg.question
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered %q", msg.question)
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case indexDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		m.results, m.cursor = nil, 0
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case calcDoneMsg:
		m.busy = false
		m.answer, m.steps, m.results = "", nil, nil
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.answer = msg.expr + " => " + msg.out
			m.status = "Calculated."
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			next, work := m.dispatch(line)
			if work == nil {
				return next, nil
			}
			next.busy = true
			return next, tea.Batch(next.spinner.Tick, work)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch turns an input line into the command that performs it. A nil
// command means the line was handled synchronously.
func (m Model) dispatch(line string) (Model, tea.Cmd) {
	if !strings.HasPrefix(line, "/") {
		m.status = "Thinking..."
		return m, m.askCmd(line)
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/build":
		paths := strings.Fields(arg)
		if len(paths) == 0 {
			m.status = "Usage: /build <file or glob> ..."
			return m, nil
		}
		m.status = "Building index..."
		return m, m.indexCmd(func(ctx context.Context) (string, error) {
			man, err := m.backend.Build(ctx, paths)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Index built: %d documents, %d chunks.", len(man.Documents), man.Chunks), nil
		})
	case "/load":
		m.status = "Loading index..."
		return m, m.indexCmd(func(ctx context.Context) (string, error) {
			man, err := m.backend.Load(ctx)
			if errors.Is(err, service.ErrNoIndex) {
				return "No index found.", nil
			}
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Loaded index: %d chunks.", man.Chunks), nil
		})
	case "/clear":
		m.status = "Clearing index..."
		return m, m.indexCmd(func(ctx context.Context) (string, error) {
			cleared, err := m.backend.Clear(ctx)
			if err != nil {
				return "", err
			}
			if !cleared {
				return "Nothing to clear.", nil
			}
			return "Index cleared.", nil
		})
	case "/calc":
		if arg == "" {
			m.status = "Usage: /calc <expression>"
			return m, nil
		}
		ctx, backend := m.ctx, m.backend
		return m, func() tea.Msg {
			out, err := backend.Calculate(ctx, arg)
			return calcDoneMsg{expr: arg, out: out, err: err}
		}
	case "/help":
		m.status = helpText
		return m, nil
	}
	m.status = "Unknown command " + name + ". " + helpText
	return m, nil
}

func (m Model) askCmd(question string) tea.Cmd {
	ctx, backend, k := m.ctx, m.backend, m.topK
	return func() tea.Msg {
		res, err := backend.Ask(ctx, question)
		var chunks []domain.SearchResult
		if backend.Ready() {
			chunks, _ = backend.Query(ctx, question, k)
		}
		return askDoneMsg{question: question, result: res, chunks: chunks, err: err}
	}
}

func (m Model) indexCmd(run func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		status, err := run(ctx)
		return indexDoneMsg{status: status, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Agent")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summaryLine())
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) summaryLine() string {
	s := strings.Join(strings.Fields(m.backend.Summary()), " ")
	if s == "" {
		return "No index summary."
	}
	if w := m.viewport.Width; w > 3 && len([]rune(s)) > w {
		s = string([]rune(s)[:w-3]) + "..."
	}
	return s
}

func (m Model) renderContent() string {
	var b strings.Builder
	if m.answer != "" {
		b.WriteString(titleStyle.Render("Agent Response"))
		b.WriteString("\n")
		b.WriteString(m.answer)
		b.WriteString("\n")
	}
	for _, st := range m.steps {
		fmt.Fprintf(&b, "  [%s] %s\n", st.Tool, st.Input)
	}
	if len(m.results) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderCurrentResult())
	}
	if b.Len() == 0 {
		return "No results yet."
	}
	return b.String()
}

func (m Model) renderCurrentResult() string {
	r := m.results[m.cursor]
	title := titleStyle.Render(fmt.Sprintf("Top RAG Chunks %d/%d", m.cursor+1, len(m.results)))
	meta := fmt.Sprintf("Source: %s | Score: %.4f", r.Chunk.Source, r.Score)
	body := highlightBestSentence(preview(r.Chunk.Text, previewRunes), m.lastQuery)
	return title + "\n" + meta + "\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	qTokens := textutil.WordSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := textutil.Overlap(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}
