package report

import (
	"errors"
	"io"

	"github.com/bnema/nodetel/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type viewFunc func(styles) string

type model struct {
	view   viewFunc
	styles styles
	output string
}

func newModel(view viewFunc) model {
	return model{view: view, styles: newStyles()}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func run(view viewFunc) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

func RenderRound(result domain.RoundResult, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return renderRound(result, opts, s) })
}

func RenderVerdict(verdict domain.Verdict, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return renderVerdict(verdict, opts, s) })
}

func RenderSnapshot(snapshot domain.HardwareSnapshot, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return renderSnapshot(snapshot, opts, s) })
}

// RenderCacheEntry renders the last transmitted snapshot; a nil entry means
// the cache is empty.
func RenderCacheEntry(entry *domain.CacheEntry, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return renderCacheEntry(entry, opts, s) })
}
