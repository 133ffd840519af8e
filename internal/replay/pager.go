package replay

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/wordwrap"
)

// Pager displays a rendered timeline in an interactive terminal viewport.
type Pager struct {
	title string
}

// NewPager creates a pager titled title.
func NewPager(title string) *Pager {
	return &Pager{title: title}
}

// Run shows static content until the user quits.
func (p *Pager) Run(content string) error {
	prog := tea.NewProgram(
		&pagerModel{title: p.title, content: content},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := prog.Run()
	return err
}

// RunLive shows content re-rendered by render whenever the event log at
// path grows, so a running session can be watched as it executes.
func (p *Pager) RunLive(path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	prog := tea.NewProgram(
		&pagerModel{
			title:   p.title,
			content: content,
			live:    true,
			render:  render,
			watcher: watcher,
		},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = prog.Run()
	return err
}

type logGrewMsg struct{}

type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	wrapped  string
	ready    bool

	live    bool
	render  func() (string, error)
	watcher *fsnotify.Watcher

	searching   bool
	searchInput textinput.Model
	query       string
	matches     []int
	matchIndex  int
	noMatch     bool
}

func (m *pagerModel) Init() tea.Cmd {
	if m.live && m.watcher != nil {
		return m.waitForWrite()
	}
	return nil
}

func (m *pagerModel) waitForWrite() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Let the append settle before re-reading.
					time.Sleep(100 * time.Millisecond)
					return logGrewMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	if m.searching {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter":
				m.query = m.searchInput.Value()
				m.searching = false
				m.findMatches()
				if len(m.matches) > 0 {
					m.jumpTo(0)
				}
				return m, nil
			case "esc", "ctrl+c":
				m.searching = false
				m.clearSearch()
				return m, nil
			}
		}
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case logGrewMsg:
		if m.render != nil {
			if content, err := m.render(); err == nil {
				atBottom := m.viewport.AtBottom()
				m.content = content
				m.reflow()
				if atBottom {
					m.viewport.GotoBottom()
				}
				if m.query != "" {
					m.findMatches()
				}
			}
		}
		cmds = append(cmds, m.waitForWrite())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.query != "" {
				m.clearSearch()
			} else {
				return m, tea.Quit
			}
		case "g":
			m.viewport.GotoTop()
		case "G", "f":
			m.viewport.GotoBottom()
		case "/":
			m.searching = true
			m.searchInput = textinput.New()
			m.searchInput.Placeholder = "Search..."
			m.searchInput.Focus()
			m.searchInput.CharLimit = 100
			m.searchInput.Width = 40
			m.searchInput.SetValue(m.query)
			return m, textinput.Blink
		case "n":
			if len(m.matches) > 0 {
				m.matchIndex = (m.matchIndex + 1) % len(m.matches)
				m.jumpTo(m.matchIndex)
			}
		case "N":
			if len(m.matches) > 0 {
				m.matchIndex--
				if m.matchIndex < 0 {
					m.matchIndex = len(m.matches) - 1
				}
				m.jumpTo(m.matchIndex)
			}
		}

	case tea.WindowSizeMsg:
		const chromeHeight = 2 // header + footer
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chromeHeight)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chromeHeight
		}
		m.reflow()
		if m.query != "" {
			m.findMatches()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *pagerModel) reflow() {
	m.wrapped = wordwrap.String(m.content, max(m.viewport.Width, 20))
	m.viewport.SetContent(m.wrapped)
}

func (m *pagerModel) clearSearch() {
	m.query = ""
	m.matches = nil
	m.noMatch = false
}

func (m *pagerModel) findMatches() {
	m.matches = nil
	m.matchIndex = 0
	m.noMatch = false
	if m.query == "" {
		return
	}
	query := strings.ToLower(m.query)
	for i, line := range strings.Split(m.wrapped, "\n") {
		if strings.Contains(strings.ToLower(line), query) {
			m.matches = append(m.matches, i)
		}
	}
	m.noMatch = len(m.matches) == 0
}

func (m *pagerModel) jumpTo(index int) {
	if index < 0 || index >= len(m.matches) {
		return
	}
	offset := m.matches[index] - m.viewport.Height/2
	offset = min(offset, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.YOffset = max(offset, 0)
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := headerStyle.Render(m.title)
	rule := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))
	header := lipgloss.JoinHorizontal(lipgloss.Center, title, ruleStyle.Render(rule))

	var footer string
	switch {
	case m.searching:
		footer = warnStyle.Render("/") + m.searchInput.View()
	case m.noMatch:
		footer = dimStyle.Render(" " + errStyle.Render("Pattern not found") + " │ /: search ")
	case len(m.matches) > 0:
		pos := warnStyle.Render(fmt.Sprintf("[%d/%d]", m.matchIndex+1, len(m.matches)))
		footer = dimStyle.Render(fmt.Sprintf(" %s │ n/N: next/prev │ /: search │ esc: clear ", pos))
	case m.live:
		footer = dimStyle.Render(fmt.Sprintf(" %s │ q: quit │ /: search │ f: follow │ g/G: top/bottom ",
			okStyle.Bold(true).Render("● LIVE")))
	default:
		footer = dimStyle.Render(" q: quit │ /: search │ n/N: next/prev │ g/G: top/bottom ")
	}

	return header + "\n" + m.viewport.View() + "\n" + footer
}
