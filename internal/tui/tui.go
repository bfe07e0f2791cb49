// Package tui is the interactive search screen: a query box over a
// results table, with indexing running in the background and progress
// streamed into the UI.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sigidx/internal/cparse"
	"sigidx/internal/index"
	"sigidx/internal/model"
	"sigidx/internal/query"
	"sigidx/internal/store"
)

const (
	searchDebounce = 250 * time.Millisecond
	resultLimit    = 300
	resultTop      = 50
)

// programRef lets background goroutines send messages to the running
// tea.Program. Set after tea.NewProgram returns, before Run.
type programRef struct {
	p *tea.Program
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	Root    string
	DBPath  string
	Workers int

	program *programRef
}

type progressMsg index.Progress

type indexDoneMsg struct {
	summary *index.Summary
	err     error
}

type searchTickMsg struct{ seq int }

type resultsMsg struct {
	seq  int
	rows []model.Candidate
	err  error
}

// Model is the top-level Bubble Tea model.
type Model struct {
	config Config
	parser *cparse.Parser

	input   textinput.Model
	results table.Model
	spinner spinner.Model

	width  int
	height int

	indexing    bool
	cancelIndex context.CancelFunc
	progress    index.Progress
	status      string
	searchErr   string
	searchSeq   int
}

// New creates the TUI model.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = `Search, e.g. "add :: int (int, int)"`
	ti.Focus()

	tbl := table.New(
		table.WithColumns(resultColumns(80)),
		table.WithFocused(false),
		table.WithHeight(12),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		config:  cfg,
		parser:  cparse.NewParser(),
		input:   ti,
		results: tbl,
		spinner: sp,
		status:  "idle",
	}
}

func resultColumns(width int) []table.Column {
	loc := width / 3
	name := width / 5
	sig := width - loc - name - 6
	if sig < 10 {
		sig = 10
	}
	return []table.Column{
		{Title: "Location", Width: loc},
		{Title: "Name", Width: name},
		{Title: "Signature", Width: sig},
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetColumns(resultColumns(msg.Width))
		if h := msg.Height - 8; h > 3 {
			m.results.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.cancelIndex != nil {
				m.cancelIndex()
			}
			return m, tea.Quit
		case "ctrl+r":
			return m.startIndex()
		case "ctrl+x":
			if m.cancelIndex != nil {
				m.cancelIndex()
				m.status = "canceling..."
			}
			return m, nil
		}

	case progressMsg:
		m.progress = index.Progress(msg)
		return m, nil

	case indexDoneMsg:
		m.indexing = false
		m.cancelIndex = nil
		if msg.err != nil {
			m.status = "index failed: " + msg.err.Error()
		} else if msg.summary.Canceled {
			m.status = fmt.Sprintf("index canceled: %d/%d files done", msg.summary.FilesDone, msg.summary.FilesTotal)
		} else {
			m.status = fmt.Sprintf("indexed=%d skipped=%d failed=%d functions=%d",
				msg.summary.FilesIndexed, msg.summary.FilesSkipped,
				msg.summary.FilesFailed, msg.summary.FunctionsTotal)
		}
		return m, nil

	case searchTickMsg:
		if msg.seq != m.searchSeq {
			return m, nil // superseded by newer input
		}
		return m, m.doSearch(msg.seq, m.input.Value())

	case resultsMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		if msg.err != nil {
			m.searchErr = msg.err.Error()
			m.results.SetRows(nil)
			return m, nil
		}
		m.searchErr = ""
		rows := make([]table.Row, 0, len(msg.rows))
		for _, c := range msg.rows {
			rows = append(rows, table.Row{
				fmt.Sprintf("%s:%d:%d", c.Path, c.Line, c.Column),
				c.Name,
				c.SignatureNorm,
			})
		}
		m.results.SetRows(rows)
		return m, nil

	case spinner.TickMsg:
		if !m.indexing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.searchSeq++
		seq := m.searchSeq
		debounce := tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchTickMsg{seq: seq}
		})
		return m, tea.Batch(cmd, debounce)
	}
	return m, cmd
}

func (m Model) startIndex() (tea.Model, tea.Cmd) {
	if m.indexing {
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.indexing = true
	m.cancelIndex = cancel
	m.status = "indexing..."

	cfg := m.config
	parse := m.parser.ParseFile
	run := func() tea.Msg {
		summary, err := index.Run(ctx, index.Config{
			Root:    cfg.Root,
			DBPath:  cfg.DBPath,
			Workers: cfg.Workers,
			Parse:   parse,
			OnProgress: func(p index.Progress) {
				if cfg.program != nil && cfg.program.p != nil {
					cfg.program.p.Send(progressMsg(p))
				}
			},
		})
		return indexDoneMsg{summary: summary, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

// doSearch runs a query against the store off the UI goroutine. Search
// failures land in the status line, never abort the app.
func (m Model) doSearch(seq int, text string) tea.Cmd {
	dbPath := m.config.DBPath
	return func() tea.Msg {
		text = strings.TrimSpace(text)
		if text == "" {
			return resultsMsg{seq: seq}
		}

		q, err := query.Parse(text, cparse.Normalize)
		if err != nil {
			return resultsMsg{seq: seq, err: err}
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return resultsMsg{seq: seq, err: err}
		}
		defer s.Close()

		candidates, err := s.FetchCandidates(q, resultLimit)
		if err != nil {
			return resultsMsg{seq: seq, err: err}
		}
		return resultsMsg{seq: seq, rows: query.Rank(candidates, q, resultTop)}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" sigidx ") + statusStyle.Render(" "+m.config.Root) + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.results.View() + "\n")

	if m.searchErr != "" {
		b.WriteString(errorStyle.Render("Search error: "+m.searchErr) + "\n")
	}

	if m.indexing {
		b.WriteString(fmt.Sprintf("%s %s  %s\n",
			m.spinner.View(),
			statusStyle.Render(m.status),
			progressStyle.Render(progressLine(m.progress))))
	} else {
		b.WriteString(statusStyle.Render("Index: "+m.status) + "\n")
	}

	b.WriteString(helpStyle.Render("ctrl+r index · ctrl+x cancel · esc quit"))
	return b.String()
}

func progressLine(p index.Progress) string {
	return fmt.Sprintf("%d/%d files done, indexed=%d, skipped=%d, errors=%d, functions=%d",
		p.FilesDone, p.FilesTotal, p.FilesIndexed, p.FilesSkipped, p.FilesFailed, p.FunctionsTotal)
}

// Run starts the TUI program.
func Run(cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
