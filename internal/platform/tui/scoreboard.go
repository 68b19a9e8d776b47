package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/snakechain/internal/leaderboard"
	"github.com/vovakirdan/snakechain/internal/submit"
)

// LeaderboardView renders one page of the on-ledger leaderboard with its
// load state. It is embedded in the game screen and in the standalone
// leaderboard screen.
type LeaderboardView struct {
	table    table.Model
	spinner  spinner.Model
	snap     leaderboard.Snapshot
	page     int
	pageSize int
	account  string
	notice   string
}

// NewLeaderboardView creates a view paging pageSize rows. account, when
// set, is highlighted.
func NewLeaderboardView(pageSize int, account string) LeaderboardView {
	if pageSize <= 0 {
		pageSize = leaderboard.DefaultPageSize
	}
	v := LeaderboardView{
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		page:     1,
		pageSize: pageSize,
		account:  strings.ToLower(account),
	}
	v.table = v.createTable()
	return v
}

// createTable creates a new table with appropriate columns.
func (v *LeaderboardView) createTable() table.Model {
	columns := []table.Column{
		{Title: "Rank", Width: 5},
		{Title: "Player", Width: 15},
		{Title: "Score", Width: 7},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(v.pageSize+1),
	)

	// Table styles
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)

	return t
}

// SetSnapshot shows a new leaderboard state, keeping the current page when
// it still exists.
func (v *LeaderboardView) SetSnapshot(s leaderboard.Snapshot) {
	v.snap = s
	v.updateTableRows()
}

// SetNotice shows a transient line under the table.
func (v *LeaderboardView) SetNotice(msg string) { v.notice = msg }

// NextPage moves forward one page, clamped.
func (v *LeaderboardView) NextPage() { v.page++; v.updateTableRows() }

// PrevPage moves back one page, clamped.
func (v *LeaderboardView) PrevPage() { v.page--; v.updateTableRows() }

// updateTableRows updates the table with the current page.
func (v *LeaderboardView) updateTableRows() {
	entries, n := leaderboard.Paginate(v.snap.Entries, v.page, v.pageSize)
	v.page = n
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		player := submit.ShortID(e.Account)
		if v.account != "" && strings.ToLower(e.Account) == v.account {
			player = "★ " + player
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%d", e.Rank),
			player,
			fmt.Sprintf("%d", e.Score),
		}
	}
	v.table.SetRows(rows)
}

// SpinnerTick starts the loading spinner.
func (v LeaderboardView) SpinnerTick() tea.Cmd { return v.spinner.Tick }

// UpdateSpinner advances the spinner animation.
func (v *LeaderboardView) UpdateSpinner(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	v.spinner, cmd = v.spinner.Update(msg)
	return cmd
}

// View renders the title, table (or empty message) and status line.
func (v LeaderboardView) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	title := "LEADERBOARD"
	if total := leaderboard.TotalPages(len(v.snap.Entries), v.pageSize); total > 1 {
		title = fmt.Sprintf("LEADERBOARD  %d/%d", v.page, total)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if len(v.snap.Entries) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(1, 2)
		msg := "No scores on chain yet."
		if v.snap.State == leaderboard.StateLoading || v.snap.State == leaderboard.StateIdle {
			msg = "Loading scores..."
		}
		b.WriteString(emptyStyle.Render(msg))
	} else {
		b.WriteString(v.table.View())
	}
	b.WriteString("\n")

	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	switch v.snap.State {
	case leaderboard.StateLoading:
		b.WriteString(v.spinner.View() + mutedStyle.Render(" refreshing"))
	case leaderboard.StateError:
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString(errStyle.Render("Could not load leaderboard (g to retry)"))
	default:
		if v.snap.Cached && !v.snap.UpdatedAt.IsZero() {
			b.WriteString(mutedStyle.Render("cached " + v.snap.UpdatedAt.Format("Jan 02 15:04")))
		} else if !v.snap.UpdatedAt.IsZero() {
			b.WriteString(mutedStyle.Render("updated " + v.snap.UpdatedAt.Format("15:04:05")))
		}
	}
	if v.notice != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(v.notice))
	}
	return b.String()
}

// LeaderboardKeyMap defines the key bindings for the standalone screen.
type LeaderboardKeyMap struct {
	PrevPage key.Binding
	NextPage key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k LeaderboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevPage, k.NextPage, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k LeaderboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.PrevPage, k.NextPage}, {k.Refresh, k.Quit}}
}

// DefaultLeaderboardKeyMap returns default key bindings.
func DefaultLeaderboardKeyMap() LeaderboardKeyMap {
	return LeaderboardKeyMap{
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "[", "pgup"),
			key.WithHelp("←/h", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "]", "pgdown"),
			key.WithHelp("→/l", "next page"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("g", "r"),
			key.WithHelp("g", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// LeaderboardModel is the Bubble Tea model for the standalone leaderboard
// screen.
type LeaderboardModel struct {
	ctx      context.Context
	sync     *leaderboard.Sync
	view     LeaderboardView
	help     help.Model
	keys     LeaderboardKeyMap
	width    int
	quitting bool
}

// NewLeaderboardModel creates the standalone screen over an inactive Sync.
func NewLeaderboardModel(ctx context.Context, sync *leaderboard.Sync, account string) LeaderboardModel {
	m := LeaderboardModel{
		ctx:  ctx,
		sync: sync,
		view: NewLeaderboardView(sync.PageSize(), account),
		help: help.New(),
		keys: DefaultLeaderboardKeyMap(),
	}
	m.view.SetSnapshot(sync.State())
	return m
}

// Init activates the sync and starts listening for updates.
func (m LeaderboardModel) Init() tea.Cmd {
	return tea.Batch(
		activateCmd(m.ctx, m.sync),
		waitLeaderboard(m.ctx, m.sync),
		m.view.SpinnerTick(),
	)
}

// Update handles messages for the leaderboard screen.
func (m LeaderboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.PrevPage):
			m.view.PrevPage()
		case key.Matches(msg, m.keys.NextPage):
			m.view.NextPage()
		case key.Matches(msg, m.keys.Refresh):
			return m, refreshCmd(m.ctx, m.sync)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case leaderboardMsg:
		m.view.SetSnapshot(leaderboard.Snapshot(msg))
		return m, waitLeaderboard(m.ctx, m.sync)

	case refreshDoneMsg:
		m.view.SetNotice(refreshNotice(msg.err))
		return m, nil

	case activatedMsg:
		if msg.err != nil {
			m.view.SetNotice("live updates unavailable")
		}
		return m, nil

	case spinner.TickMsg:
		return m, m.view.UpdateSpinner(msg)
	}
	return m, nil
}

// View renders the leaderboard screen.
func (m LeaderboardModel) View() string {
	if m.quitting {
		return ""
	}
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	body := boxStyle.Render(m.view.View()) + "\n" + helpStyle.Render(m.help.View(m.keys))
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, body)
	}
	return body
}

// RunLeaderboard runs the standalone leaderboard screen until the user quits.
// The sync is deactivated on return.
func RunLeaderboard(ctx context.Context, sync *leaderboard.Sync, account string) error {
	defer sync.Deactivate()
	p := tea.NewProgram(
		NewLeaderboardModel(ctx, sync, account),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func refreshNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, leaderboard.ErrRateLimited):
		return "slow down, refreshing too often"
	}
	return "refresh failed"
}
