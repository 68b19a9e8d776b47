package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/snakechain/internal/core"
	"github.com/vovakirdan/snakechain/internal/game"
	"github.com/vovakirdan/snakechain/internal/input"
	"github.com/vovakirdan/snakechain/internal/leaderboard"
	"github.com/vovakirdan/snakechain/internal/storage"
	"github.com/vovakirdan/snakechain/internal/submit"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

// GameRecorder stores finished games.
type GameRecorder interface {
	SaveGame(ctx context.Context, g storage.GameRecord) (int64, error)
}

// Deps are the collaborators of the game screen. Any of them may be nil;
// the matching feature is then unavailable.
type Deps struct {
	Submitter   *submit.Submitter
	Leaderboard *leaderboard.Sync
	Games       GameRecorder
	Approvals   *ApprovalQueue
	Logger      *log.Logger
	Account     string
}

// Options configures a game screen.
type Options struct {
	Params          game.Params
	Seed            int64 // 0 picks a time-based seed
	DeadZone        int
	ShowLeaderboard bool
	ScreenshotDir   string
}

type (
	submissionMsg  submit.Submission
	submitDoneMsg  struct{ sub submit.Submission }
	leaderboardMsg leaderboard.Snapshot
	refreshDoneMsg struct{ err error }
	activatedMsg   struct{ err error }
	gameSavedMsg   struct {
		id  int64
		err error
	}
)

// Model is the Bubble Tea model for a snake game with on-ledger score
// submission.
type Model struct {
	ctx  context.Context
	deps Deps
	opts Options
	log  *log.Logger

	engine  *game.Engine
	seed    int64
	gen     uint64
	screen  *core.Screen
	gesture input.Gesture

	keys      GameKeyMap
	help      help.Model
	board     LeaderboardView
	showBoard bool

	sub      submit.Submission
	hasSub   bool
	notified bool
	approval *approvalMsg
	saved    bool
	notice   string

	width    int
	height   int
	quitting bool
}

// NewModel creates a game screen waiting for the player to start.
func NewModel(ctx context.Context, deps Deps, opts Options) Model {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	engine := game.New(opts.Params, opts.Seed)
	p := engine.Params()
	w, h := boardSize(p.Cols, p.Rows)

	pageSize := leaderboard.DefaultPageSize
	if deps.Leaderboard != nil {
		pageSize = deps.Leaderboard.PageSize()
	}

	return Model{
		ctx:       ctx,
		deps:      deps,
		opts:      opts,
		log:       logger,
		engine:    engine,
		seed:      opts.Seed,
		screen:    core.NewScreen(w, h),
		gesture:   input.Gesture{DeadZone: opts.DeadZone},
		keys:      DefaultGameKeyMap(),
		help:      help.New(),
		board:     NewLeaderboardView(pageSize, deps.Account),
		showBoard: opts.ShowLeaderboard && deps.Leaderboard != nil,
	}
}

// Init starts the background listeners. Ticks begin once the game starts.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitSubmission(m.ctx, m.deps.Submitter),
		m.deps.Approvals.wait(m.ctx),
	}
	if m.deps.Leaderboard != nil {
		cmds = append(cmds,
			activateCmd(m.ctx, m.deps.Leaderboard),
			waitLeaderboard(m.ctx, m.deps.Leaderboard),
			m.board.SpinnerTick(),
		)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick(msg)

	case submissionMsg:
		m.applySubmission(submit.Submission(msg))
		return m, waitSubmission(m.ctx, m.deps.Submitter)

	case submitDoneMsg:
		m.applySubmission(msg.sub)
		return m, nil

	case approvalMsg:
		if m.approval != nil {
			// One signature at a time.
			msg.answer(wallet.ErrUserRejected)
			return m, m.deps.Approvals.wait(m.ctx)
		}
		m.approval = &msg
		return m, nil

	case leaderboardMsg:
		m.board.SetSnapshot(leaderboard.Snapshot(msg))
		return m, waitLeaderboard(m.ctx, m.deps.Leaderboard)

	case refreshDoneMsg:
		m.board.SetNotice(refreshNotice(msg.err))
		return m, nil

	case activatedMsg:
		if msg.err != nil {
			m.log.Warn("leaderboard events unavailable", "err", msg.err)
			m.board.SetNotice("live updates unavailable")
		}
		return m, nil

	case gameSavedMsg:
		if msg.err != nil {
			m.log.Warn("save game", "err", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		return m, m.board.UpdateSpinner(msg)
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A pending signature request captures y/n before anything else.
	if m.approval != nil {
		switch {
		case key.Matches(msg, m.keys.Approve):
			m.approval.answer(nil)
			m.approval = nil
			return m, m.deps.Approvals.wait(m.ctx)
		case key.Matches(msg, m.keys.Reject):
			m.approval.answer(wallet.ErrUserRejected)
			m.approval = nil
			return m, m.deps.Approvals.wait(m.ctx)
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.approval != nil {
			m.approval.answer(wallet.ErrUserRejected)
			m.approval = nil
		}
		m.quitting = true
		return m, tea.Quit
	case msg.String() == "ctrl+s":
		m.saveScreenshot()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Board):
		if m.deps.Leaderboard != nil {
			m.showBoard = !m.showBoard
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		if m.deps.Leaderboard == nil {
			return m, nil
		}
		return m, refreshCmd(m.ctx, m.deps.Leaderboard)
	case key.Matches(msg, m.keys.PrevPage):
		m.board.PrevPage()
		return m, nil
	case key.Matches(msg, m.keys.NextPage):
		m.board.NextPage()
		return m, nil
	case m.engine.State().Status == game.StatusIdle:
		return m.startKey(msg)
	case key.Matches(msg, m.keys.Pause):
		return m.togglePause()
	case key.Matches(msg, m.keys.Restart):
		status := m.engine.State().Status
		if status == game.StatusGameOver || status == game.StatusPaused {
			return m.restart()
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if d, ok := m.keys.Direction(msg); ok {
		m.engine.SetDirection(d)
	}
	return m, nil
}

// handleMouse feeds press/release pairs to the swipe classifier. Board
// cells are cellWidth columns wide, so horizontal distance is scaled to
// cells first.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonLeft && msg.Action != tea.MouseActionRelease {
		return m, nil
	}
	switch msg.Action {
	case tea.MouseActionPress:
		m.gesture.Press(msg.X/cellWidth, msg.Y)
	case tea.MouseActionRelease:
		if d, ok := m.gesture.Release(msg.X/cellWidth, msg.Y); ok {
			m.engine.SetDirection(d)
		}
	}
	return m, nil
}

// handleTick processes simulation ticks.
func (m Model) handleTick(msg TickMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.gen {
		return m, nil
	}
	res := m.engine.Tick()
	st := m.engine.State()
	if res.Died {
		m.gen++
		return m, m.saveGame()
	}
	if st.Status != game.StatusRunning {
		return m, nil
	}
	return m, tickCmd(st.TickInterval, m.gen)
}

// startKey starts an idle game on space, enter or a direction key. A
// direction key also sets the first heading.
func (m Model) startKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d, steer := m.keys.Direction(msg)
	if !steer && !key.Matches(msg, m.keys.Pause) && !key.Matches(msg, m.keys.Submit) {
		return m, nil
	}
	m.engine.Reset()
	m.gen++
	if steer {
		m.engine.SetDirection(d)
	}
	return m, tickCmd(m.engine.State().TickInterval, m.gen)
}

func (m Model) togglePause() (tea.Model, tea.Cmd) {
	m.engine.TogglePause()
	m.gen++
	st := m.engine.State()
	if st.Status == game.StatusRunning {
		return m, tickCmd(st.TickInterval, m.gen)
	}
	return m, nil
}

// restart starts a new game with a new seed. A submission still in flight
// keeps running but is no longer shown.
func (m Model) restart() (tea.Model, tea.Cmd) {
	m.seed = time.Now().UnixNano()
	m.engine = game.New(m.opts.Params, m.seed)
	m.engine.Reset()
	m.gen++
	m.sub, m.hasSub, m.notified = submit.Submission{}, false, false
	m.saved = false
	m.notice = ""
	return m, tickCmd(m.engine.State().TickInterval, m.gen)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	st := m.engine.State()
	if st.Status != game.StatusGameOver {
		return m, nil
	}
	if m.hasSub && m.sub.Status != submit.StatusNone {
		return m, nil
	}
	if m.deps.Submitter == nil {
		m.notice = "score submission is not available here"
		return m, nil
	}
	id := uuid.NewString()
	m.sub = submit.Submission{ID: id, Score: st.Score, Status: submit.StatusPreparing}
	m.hasSub, m.notified = true, false
	m.notice = ""

	s, ctx, score := m.deps.Submitter, m.ctx, st.Score
	return m, func() tea.Msg {
		sub, err := s.SubmitAs(ctx, id, score)
		if err != nil && !errors.Is(err, submit.ErrPrecondition) {
			m.log.Debug("submission ended", "id", id, "err", err)
		}
		return submitDoneMsg{sub: sub}
	}
}

// applySubmission shows an update for the current submission. Updates for
// older submissions are ignored.
func (m *Model) applySubmission(sub submit.Submission) {
	if !m.hasSub || sub.ID != m.sub.ID {
		return
	}
	if sub.UpdatedAt.Before(m.sub.UpdatedAt) {
		return
	}
	if m.sub.Status.Terminal() && !sub.Status.Terminal() {
		return
	}
	m.sub = sub
	if sub.TxID != "" && !m.notified && m.deps.Leaderboard != nil {
		m.notified = true
		m.deps.Leaderboard.NotifySubmitted(sub.TxID)
	}
}

func (m *Model) saveGame() tea.Cmd {
	if m.saved || m.deps.Games == nil {
		return nil
	}
	m.saved = true
	snap := m.engine.Snapshot()
	rec := storage.GameRecord{
		Score:  snap.Score,
		Length: len(snap.Snake),
		Ticks:  int64(snap.Tick),
		Seed:   m.seed,
	}
	games, ctx := m.deps.Games, m.ctx
	return func() tea.Msg {
		id, err := games.SaveGame(context.WithoutCancel(ctx), rec)
		return gameSavedMsg{id: id, err: err}
	}
}

// saveScreenshot saves the current board to a file.
func (m *Model) saveScreenshot() {
	if m.opts.ScreenshotDir == "" {
		return
	}
	drawBoard(m.screen, m.engine.Snapshot())
	//nolint:errcheck // Best-effort directory creation
	os.MkdirAll(m.opts.ScreenshotDir, 0o755)

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(m.opts.ScreenshotDir, fmt.Sprintf("snake_%s.txt", timestamp))
	if err := os.WriteFile(path, []byte(m.screen.String()), 0o600); err != nil {
		m.log.Warn("screenshot", "err", err)
		return
	}
	m.notice = "saved " + path
}

// View renders the board with the status panel beside it.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.engine.Snapshot()
	drawBoard(m.screen, snap)
	board := RenderScreen(m.screen)

	body := lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", m.panel(snap))
	return body + "\n" + styleFor(core.ColorMuted).Render(m.help.View(m.keys))
}

func (m Model) panel(snap game.Snapshot) string {
	label := styleFor(core.ColorMuted)
	value := styleFor(core.ColorHUD).Bold(true)
	accent := styleFor(core.ColorAccent)
	warn := styleFor(core.ColorWarn).Bold(true)

	var b strings.Builder
	b.WriteString(accent.Bold(true).Render("SNAKECHAIN"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", label.Render("Score "), value.Render(fmt.Sprint(snap.Score)))
	fmt.Fprintf(&b, "%s %s\n", label.Render("Length"), value.Render(fmt.Sprint(len(snap.Snake))))
	fmt.Fprintf(&b, "%s %s\n", label.Render("Speed "), value.Render(snap.TickInterval.String()))
	if snap.Status != game.StatusIdle {
		fmt.Fprintf(&b, "%s %s\n", label.Render("Going "), value.Render(m.engine.Pending().String()))
	}
	if m.deps.Account != "" {
		fmt.Fprintf(&b, "%s %s\n", label.Render("Wallet"), submit.ShortID(m.deps.Account))
	}

	if m.hasSub {
		b.WriteString("\n")
		b.WriteString(submissionStyle(m.sub).Render(submit.Message(m.sub)))
		b.WriteString("\n")
	}
	if m.approval != nil {
		b.WriteString("\n")
		b.WriteString(warn.Render("Sign score transaction?"))
		fmt.Fprintf(&b, "\n%s\n", label.Render(fmt.Sprintf("chain %d  from %s",
			m.approval.req.ChainID, submit.ShortID(m.approval.req.Account))))
		b.WriteString(warn.Render("y") + " approve  " + warn.Render("n") + " reject\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(label.Render(m.notice))
		b.WriteString("\n")
	}
	if m.showBoard {
		b.WriteString("\n")
		b.WriteString(m.board.View())
	}
	return b.String()
}

func submissionStyle(s submit.Submission) lipgloss.Style {
	switch s.Status {
	case submit.StatusConfirmed:
		return styleFor(core.ColorOK)
	case submit.StatusFailed:
		return styleFor(core.ColorError)
	case submit.StatusNone:
		if s.ErrKind != submit.KindNone {
			return styleFor(core.ColorWarn)
		}
	}
	return styleFor(core.ColorAccent)
}

// waitSubmission delivers the next submission update, or nothing once ctx
// is done.
func waitSubmission(ctx context.Context, s *submit.Submitter) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case sub := <-s.Updates():
			return submissionMsg(sub)
		case <-ctx.Done():
			return nil
		}
	}
}

// waitLeaderboard delivers the next leaderboard snapshot, or nothing once
// ctx is done.
func waitLeaderboard(ctx context.Context, s *leaderboard.Sync) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case snap := <-s.Updates():
			return leaderboardMsg(snap)
		case <-ctx.Done():
			return nil
		}
	}
}

func activateCmd(ctx context.Context, s *leaderboard.Sync) tea.Cmd {
	return func() tea.Msg { return activatedMsg{err: s.Activate(ctx)} }
}

func refreshCmd(ctx context.Context, s *leaderboard.Sync) tea.Cmd {
	return func() tea.Msg {
		_, err := s.RefreshNow(ctx)
		return refreshDoneMsg{err: err}
	}
}

// Run starts the game screen and blocks until the player quits. The
// leaderboard sync, if any, is deactivated on return.
func Run(ctx context.Context, deps Deps, opts Options) error {
	if deps.Leaderboard != nil {
		defer deps.Leaderboard.Deactivate()
	}
	p := tea.NewProgram(
		NewModel(ctx, deps, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
