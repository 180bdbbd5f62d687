package tui

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/tatianab/echo-rooms/internal/affinity"
	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/memory"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

type sessionState int

const (
	stateIntro sessionState = iota
	statePlaying
	stateEnded
	stateError
)

// Options configures a play session.
type Options struct {
	Engine     *engine.Engine
	Saves      *session.Store
	Memory     *memory.Store // optional
	PlayerID   string
	Room3Timer time.Duration
	ExportDir  string
	Resume     *session.Game // optional; a new game is started when nil
}

type model struct {
	state     sessionState
	opts      Options
	game      *session.Game
	greeting  string
	busy      bool
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	err       error
	gameLog   string
	notice    string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	echoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87D7FF"))

	shadowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AF87D7"))

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD787")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Press Enter to open your eyes..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		state:     stateIntro,
		opts:      opts,
		textInput: ti,
		spinner:   sp,
	}
}

type recalledMsg struct {
	rec memory.Recollection
}

// turnProcessedMsg carries the game the turn was played on. It replaces
// m.game only once the turn is done, so View never reads a game the engine
// is still writing.
type turnProcessedMsg struct {
	game   *session.Game
	result *engine.TurnResult
	err    error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.recall())
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.70)
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m *model) appendSystem(text string) {
	m.appendLog(systemStyle.Width(m.logWidth()).Render(text))
}

func (m *model) appendMessage(msg models.Message) {
	style := gameStyle
	name := msg.Speaker
	switch msg.Speaker {
	case models.CompanionEcho:
		style, name = echoStyle, "Echo"
	case models.CompanionShadow:
		style, name = shadowStyle, "Shadow"
	}
	m.appendLog(style.Width(m.logWidth()).Render(name + ": " + msg.Content))
}

func (m *model) start() {
	g := m.opts.Resume
	m.opts.Resume = nil
	if g == nil {
		g = session.NewGame(uuid.NewString(), m.opts.PlayerID, m.opts.Room3Timer, time.Now())
	}
	m.game = g
	m.state = statePlaying
	m.gameLog = ""
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.logWidth(), max(m.height-6, 5))
	}

	room := g.Progression.CurrentRoom()
	m.appendLog(gameStyle.Bold(true).Render(room.Name))
	m.appendLog(gameStyle.Width(m.logWidth()).Render(room.Description))
	if len(g.History.Messages) == 0 {
		if m.greeting != "" {
			m.appendMessage(models.Message{Speaker: models.CompanionEcho, Content: m.greeting})
		}
		m.appendSystem("Type to talk to Echo and Shadow. " + story.RoomHint(room.Number))
	} else {
		for _, msg := range g.History.ContextWindow(12) {
			m.appendMessage(msg)
		}
	}
	m.textInput.Placeholder = "Say something..."
	m.textInput.Reset()
	if g.Ended() {
		m.state = stateEnded
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.save()
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state == stateIntro {
				m.start()
				return m, nil
			}
			if m.busy || (m.state != statePlaying && m.state != stateEnded) {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.Reset()

			if strings.HasPrefix(input, "/") {
				return m.command(input)
			}
			if m.state == stateEnded {
				m.appendSystem("The story is over. /export, /restart or /quit.")
				return m, nil
			}

			m.appendLog(userStyle.Width(m.logWidth()).Render("> " + input))
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.processTurn(input))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-6, 5)
		if m.state != stateIntro {
			m.viewport.SetContent(m.gameLog)
		}

	case recalledMsg:
		m.greeting = msg.rec.Greeting()

	case turnProcessedMsg:
		m.busy = false
		if m.game == nil || msg.game == nil || msg.game.ID != m.game.ID {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.game = msg.game
		m.showTurn(msg.result)
		m.save()
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) showTurn(r *engine.TurnResult) {
	if r.Timeout != nil {
		m.appendSystem(fmt.Sprintf("The arena clock hits zero. %s goes dark.", companionName(r.Timeout.Sacrificed)))
	}
	if c := r.Completion; c != nil && c.Completed {
		if c.Fragment != nil {
			m.appendSystem(fmt.Sprintf("Memory recovered: %s\n%s", c.Fragment.Title, c.Fragment.Content))
		}
		if c.Next != nil {
			m.appendLog(gameStyle.Bold(true).Render(c.Next.Name))
			if c.Scenario != "" {
				m.appendLog(gameStyle.Width(m.logWidth()).Render(c.Scenario))
			}
		}
	}
	for _, reply := range r.Replies {
		m.appendMessage(reply)
	}
	if r.Ending != nil {
		m.appendLog(titleStyle.Render(story.Title(r.Ending.Ending)))
		m.appendLog(gameStyle.Width(m.logWidth()).Render(r.Narrative))
		if q := story.Quote(r.Ending.Ending); q != "" {
			m.appendSystem(q)
		}
		m.state = stateEnded
		m.remember()
	}
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateIntro:
		s = fmt.Sprintf(
			"%s\n\n%s\n\n%s",
			titleStyle.Render("ECHO ROOMS"),
			"You wake in a white room. Two voices are already talking about you.",
			m.textInput.View(),
		)

	case statePlaying, stateEnded:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)

		input := m.textInput.View()
		if m.busy {
			input = m.spinner.View() + " Echo and Shadow are thinking..."
		}
		help := "Commands: /view <clue>, /choose <choice>, /status, /save, /export, /restart, /quit"
		if m.notice != "" {
			help = m.notice
		}

		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+input,
			"\n"+helpStyle.Render(help),
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	if m.game == nil {
		return ""
	}
	g := m.game
	room := g.Progression.CurrentRoom()
	key := story.ClueKey(room.Number)

	var b strings.Builder
	b.WriteString(titleStyle.Render("ROOM") + "\n")
	fmt.Fprintf(&b, "%d/%d %s\n", room.Number, models.RoomCount, room.Name)
	b.WriteString(room.Objective + "\n")
	if g.Progression.Timer.Running() && !g.Progression.Timer.Resolved && room.Number == models.RoomTestingArena {
		fmt.Fprintf(&b, "Time left: %s\n", g.Progression.Timer.Remaining(time.Now()).Round(time.Second))
	}
	b.WriteString("\n")

	if clues := room.Clues(); len(clues) > 0 {
		b.WriteString(titleStyle.Render("CLUES") + "\n")
		for _, clue := range clues {
			mark := "·"
			if g.Puzzles.Has(key, clue) {
				mark = "✓"
			}
			fmt.Fprintf(&b, "%s %s\n", mark, clue)
		}
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("COMPANIONS") + "\n")
	for _, c := range session.Companions {
		score := g.Affinity.Get(models.PlayerID, c)
		fmt.Fprintf(&b, "%s: %s\n", companionName(c), affinity.Describe(score))
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("MEMORIES") + "\n")
	if len(g.Progression.Fragments) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, f := range g.Progression.Fragments {
		b.WriteString("- " + f.Title + "\n")
	}

	if g.Ending != nil {
		b.WriteString("\n" + titleStyle.Render("ENDING") + "\n" + story.Title(g.Ending.Ending) + "\n")
	}

	stateWidth := int(float64(m.width) * 0.27)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(b.String())
}

func (m model) recall() tea.Cmd {
	if m.opts.Memory == nil || m.opts.PlayerID == "" {
		return nil
	}
	mem, id := m.opts.Memory, m.opts.PlayerID
	return func() tea.Msg {
		rec, err := mem.Recall(context.Background(), id)
		if err != nil {
			log.Printf("[memory] recall failed: %v", err)
		}
		return recalledMsg{rec}
	}
}

func (m model) processTurn(input string) tea.Cmd {
	eng, g := m.opts.Engine, m.game.Clone()
	return func() tea.Msg {
		result, err := eng.ProcessTurn(context.Background(), g, input)
		return turnProcessedMsg{game: g, result: result, err: err}
	}
}

func (m *model) save() {
	if m.game == nil || m.opts.Saves == nil {
		return
	}
	if err := m.opts.Saves.Save(m.game); err != nil {
		log.Printf("[engine] save %s failed: %v", m.game.ID, err)
	}
}

// remember stores the playthrough in player memory. Unfinished games are
// remembered at the default decay.
func (m *model) remember() {
	if m.opts.Memory == nil || m.game == nil || m.opts.PlayerID == "" || len(m.game.History.Messages) == 0 {
		return
	}
	p := memory.Playthrough{
		PlayerID:      m.opts.PlayerID,
		SacrificedAI:  m.game.Choices.SacrificedAI,
		AcceptedTruth: m.game.Choices.AcceptedTruth,
		FinalAffinity: m.game.AverageAffinity(),
	}
	if m.game.Ending != nil {
		p.Ending = m.game.Ending.Ending
	}
	if err := m.opts.Memory.RecordPlaythrough(context.Background(), p); err != nil {
		log.Printf("[memory] record failed: %v", err)
	}
}

func companionName(id string) string {
	switch id {
	case models.CompanionEcho:
		return "Echo"
	case models.CompanionShadow:
		return "Shadow"
	}
	return id
}

// Run plays one interactive session. Logging is redirected to a file in the
// save dir while the alternate screen is active.
func Run(opts Options) error {
	logDir := "."
	if opts.Saves != nil {
		logDir = opts.Saves.Dir
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	f, err := tea.LogToFile(filepath.Join(logDir, "echorooms.log"), "")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	final, err := tea.NewProgram(NewModel(opts), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(model); ok && m.state != stateEnded {
		m.remember()
	}
	return nil
}
