package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/echo-rooms/internal/journal"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/story"
)

// command handles a slash command typed into the input.
func (m model) command(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)
	m.notice = ""

	switch name {
	case "quit":
		m.save()
		return m, tea.Quit

	case "restart":
		m.save()
		if m.state != stateEnded {
			m.remember()
		}
		m.game = nil
		m.start()
		m.appendSystem("You open your eyes again. Everything feels familiar.")

	case "save":
		m.save()
		m.notice = "Saved session " + m.game.ID

	case "status":
		s := m.opts.Engine.Status(m.game)
		text := fmt.Sprintf("Room %d/%d: %s\nObjective: %s\nRooms escaped: %d, memories: %d",
			s.CurrentRoom, s.TotalRooms, s.CurrentRoomName, s.Objective, s.RoomsCompleted, s.FragmentsCollected)
		if s.TimerRemaining != "" {
			text += "\nTime left: " + s.TimerRemaining
		}
		m.appendSystem(text)

	case "view":
		if arg == "" {
			m.appendSystem("View what? Try one of: " + strings.Join(m.game.Progression.CurrentRoom().Clues(), ", "))
			break
		}
		v := m.opts.Engine.ViewClue(m.game, 0, arg)
		if v.Timeout != nil {
			m.appendSystem(fmt.Sprintf("The arena clock hits zero. %s goes dark.", companionName(v.Timeout.Sacrificed)))
		}
		if !v.Found {
			m.appendSystem(v.Reason)
			break
		}
		m.appendSystem(fmt.Sprintf("[%s]\n%s", v.Clue, v.Text))
		m.save()

	case "choose":
		kind, ok := models.ParseChoiceKind(arg)
		if !ok || !playerChoice(kind) {
			m.appendSystem("Choose one of: sacrifice_echo, sacrifice_shadow, refuse_sacrifice")
			break
		}
		if forced := m.opts.Engine.RecordChoice(m.game, kind); forced != nil {
			m.appendLog(titleStyle.Render(story.Title(forced.Ending)))
			m.appendLog(gameStyle.Width(m.logWidth()).Render(story.NarrativeFor(*forced)))
			m.state = stateEnded
			m.remember()
			break
		}
		m.appendSystem("Your choice is recorded. The room goes very quiet.")
		m.save()

	case "export":
		path := filepath.Join(m.opts.ExportDir, m.game.ID+".pdf")
		if err := journal.Export(path, m.game); err != nil {
			m.appendSystem("Export failed: " + err.Error())
			break
		}
		m.notice = "Journal written to " + path

	default:
		m.appendSystem(fmt.Sprintf("Unknown command /%s", name))
	}
	return m, nil
}

func playerChoice(kind models.ChoiceKind) bool {
	switch kind {
	case models.ChoiceSacrificeEcho, models.ChoiceSacrificeShadow, models.ChoiceRefuseSacrifice:
		return true
	}
	return false
}
