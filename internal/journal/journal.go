// Package journal renders a playthrough as a printable PDF.
package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/tatianab/echo-rooms/internal/affinity"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

const (
	titleSize   = 20
	headingSize = 14
	bodySize    = 11
	lineHeight  = 6
)

type writer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (w *writer) heading(text string) {
	w.pdf.Ln(4)
	w.pdf.SetFont("Helvetica", "B", headingSize)
	w.pdf.CellFormat(0, 8, w.tr(text), "B", 1, "L", false, 0, "")
	w.pdf.Ln(2)
	w.pdf.SetFont("Helvetica", "", bodySize)
}

func (w *writer) para(text string) {
	w.pdf.MultiCell(0, lineHeight, w.tr(text), "", "L", false)
	w.pdf.Ln(1)
}

func (w *writer) label(name, value string) {
	w.pdf.SetFont("Helvetica", "B", bodySize)
	w.pdf.CellFormat(45, lineHeight, w.tr(name), "", 0, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", bodySize)
	w.pdf.MultiCell(0, lineHeight, w.tr(value), "", "L", false)
}

func (w *writer) italic(text string) {
	w.pdf.SetFont("Helvetica", "I", bodySize)
	w.para(text)
	w.pdf.SetFont("Helvetica", "", bodySize)
}

// Write renders g as a PDF to out.
func Write(out io.Writer, g *session.Game) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Echo Rooms Journal", true)
	pdf.SetAuthor("Echo & Shadow", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	w := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.CellFormat(0, 12, "Echo Rooms", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", bodySize)
	pdf.CellFormat(0, 8, "A journal of one escape", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", bodySize)
	pdf.Ln(4)

	w.label("Session", g.ID)
	w.label("Started", g.CreatedAt.Format("2006-01-02 15:04"))
	w.label("Last played", g.UpdatedAt.Format("2006-01-02 15:04"))

	w.heading("Rooms")
	for _, room := range g.Progression.Rooms {
		status := "locked"
		switch {
		case room.Completed:
			status = "escaped"
		case room.Unlocked:
			status = "in progress"
		}
		w.label(fmt.Sprintf("%d. %s", room.Number, room.Name), status)
	}

	w.heading("Memory fragments")
	if len(g.Progression.Fragments) == 0 {
		w.italic("No memories recovered yet.")
	}
	for _, f := range g.Progression.Fragments {
		pdf.SetFont("Helvetica", "B", bodySize)
		w.para(f.Title)
		pdf.SetFont("Helvetica", "", bodySize)
		w.para(f.Content)
		if f.EmotionalImpact != "" {
			w.italic(f.EmotionalImpact)
		}
	}

	w.heading("Companions")
	for _, c := range session.Companions {
		score := g.Affinity.Get(models.PlayerID, c)
		w.label(companionName(c), fmt.Sprintf("%.2f (%s)", score, affinity.Describe(score)))
	}

	w.heading("Choices")
	sacrificed := g.Choices.SacrificedAI
	if sacrificed == "" {
		sacrificed = "nobody"
	}
	w.label("Sacrificed", sacrificed)
	w.label("Accepted the truth", yesNo(g.Choices.AcceptedTruth))
	w.label("Moments of trust", fmt.Sprintf("%d", g.Choices.VulnerabilityCount))

	w.heading("Ending")
	if g.Ending == nil {
		w.italic("The story is not over yet.")
	} else {
		pdf.SetFont("Helvetica", "B", bodySize)
		w.para(story.Title(g.Ending.Ending))
		pdf.SetFont("Helvetica", "", bodySize)
		w.para(story.NarrativeFor(*g.Ending))
		if q := story.Quote(g.Ending.Ending); q != "" {
			w.italic(q)
		}
	}

	w.heading("Conversation")
	if g.History.Summary != "" {
		w.italic(g.History.Summary)
	}
	for _, m := range g.History.Messages {
		w.label(speakerName(m.Speaker), m.Content)
	}

	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("render journal: %w", err)
	}
	return nil
}

// Export writes the journal for g to path, creating parent directories.
func Export(path string, g *session.Game) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if err := Write(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
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

func speakerName(id string) string {
	if id == models.PlayerID {
		return "You"
	}
	return companionName(id)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
