package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

// CLIRehearsalPresenter implements output.Presenter for CLI output
// Formats sessions and deliveries as a readable script
type CLIRehearsalPresenter struct {
	output io.Writer
}

// NewCLIRehearsalPresenter creates a new CLI rehearsal presenter
func NewCLIRehearsalPresenter(output io.Writer) output.Presenter {
	return &CLIRehearsalPresenter{output: output}
}

// PresentSuccess presents a successful result
func (p *CLIRehearsalPresenter) PresentSuccess(message string, data interface{}) error {
	if message != "" {
		fmt.Fprintf(p.output, "✓ %s\n\n", message)
	}

	switch v := data.(type) {
	case *dto.StartSessionOutput:
		p.presentStart(v)
	case *dto.ResumeSessionOutput:
		p.presentResume(v)
	case *dto.SubmitDeliveryOutput:
		p.presentSubmit(v)
	case *dto.SessionStateOutput:
		p.presentState(v)
	case *dto.ListDeliveriesOutput:
		p.presentHistory(v)
	case []dto.SceneSummaryDTO:
		p.presentScenes(v)
	case *dto.SceneCheckReport:
		p.presentSceneChecks(v)
	case *dto.DoctorReport:
		p.presentDoctor(v)
	case nil:
	default:
		// Fallback for unknown types
		fmt.Fprintf(p.output, "%+v\n", data)
	}

	return nil
}

// PresentError presents an error
func (p *CLIRehearsalPresenter) PresentError(err error) error {
	if kind := model.KindOf(err); kind != "" {
		fmt.Fprintf(p.output, "✗ Error (%s): %v\n", kind, err)
		return err
	}
	fmt.Fprintf(p.output, "✗ Error: %v\n", err)
	return err
}

func (p *CLIRehearsalPresenter) presentStart(out *dto.StartSessionOutput) {
	title := out.State.SceneTitle
	if title == "" {
		title = out.State.SceneID
	}
	fmt.Fprintf(p.output, "Scene: %s\n", title)
	fmt.Fprintf(p.output, "Session: %s\n", out.State.SessionID)

	p.presentAILines(out.AILines)
	p.presentNotices(out.Notices)
	p.presentCue(&out.State)
}

func (p *CLIRehearsalPresenter) presentResume(out *dto.ResumeSessionOutput) {
	fmt.Fprintf(p.output, "Session: %s\n", out.State.SessionID)
	if len(out.AILines) == 0 && len(out.Notices) == 0 {
		fmt.Fprintln(p.output, "Nothing was pending.")
	}

	p.presentAILines(out.AILines)
	p.presentNotices(out.Notices)
	p.presentCue(&out.State)
}

func (p *CLIRehearsalPresenter) presentSubmit(out *dto.SubmitDeliveryOutput) {
	d := out.Delivery
	fmt.Fprintf(p.output, "Line %d, attempt %d: %s", d.LineIndex+1, d.Attempt, strings.ToUpper(d.Verdict))
	if d.Score != nil {
		fmt.Fprintf(p.output, " (score %.2f)", *d.Score)
	}
	fmt.Fprintln(p.output)
	if d.Feedback != nil && *d.Feedback != "" {
		fmt.Fprintf(p.output, "  Coach: %s\n", *d.Feedback)
	}

	p.presentAILines(out.AILines)
	p.presentNotices(out.Notices)
	p.presentCue(&out.State)
}

func (p *CLIRehearsalPresenter) presentState(s *dto.SessionStateOutput) {
	fmt.Fprintf(p.output, "Session: %s\n", s.SessionID)
	fmt.Fprintf(p.output, "Scene: %s\n", s.SceneID)
	fmt.Fprintf(p.output, "User: %s\n", s.UserID)
	fmt.Fprintf(p.output, "Status: %s\n", s.Status)
	fmt.Fprintf(p.output, "Phase: %s\n", s.Phase)
	fmt.Fprintf(p.output, "Progress: %d/%d\n", min(s.CurrentLineIndex, s.TotalLines), s.TotalLines)
	if s.RetryCount > 0 {
		fmt.Fprintf(p.output, "Retries: %d\n", s.RetryCount)
	}
	p.presentCue(s)
}

// presentCue prints what the actor has to do next
func (p *CLIRehearsalPresenter) presentCue(s *dto.SessionStateOutput) {
	fmt.Fprintln(p.output)
	switch {
	case s.CurrentLine != nil:
		fmt.Fprintf(p.output, "Your line (%d/%d) as %s:\n", s.CurrentLine.Index+1, s.TotalLines, s.CurrentLine.Character)
		fmt.Fprintf(p.output, "  %q\n", s.CurrentLine.Text)
		fmt.Fprintf(p.output, "Attempts remaining: %d\n", s.AttemptsRemaining)
	case s.Status == string(model.SessionStatusCompleted):
		fmt.Fprintln(p.output, "Scene complete.")
		if s.SummaryFeedback != "" {
			fmt.Fprintf(p.output, "\nSummary:\n%s\n", s.SummaryFeedback)
		}
	case s.Status == string(model.SessionStatusAbandoned):
		fmt.Fprintln(p.output, "Session abandoned.")
	case s.NextAction == string(session.NextActionResume):
		fmt.Fprintln(p.output, "An interrupted turn left partner lines pending.")
		fmt.Fprintf(p.output, "Continue with: rehearsal resume %s\n", s.SessionID)
	default:
		fmt.Fprintf(p.output, "Next: %s\n", s.NextAction)
	}
}

func (p *CLIRehearsalPresenter) presentAILines(lines []dto.DeliveryDTO) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(p.output)
	for _, l := range lines {
		name := l.Character
		if name == "" {
			name = l.Speaker
		}
		marker := ""
		if l.Fallback {
			marker = " [scripted]"
		}
		fmt.Fprintf(p.output, "  %s: %s%s\n", name, l.Text, marker)
	}
}

func (p *CLIRehearsalPresenter) presentNotices(notices []dto.Notice) {
	for _, n := range notices {
		fmt.Fprintf(p.output, "! %s: %s\n", n.Code, n.Message)
	}
}

func (p *CLIRehearsalPresenter) presentHistory(out *dto.ListDeliveriesOutput) {
	fmt.Fprintf(p.output, "Session: %s\n", out.SessionID)
	if len(out.Deliveries) == 0 {
		fmt.Fprintln(p.output, "No deliveries yet.")
		return
	}
	fmt.Fprintln(p.output)
	for _, d := range out.Deliveries {
		score := "    -"
		if d.Score != nil {
			score = fmt.Sprintf("%5.2f", *d.Score)
		}
		name := d.Character
		if name == "" {
			name = d.Speaker
		}
		fmt.Fprintf(p.output, "%3d.%d  %-13s %s  %s: %s\n", d.LineIndex+1, d.Attempt, d.Verdict, score, name, d.Text)
		if d.Feedback != nil && *d.Feedback != "" {
			fmt.Fprintf(p.output, "        Coach: %s\n", *d.Feedback)
		}
	}
}

func (p *CLIRehearsalPresenter) presentScenes(scenes []dto.SceneSummaryDTO) {
	if len(scenes) == 0 {
		fmt.Fprintln(p.output, "No scenes found.")
		return
	}
	for _, s := range scenes {
		fmt.Fprintf(p.output, "%-24s %3d lines (%d yours)  %s\n", s.ID, s.Lines, s.ActorLines, s.Title)
	}
}

func (p *CLIRehearsalPresenter) presentSceneChecks(r *dto.SceneCheckReport) {
	if r.Location != "" {
		fmt.Fprintf(p.output, "Location: %s\n", r.Location)
	}
	for _, c := range r.Checks {
		if c.Valid {
			fmt.Fprintf(p.output, "✓ %s (%s, %d lines)\n", c.Document, c.SceneID, c.Lines)
			continue
		}
		fmt.Fprintf(p.output, "✗ %s: %s\n", c.Document, c.Error)
	}
	fmt.Fprintf(p.output, "\n%d checked, %d invalid\n", len(r.Checks), r.Invalid)
}

func (p *CLIRehearsalPresenter) presentDoctor(r *dto.DoctorReport) {
	source := r.ConfigSource
	if r.SettingPath != "" {
		source = fmt.Sprintf("%s (%s)", source, r.SettingPath)
	}
	fmt.Fprintf(p.output, "Config: %s\n\n", source)
	for _, c := range r.Checks {
		mark := "✓"
		switch c.Status {
		case "warn":
			mark = "!"
		case "error":
			mark = "✗"
		}
		if c.Detail == "" {
			fmt.Fprintf(p.output, "%s %s\n", mark, c.Name)
			continue
		}
		fmt.Fprintf(p.output, "%s %s: %s\n", mark, c.Name, c.Detail)
	}
	if r.Errors > 0 {
		fmt.Fprintf(p.output, "\n%d check(s) failed\n", r.Errors)
	}
}
