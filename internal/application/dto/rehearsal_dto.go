package dto

import "time"

// StartSessionInput represents input for starting a rehearsal session
type StartSessionInput struct {
	UserID  string `json:"user_id"`
	SceneID string `json:"scene_id"`
}

// SubmitDeliveryInput represents an actor's spoken attempt at the current line
type SubmitDeliveryInput struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	LineIndex  *int   `json:"line_index,omitempty"` // Line the caller believes is current; rejected if already resolved
}

// NoticeCode identifies a rejected or degraded outcome the caller should render distinctly
type NoticeCode string

const (
	NoticeRetryNeeded          NoticeCode = "retry_needed"
	NoticeAutoAccepted         NoticeCode = "auto_accepted"
	NoticeAIPartnerUnavailable NoticeCode = "ai_partner_unavailable"
	NoticeFeedbackUnavailable  NoticeCode = "feedback_unavailable"
	NoticeSceneComplete        NoticeCode = "scene_complete"
)

// Notice is a user-visible note about the turn
type Notice struct {
	Code      NoticeCode `json:"code"`
	Message   string     `json:"message"`
	LineIndex *int       `json:"line_index,omitempty"`
}

// LineDTO is a scripted line as shown to the caller
type LineDTO struct {
	Index     int    `json:"index"`
	Speaker   string `json:"speaker"`
	Character string `json:"character"`
	Text      string `json:"text"`
}

// DeliveryDTO represents one record of the delivery log
type DeliveryDTO struct {
	ID        string    `json:"id"`
	LineIndex int       `json:"line_index"`
	Attempt   int       `json:"attempt"`
	Speaker   string    `json:"speaker"`
	Character string    `json:"character,omitempty"`
	Text      string    `json:"text"`
	Score     *float64  `json:"score,omitempty"`
	Verdict   string    `json:"verdict"`
	Feedback  *string   `json:"feedback,omitempty"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStateOutput is the suspended state of a session.
// NextAction tells the caller what makes progress: submit_delivery, resume
// (pending partner lines) or none.
type SessionStateOutput struct {
	SessionID         string     `json:"session_id"`
	UserID            string     `json:"user_id"`
	SceneID           string     `json:"scene_id"`
	SceneTitle        string     `json:"scene_title,omitempty"`
	Status            string     `json:"status"`
	Phase             string     `json:"phase"`
	NextAction        string     `json:"next_action"`
	CurrentLineIndex  int        `json:"current_line_index"`
	TotalLines        int        `json:"total_lines"`
	RetryCount        int        `json:"retry_count"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	CurrentLine       *LineDTO   `json:"current_line,omitempty"` // Line the actor must deliver next
	SummaryFeedback   string     `json:"summary_feedback,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// StartSessionOutput represents the result of starting a session
type StartSessionOutput struct {
	State   SessionStateOutput `json:"state"`
	AILines []DeliveryDTO      `json:"ai_lines,omitempty"` // Partner lines spoken before the actor's first cue
	Notices []Notice           `json:"notices,omitempty"`
}

// ResumeSessionOutput represents the result of resuming a session left between turns
type ResumeSessionOutput struct {
	State   SessionStateOutput `json:"state"`
	AILines []DeliveryDTO      `json:"ai_lines,omitempty"` // Pending partner lines spoken on resume
	Notices []Notice           `json:"notices,omitempty"`
}

// SubmitDeliveryOutput represents the result of evaluating a delivery
type SubmitDeliveryOutput struct {
	Delivery DeliveryDTO        `json:"delivery"`
	AILines  []DeliveryDTO      `json:"ai_lines,omitempty"` // Partner lines spoken after the actor's line
	Notices  []Notice           `json:"notices,omitempty"`
	State    SessionStateOutput `json:"state"`
}

// ListDeliveriesOutput represents a session's delivery log
type ListDeliveriesOutput struct {
	SessionID  string        `json:"session_id"`
	Deliveries []DeliveryDTO `json:"deliveries"`
}

// SceneSummaryDTO is an entry in the scene listing
type SceneSummaryDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Lines      int    `json:"lines"`
	ActorLines int    `json:"actor_lines"`
}

// SceneCheckDTO reports whether one scene document parses and validates
type SceneCheckDTO struct {
	Document string `json:"document"`
	SceneID  string `json:"scene_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Lines    int    `json:"lines,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// SceneCheckReport is the result of validating scene documents
type SceneCheckReport struct {
	Location string          `json:"location,omitempty"`
	Checks   []SceneCheckDTO `json:"checks"`
	Invalid  int             `json:"invalid"`
}

// DoctorCheckDTO is one environment check run by the doctor command
type DoctorCheckDTO struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn" or "error"
	Detail string `json:"detail,omitempty"`
}

// DoctorReport collects environment checks
type DoctorReport struct {
	ConfigSource string           `json:"config_source"`
	SettingPath  string           `json:"setting_path,omitempty"`
	Checks       []DoctorCheckDTO `json:"checks"`
	Errors       int              `json:"errors"`
}
