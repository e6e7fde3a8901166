package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/persistence/sqlite"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRoot()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string, v interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env
}

func TestRehearsalCLI_EndToEnd(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, "", "--home", home, "init")
	require.NoError(t, err)

	out, err := execute(t, "", "--home", home, "scenes", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ coffee_order.yaml (coffee-order, 5 lines)")

	out, err = execute(t, "", "--home", home, "--format", "json", "start", "coffee-order", "--user", "sam")
	require.NoError(t, err)
	var started struct {
		State struct {
			SessionID   string `json:"session_id"`
			CurrentLine struct {
				Text string `json:"text"`
			} `json:"current_line"`
		} `json:"state"`
		AILines []struct {
			Text string `json:"text"`
		} `json:"ai_lines"`
	}
	env := decode(t, out, &started)
	assert.True(t, env.Success)
	require.Len(t, started.AILines, 1)
	assert.Equal(t, "Morning, Sam! The usual?", started.AILines[0].Text)
	assert.Equal(t, "Not today, Rita. I think I need something stronger.", started.State.CurrentLine.Text)
	id := started.State.SessionID

	out, err = execute(t, "", "--home", home, "submit", id, "Not today Rita, I think I need something stronger")
	require.NoError(t, err)
	assert.Contains(t, out, "ACCEPTED")
	assert.Contains(t, out, "Rita: Rough night?")

	// A stale line number is rejected
	out, err = execute(t, "", "--home", home, "--format", "json", "submit", id, "--line", "2", "Not today")
	require.Error(t, err)
	env = decode(t, out, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "LINE_RESOLVED", env.Code)

	out, err = execute(t, "You always know exactly what to say.\n", "--home", home, "run", "--session", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Session resumed")
	assert.Contains(t, out, "Scene complete.")

	out, err = execute(t, "", "--home", home, "--format", "json", "history", id)
	require.NoError(t, err)
	var history struct {
		Deliveries []struct {
			Verdict string `json:"verdict"`
		} `json:"deliveries"`
	}
	decode(t, out, &history)
	require.Len(t, history.Deliveries, 5)
	assert.Equal(t, "ai-generated", history.Deliveries[0].Verdict)
	assert.Equal(t, "accepted", history.Deliveries[3].Verdict)

	out, err = execute(t, "", "--home", home, "--format", "json", "submit", id, "anything")
	require.Error(t, err)
	assert.Equal(t, "SESSION_COMPLETED", decode(t, out, nil).Code)
}

func TestRehearsalCLI_RunPausesAtEndOfInput(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, "", "--home", home, "init")
	require.NoError(t, err)

	out, err := execute(t, "", "--home", home, "run", "coffee-order")
	require.NoError(t, err)
	assert.Contains(t, out, "Session paused. Resume with: rehearsal run --session ")
}

func TestRehearsalCLI_ResumesInterruptedTurn(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, "", "--home", home, "init")
	require.NoError(t, err)

	out, err := execute(t, "", "--home", home, "--format", "json", "start", "coffee-order", "--user", "sam")
	require.NoError(t, err)
	var started struct {
		State struct {
			SessionID string `json:"session_id"`
		} `json:"state"`
	}
	decode(t, out, &started)
	id := started.State.SessionID

	_, err = execute(t, "", "--home", home, "submit", id, "Not today, Rita. I think I need something stronger.")
	require.NoError(t, err)

	// Drop the partner reply as if the process died right after the actor's record was written
	db, err := sqlite.Open(filepath.Join(home, "rehearsal.db"))
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM deliveries WHERE session_id = ? AND line_index = 2`, id)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE sessions SET current_line_index = 2 WHERE id = ?`, id)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	type stateView struct {
		Phase            string `json:"phase"`
		NextAction       string `json:"next_action"`
		CurrentLineIndex int    `json:"current_line_index"`
	}
	var state stateView
	out, err = execute(t, "", "--home", home, "--format", "json", "state", id)
	require.NoError(t, err)
	decode(t, out, &state)
	assert.Equal(t, "generating_ai_reply", state.Phase)
	assert.Equal(t, "resume", state.NextAction)

	out, err = execute(t, "", "--home", home, "state", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Continue with: rehearsal resume "+id)

	out, err = execute(t, "", "--home", home, "run", "--session", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Session resumed")
	assert.Contains(t, out, "Rita: Rough night? I'll make it a double, on the house.")
	assert.Contains(t, out, "Your line (4/5) as Sam:")
	assert.Contains(t, out, "Session paused. Resume with: rehearsal run --session "+id)

	state = stateView{}
	out, err = execute(t, "", "--home", home, "--format", "json", "state", id)
	require.NoError(t, err)
	decode(t, out, &state)
	assert.Equal(t, "submit_delivery", state.NextAction)
	assert.Equal(t, 3, state.CurrentLineIndex)

	// Nothing is left to resume
	out, err = execute(t, "", "--home", home, "resume", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing was pending.")
}

func TestRehearsalCLI_Abandon(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, "", "--home", home, "init")
	require.NoError(t, err)

	out, err := execute(t, ":abandon\n", "--home", home, "run", "coffee-order")
	require.NoError(t, err)
	assert.Contains(t, out, "Session abandoned.")
}

func TestRehearsalCLI_Errors(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, "", "--home", home, "--format", "yaml", "version")
	assert.Error(t, err)

	out, err := execute(t, "", "--home", home, "--format", "json", "state", "missing")
	require.Error(t, err)
	assert.Equal(t, "SESSION_NOT_FOUND", decode(t, out, nil).Code)

	_, err = execute(t, "", "--home", home, "run")
	assert.Error(t, err)

	out, err = execute(t, "", "--home", home, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rehearsal version")
}
