package presenter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/YoshitsuguKoike/rehearsal/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
)

func TestJSONPresenter_PresentSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	data := &dto.SessionStateOutput{
		SessionID:  "01J9ZB4K3Q",
		SceneID:    "cafe",
		Status:     "active",
		NextAction: "submit_delivery",
	}

	err := p.PresentSuccess("Session state", data)
	if err != nil {
		t.Fatalf("PresentSuccess() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if result["success"] != true {
		t.Errorf("Expected success=true, got %v", result["success"])
	}

	if result["message"] != "Session state" {
		t.Errorf("Expected message='Session state', got %v", result["message"])
	}

	state, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %T", result["data"])
	}
	if state["next_action"] != "submit_delivery" {
		t.Errorf("Expected next_action='submit_delivery', got %v", state["next_action"])
	}
}

func TestJSONPresenter_PresentError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	testErr := errors.New("test error")
	err := p.PresentError(testErr)
	if err != nil {
		t.Fatalf("PresentError() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if result["success"] != false {
		t.Errorf("Expected success=false, got %v", result["success"])
	}

	if result["error"] != "test error" {
		t.Errorf("Expected error='test error', got %v", result["error"])
	}

	if _, ok := result["kind"]; ok {
		t.Errorf("Expected no kind for a plain error, got %v", result["kind"])
	}
}

func TestJSONPresenter_PresentRehearsalError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	wrapped := fmt.Errorf("submit: %w", model.ErrTurnInProgress)
	if err := p.PresentError(wrapped); err != nil {
		t.Fatalf("PresentError() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if result["kind"] != "state_conflict" {
		t.Errorf("Expected kind='state_conflict', got %v", result["kind"])
	}
	if result["code"] != "TURN_IN_PROGRESS" {
		t.Errorf("Expected code='TURN_IN_PROGRESS', got %v", result["code"])
	}
}
