package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	scenemodel "github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

// sceneDocument is the YAML shape of a scene file
type sceneDocument struct {
	ID          string              `yaml:"id"`
	Title       string              `yaml:"title"`
	Description string              `yaml:"description,omitempty"`
	Characters  []characterDocument `yaml:"characters,omitempty"`
	Settings    *settingsDocument   `yaml:"settings,omitempty"`
	Lines       []lineDocument      `yaml:"lines"`
}

type characterDocument struct {
	Role    string `yaml:"role"`
	Name    string `yaml:"name"`
	Persona string `yaml:"persona,omitempty"`
}

type settingsDocument struct {
	AcceptanceThreshold *float64 `yaml:"acceptance_threshold,omitempty"`
	MaxRetries          *int     `yaml:"max_retries,omitempty"`
	HistoryWindow       *int     `yaml:"history_window,omitempty"`
}

type lineDocument struct {
	Speaker string `yaml:"speaker"`
	Text    string `yaml:"text"`
	Intent  string `yaml:"intent,omitempty"`
}

// Decode parses and validates a scene document.
// Unknown keys are rejected so typos in settings do not silently fall back to defaults.
// Every failure is a configuration error.
func Decode(data []byte) (*scenemodel.Scene, error) {
	var doc sceneDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.NewConfigurationError("scene document is empty", nil)
		}
		return nil, model.NewConfigurationError("scene document is not valid YAML", err)
	}

	characters := make([]scenemodel.Character, 0, len(doc.Characters))
	for i, c := range doc.Characters {
		role, err := scenemodel.ParseSpeakerRole(c.Role)
		if err != nil {
			return nil, model.NewConfigurationError(fmt.Sprintf("scene %s character %d", doc.ID, i), err)
		}
		characters = append(characters, scenemodel.Character{Role: role, Name: c.Name, Persona: c.Persona})
	}

	lines := make([]scenemodel.Line, 0, len(doc.Lines))
	for i, l := range doc.Lines {
		role, err := scenemodel.ParseSpeakerRole(l.Speaker)
		if err != nil {
			return nil, model.NewConfigurationError(fmt.Sprintf("scene %s line %d", doc.ID, i), err)
		}
		lines = append(lines, scenemodel.Line{Speaker: role, Text: l.Text, Intent: l.Intent})
	}

	var settings scenemodel.Settings
	if doc.Settings != nil {
		settings = scenemodel.Settings{
			AcceptanceThreshold: doc.Settings.AcceptanceThreshold,
			MaxRetries:          doc.Settings.MaxRetries,
			HistoryWindow:       doc.Settings.HistoryWindow,
		}
	}

	return scenemodel.NewScene(doc.ID, doc.Title, doc.Description, characters, lines, settings)
}

// Encode renders a scene back to its YAML document
func Encode(sc *scenemodel.Scene) ([]byte, error) {
	doc := sceneDocument{
		ID:          sc.ID(),
		Title:       sc.Title(),
		Description: sc.Description(),
	}
	for _, role := range []scenemodel.SpeakerRole{scenemodel.SpeakerHuman, scenemodel.SpeakerAI} {
		c := sc.Character(role)
		doc.Characters = append(doc.Characters, characterDocument{Role: role.String(), Name: c.Name, Persona: c.Persona})
	}
	if s := sc.Settings(); s.AcceptanceThreshold != nil || s.MaxRetries != nil || s.HistoryWindow != nil {
		doc.Settings = &settingsDocument{
			AcceptanceThreshold: s.AcceptanceThreshold,
			MaxRetries:          s.MaxRetries,
			HistoryWindow:       s.HistoryWindow,
		}
	}
	for _, l := range sc.Lines() {
		doc.Lines = append(doc.Lines, lineDocument{Speaker: l.Speaker.String(), Text: l.Text, Intent: l.Intent})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode scene %s: %w", sc.ID(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode scene %s: %w", sc.ID(), err)
	}
	return buf.Bytes(), nil
}
