package presenter

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
)

// JSONPresenter implements output.Presenter for JSON output
// Formats all output as JSON for programmatic consumption
type JSONPresenter struct {
	output io.Writer
}

// NewJSONPresenter creates a new JSON presenter
func NewJSONPresenter(output io.Writer) output.Presenter {
	return &JSONPresenter{output: output}
}

// PresentSuccess presents a successful result as JSON
func (p *JSONPresenter) PresentSuccess(message string, data interface{}) error {
	result := map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	}
	return json.NewEncoder(p.output).Encode(result)
}

// PresentError presents an error as JSON.
// Rehearsal errors also carry their kind and code.
func (p *JSONPresenter) PresentError(err error) error {
	result := map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}
	var re *model.RehearsalError
	if errors.As(err, &re) {
		result["kind"] = re.Kind
		result["code"] = re.Code
	}
	return json.NewEncoder(p.output).Encode(result)
}
