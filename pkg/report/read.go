package report

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidReport is returned when a saved report does not match the schema.
var ErrInvalidReport = errors.New("invalid report")

// ReadJSON decodes a JSON report written by Render after validating it
// against the report schema. Files are re-sorted by descending score.
func ReadJSON(r io.Reader) (*Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(problems, "; "))
	}

	var rep Report

	err = json.Unmarshal(data, &rep)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	sortEntries(rep.Files)

	return &rep, nil
}
