package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	wferr "loan-workflow/internal/common/errors"
)

// statusEventSchema validates the push payload before anything else looks at
// it. The payload is only a hint; the engine re-reads the authoritative
// record before acting on it.
const statusEventSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["applicationId", "status"],
	"properties": {
		"applicationId": {
			"type": "string",
			"minLength": 1
		},
		"status": {
			"type": "string",
			"enum": ["draft", "submitted", "under_review", "approved", "rejected", "disbursed"]
		},
		"occurredAt": {
			"type": "string",
			"format": "date-time"
		},
		"source": {
			"type": "string"
		}
	},
	"additionalProperties": false
}`

var statusEventSchemaLoader = gojsonschema.NewStringLoader(statusEventSchema)

type statusEvent struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurredAt,omitempty"`
	Source        string `json:"source,omitempty"`
}

// parseStatusEvent reads and schema-validates the event body.
func parseStatusEvent(r *http.Request) (*statusEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, wferr.NewValidationFailed("unreadable request body")
	}

	result, err := gojsonschema.Validate(statusEventSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, wferr.NewValidationFailed(fmt.Sprintf("malformed event payload: %v", err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, wferr.NewValidationFailed(strings.Join(msgs, "; "))
	}

	var event statusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, wferr.NewValidationFailed(fmt.Sprintf("malformed event payload: %v", err))
	}
	return &event, nil
}
