package platform

import (
	"fmt"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/table"
)

// Overview is the body of the participation overview endpoint.
type Overview struct {
	Participants []*table.Record      `json:"participants"`
	Blueprints   []blueprint.Blueprint `json:"blueprints"`
}

// Responses is the body of the questionnaire response endpoint. Each
// response carries the participant and a response_data object.
type Responses struct {
	Responses []*table.Record `json:"responses"`
}

// FetchError reports a failed platform request: transport failure,
// non-2xx status or an undecodable body.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
