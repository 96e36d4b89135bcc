package messaging

import "github.com/hirewatch/scraper-http-service/common/constants"

// RunRequest is the payload on the scraper run topic. TargetID is empty for
// run-all requests.
type RunRequest struct {
	Type     constants.ActionType `json:"type"`
	TargetID string               `json:"target_id,omitempty"`
}
