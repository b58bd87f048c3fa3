package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Copy operation states reported by the Graph async job monitor.
const (
	CopyStatusNotStarted = "notStarted"
	CopyStatusInProgress = "inProgress"
	CopyStatusCompleted  = "completed"
	CopyStatusFailed     = "failed"

	// CopyStatusTimedOut is reported by callers when a polling budget runs
	// out before the monitor reaches a terminal state. The monitor itself
	// never returns it; the copy may still finish server-side.
	CopyStatusTimedOut = "timedOut"
)

// CopyOperation tracks an asynchronous cross-drive copy. Graph acknowledges
// the copy with 202 Accepted and a Location header pointing at an opaque
// monitor URL; the operation is then driven entirely by polling that URL.
type CopyOperation struct {
	// MonitorURL is the pre-authorized status URL from the Location header.
	MonitorURL string

	// Status is the last observed state.
	Status string

	// PercentComplete is the last reported progress, when present.
	PercentComplete float64

	// ResourceID is the ID of the created item once the copy completes.
	ResourceID string

	// ErrorMessage carries the failure detail for a failed copy.
	ErrorMessage string
}

// Terminal reports whether the operation has finished, successfully or not.
func (op *CopyOperation) Terminal() bool {
	return op.Status == CopyStatusCompleted || op.Status == CopyStatusFailed
}

// monitorStatus is the wire shape of the async job monitor payload.
type monitorStatus struct {
	Status             string  `json:"status"`
	PercentageComplete float64 `json:"percentageComplete"`
	ResourceID         string  `json:"resourceId"`
	Error              *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StartCopy begins an asynchronous copy of an item into a target drive and
// parent folder, possibly across drives. newName optionally renames the copy.
// Graph must answer 202 with a monitor URL; any other success status means
// the service violated the async copy contract and is reported as an error.
func (s *DriveService) StartCopy(ctx context.Context, sourceDriveID, itemID, targetDriveID, targetParentID, newName string) (*CopyOperation, error) {
	body := map[string]any{
		"parentReference": map[string]any{
			"driveId": targetDriveID,
			"id":      targetParentID,
		},
	}
	if newName != "" {
		body["name"] = newName
	}

	p := "/drives/" + url.PathEscape(sourceDriveID) + "/items/" + url.PathEscape(itemID) + "/copy"
	resp, err := s.client.Call(ctx, http.MethodPost, p, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusAccepted {
		return nil, &Error{
			Code:       codeUnexpectedStatusValue,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("copy request returned %d, expected 202 Accepted", resp.StatusCode),
		}
	}

	monitor := resp.Header.Get("Location")
	if monitor == "" {
		return nil, &Error{
			Code:       codeMissingMonitorURL,
			HTTPStatus: resp.StatusCode,
			Message:    "copy accepted but no monitor URL returned",
		}
	}

	return &CopyOperation{
		MonitorURL: monitor,
		Status:     CopyStatusNotStarted,
	}, nil
}

// PollCopy fetches the monitor URL once and updates the operation in place.
// Monitor URLs are pre-authorized, so the request is sent without an
// Authorization header; Graph rejects monitor requests that carry one.
func (s *DriveService) PollCopy(ctx context.Context, op *CopyOperation) error {
	resp, err := s.client.getUnauthenticated(ctx, op.MonitorURL)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, resp.Body)
	}

	var status monitorStatus
	if err := resp.Decode(&status); err != nil {
		return fmt.Errorf("failed to decode monitor status: %w", err)
	}

	op.Status = status.Status
	op.PercentComplete = status.PercentageComplete
	if status.ResourceID != "" {
		op.ResourceID = status.ResourceID
	}
	if status.Error != nil {
		op.ErrorMessage = fmt.Sprintf("%s: %s", status.Error.Code, status.Error.Message)
	}
	return nil
}

// WaitForCopy polls the operation until it reaches a terminal state or the
// polling budget runs out. A nil return means the operation is terminal;
// callers inspect op.Status to distinguish completed from failed. Exhausting
// the budget returns ErrCopyTimeout with the operation left at its last
// observed state so callers can resume polling out-of-band.
func (s *DriveService) WaitForCopy(ctx context.Context, op *CopyOperation, policy BackoffPolicy) error {
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := s.PollCopy(ctx, op); err != nil {
			return err
		}
		if op.Terminal() {
			return nil
		}
		// No point backing off after the final poll.
		if attempt == policy.MaxAttempts-1 {
			break
		}
		if err := s.client.sleep(ctx, policy.Delay(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d polls (last status %q)", ErrCopyTimeout, policy.MaxAttempts, op.Status)
}
