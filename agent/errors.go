package agent

import "errors"

// ErrApprovalInFlight indicates Request was called while another
// approval was still pending. The loop serializes tool calls, so this
// only fires when a Gate is shared incorrectly.
var ErrApprovalInFlight = errors.New("an approval request is already pending")

// DeniedResultContent is the tool result content recorded for a call
// the user denied. The model sees this text in place of real output.
const DeniedResultContent = `{"error": "Tool call was denied by the user."}`
