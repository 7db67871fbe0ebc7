package ports

import "github.com/kittylabs/wasender/internal/domain"

// Notifier is the push side of the front-end bridge. Implementations must
// never block the caller; a slow observer is the bridge's problem.
type Notifier interface {
	SessionState(state domain.SessionState)
	PairingCredential(credential string)
	LogLine(level, text string)
	BulkProgress(sent, failed, total int, detail string)
	BulkComplete(success, failure int)
}
