package agent

import "mediabot/internal/domain"

// ShouldIncludeHistory reports whether a tool receives the chat's prior
// tool-call context. Tools opt out by implementing domain.HistoryOptOut;
// everything else gets history by default. The returned reason is metadata
// for logs and audits, never evaluated.
func ShouldIncludeHistory(t domain.Tool) (include bool, reason string) {
	if opt, ok := t.(domain.HistoryOptOut); ok {
		if ignore, why := opt.IgnoreHistory(); ignore {
			return false, why
		}
	}
	return true, ""
}
