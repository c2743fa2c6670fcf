package core

import "time"

// retryBackoffTable is the fixed per-attempt delay schedule, indexed by the
// attempt about to be made. Downstream consumers depend on these exact
// windows, so the table is not expressed as a multiplier formula.
var retryBackoffTable = [...]time.Duration{
	1: 60 * time.Second,
	2: 300 * time.Second,
	3: 900 * time.Second,
}

// BackoffDelay returns the wait before the retry that follows attempt
// number `attempt`. Attempts beyond the table reuse the last window.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt >= len(retryBackoffTable) {
		return retryBackoffTable[len(retryBackoffTable)-1]
	}
	return retryBackoffTable[attempt]
}
