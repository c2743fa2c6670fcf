// Package core contains the webhook delivery engine: domain entities and
// ledger contracts, the payload envelope and signer, the per-attempt HTTP
// executor, the event dispatcher fan-out, and the retry scheduler. Storage
// and queue adapters depend on this package; core must not depend on them.
package core
