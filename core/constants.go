package core

import "time"

// Environment variable names honored across the platform, beyond the
// per-component ORCHESTRA_-prefixed variables declared on each Config
// field's `env` tag.
const (
	EnvDevMode = "ORCHESTRA_DEV_MODE"
)

// DefaultInvocationTimeout is a 60-second per-call timeout value. No
// provider adapter in this module reads it; each adapter sets its own
// HTTP client timeout.
const DefaultInvocationTimeout = 60 * time.Second

// DefaultEventLogFlushInterval is a 2-second flush interval value. The
// event emitter's sinks write each event as it is dequeued and do not
// batch, so no code in this module reads it.
const DefaultEventLogFlushInterval = 2 * time.Second
