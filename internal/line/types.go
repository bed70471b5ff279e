package line

import "fmt"

// Config configuration of the LINE messaging client.
type Config struct {
	ChannelSecret      string
	ChannelAccessToken string
	// EndpointBase overrides the LINE API endpoint, mainly for tests.
	EndpointBase string
}

// DispatchError reports a failed outbound send. Callers log it and keep
// processing the rest of their batch.
type DispatchError struct {
	Op  string
	To  string
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to %s failed: %v", e.Op, e.To, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
