package core

import "time"

// CommandType enumerates the operational commands the runner listens for.
type CommandType string

const (
	// CommandPause asks the runner to pause the session.
	CommandPause CommandType = "PAUSE"
	// CommandResume asks the runner to resume a paused session.
	CommandResume CommandType = "RESUME"
)

// Command is an operational instruction published on the command channel.
// Params is free-form; PAUSE carries "reason".
type Command struct {
	Type      CommandType    `json:"type"`
	SessionID string         `json:"session_id"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Reason returns the PAUSE reason if present.
func (c Command) Reason() string {
	if r, ok := c.Params["reason"].(string); ok {
		return r
	}
	return ""
}
