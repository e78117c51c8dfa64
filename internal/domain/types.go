package domain

import (
	"fmt"
	"time"
)

type UserID string
type PersonaID string

// ThreadID identifies one resumable conversation stream between a user and
// a persona.
type ThreadID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time

// ComposeThreadID derives the stable thread identifier for a user/persona
// pair. Repeated calls with the same arguments always yield the same
// identifier, which is what allows conversations to resume across process
// restarts.
func ComposeThreadID(userID UserID, personaID PersonaID) ThreadID {
	return ThreadID(fmt.Sprintf("%s:%s", userID, personaID))
}

// ComposeDisposableThreadID derives a one-shot thread identifier that never
// collides with the stable composition. The token must be unique per call
// (callers supply a fresh UUID).
func ComposeDisposableThreadID(userID UserID, personaID PersonaID, token string) ThreadID {
	return ThreadID(fmt.Sprintf("%s:%s-%s", userID, personaID, token))
}

// UserPrefix is the prefix shared by every thread identifier belonging to
// the given user, used for scoped deletion.
func UserPrefix(userID UserID) string {
	return string(userID) + ":"
}
