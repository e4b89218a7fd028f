package entity

import "time"

// BingoEvent announces that a session completed its first line.
type BingoEvent struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

func NewBingoEvent(sessionID, name string) BingoEvent {
	return BingoEvent{
		SessionID: sessionID,
		Name:      name,
		Timestamp: time.Now().UnixMilli(),
	}
}

// IsFrom reports whether the event was published for the given session.
func (that BingoEvent) IsFrom(sessionID string) bool {
	return that.SessionID == sessionID
}
