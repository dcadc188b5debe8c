// Package models holds the shared data shapes passed between the session,
// transport and storage layers.
package models

// User identifies a connected participant. The id is minted at login and
// carried in the JWT; the session trusts it only after token verification.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LogEntry is one line of a room's bounded activity log.
type LogEntry struct {
	DT      int64  `json:"dt"`
	Message string `json:"message"`
}

// GameResult is the record persisted when a game reaches its terminal
// state.
type GameResult struct {
	RoomID   string         `json:"roomId"`
	Winner   string         `json:"winner"`
	Scores   map[string]int `json:"scores"`
	Rounds   int            `json:"rounds"`
	EndedAt  int64          `json:"endedAt"`
	Players  []User         `json:"players"`
	EndScore int            `json:"endScore"`
}
