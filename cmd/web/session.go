package main

type sessionKey string

const (
	playthroughIDSessionKey = sessionKey("playthroughID")
	snapshotSessionKey      = sessionKey("snapshot")
	// recordedSessionKey marks a finished play-through that is already on the leaderboard.
	recordedSessionKey = sessionKey("recorded")
	flashSessionKey    = sessionKey("flash")
)
