package main

// Drill messages shown under the word
const (
	MessageStart     = ""
	MessageCorrect   = "Great job!"
	MessageIncorrect = "That's okay, keep trying!"
	MessageFinished  = "You've finished all the words! Amazing work!"
)

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome       = "/"
	RouteCorrect    = "/correct"
	RouteIncorrect  = "/incorrect"
	RouteRepeat     = "/repeat"
	RouteNewDrill   = "/new-drill"
	RouteRestart    = "/restart"
	RouteDrillState = "/drill-state"
	RouteWords      = "/words.json"
	RouteAudio      = "/audio/:word"
	RouteStats      = "/stats"
	RouteHealthz    = "/healthz"
)

// Error message constants
const (
	ErrorGeneric      = "Something went wrong. Please try again."
	ErrorNoAudio      = "Sound is not available right now."
	ErrorUnknownWord  = "That word is not in the list."
	ErrorStatsOffline = "Progress history is not available."
)

const pageTitle = "Sight Word Drill"

// Context key constants
type contextKey string

const (
	requestIDKey contextKey = "request_id"
)
