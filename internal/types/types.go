package types

import "time"

type WordList struct {
	Words []string `json:"words" yaml:"words"`
}

type DrillState struct {
	Words          []string  `json:"words"`
	CurrentIndex   int       `json:"currentIndex"`
	Message        string    `json:"message"`
	RetryFlag      bool      `json:"retryFlag"`
	Finished       bool      `json:"finished"`
	Shuffled       bool      `json:"shuffled"`
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	StartedAt      time.Time `json:"startedAt"`
	LastAccessTime time.Time `json:"lastAccessTime"`
}

// SpeechCue tells the page whether to speak a word after a state change.
type SpeechCue struct {
	Speak bool   `json:"speak"`
	Word  string `json:"word"`
}
