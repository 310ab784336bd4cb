package main

import (
	"context"
	"errors"
	"time"

	"sightwords/internal/wordlist"
)

var errEmptyDrill = errors.New("drill has no words")

// newDrillState builds a drill over words, shuffling once when asked.
func newDrillState(ctx context.Context, words []string, shuffle bool) (*DrillState, error) {
	if len(words) == 0 {
		return nil, errEmptyDrill
	}
	order := make([]string, len(words))
	copy(order, words)
	shuffled := false
	if shuffle {
		s, err := wordlist.Shuffle(order)
		if err != nil {
			logWarn("%sShuffle failed, keeping list order: %v", reqPrefix(ctx), err)
		} else {
			order = s
			shuffled = true
		}
	}
	now := time.Now()
	return &DrillState{
		Words:          order,
		CurrentIndex:   0,
		Message:        MessageStart,
		Shuffled:       shuffled,
		StartedAt:      now,
		LastAccessTime: now,
	}, nil
}

// currentWord returns the word being drilled.
func currentWord(d *DrillState) string {
	if d == nil || len(d.Words) == 0 {
		return ""
	}
	return d.Words[clampIndex(d.CurrentIndex, len(d.Words))]
}

// markCorrect advances to the next word, or finishes the drill on the last one.
// The new word is cued for speech; finishing cues nothing. A finished drill
// keeps its tallies.
func markCorrect(d *DrillState) SpeechCue {
	d.LastAccessTime = time.Now()
	if d.Finished {
		d.Message = MessageFinished
		return SpeechCue{}
	}

	d.Correct++
	d.RetryFlag = false
	if d.CurrentIndex < len(d.Words)-1 {
		d.CurrentIndex++
		d.Message = MessageCorrect
		return SpeechCue{Speak: true, Word: currentWord(d)}
	}
	d.Message = MessageFinished
	d.Finished = true
	return SpeechCue{}
}

// markIncorrect keeps the current word and asks the learner to try again.
func markIncorrect(d *DrillState) SpeechCue {
	d.Incorrect++
	d.RetryFlag = true
	d.Message = MessageIncorrect
	d.LastAccessTime = time.Now()
	return SpeechCue{}
}

// repeatWord clears the message and cues the current word again.
func repeatWord(d *DrillState) SpeechCue {
	d.RetryFlag = false
	d.Message = MessageStart
	d.LastAccessTime = time.Now()
	return SpeechCue{Speak: true, Word: currentWord(d)}
}

// restartDrill rewinds a drill to its first word but keeps its order.
func restartDrill(d *DrillState) {
	now := time.Now()
	d.CurrentIndex = 0
	d.Message = MessageStart
	d.RetryFlag = false
	d.Finished = false
	d.Correct = 0
	d.Incorrect = 0
	d.StartedAt = now
	d.LastAccessTime = now
}

// validDrillState reports whether d can be drilled as-is.
func validDrillState(d *DrillState) bool {
	return d != nil && len(d.Words) > 0 && d.CurrentIndex >= 0 && d.CurrentIndex < len(d.Words)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// drillPosition returns the 1-based position of the current word and the total.
func drillPosition(d *DrillState) (int, int) {
	if d == nil || len(d.Words) == 0 {
		return 0, 0
	}
	return clampIndex(d.CurrentIndex, len(d.Words)) + 1, len(d.Words)
}

// newDrill creates and stores a fresh drill for sessionID.
func (app *App) newDrill(ctx context.Context, sessionID string) (*DrillState, error) {
	drill, err := newDrillState(ctx, app.words(), app.ShuffleWords)
	if err != nil {
		return nil, err
	}
	logInfo("%sNew drill for session %s: %d words (shuffled: %v)", reqPrefix(ctx), sessionID, len(drill.Words), drill.Shuffled)
	app.saveDrillState(sessionID, drill)
	return drill, nil
}
