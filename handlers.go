package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"sightwords/internal/progress"
	"sightwords/internal/speech"
	"sightwords/internal/types"
)

// homeHandler renders the full drill page for the current session.
func (app *App) homeHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	drill, err := app.viewDrill(ctx, sessionID)
	if err != nil {
		app.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "index.html", app.drillView(drill, SpeechCue{}))
}

// correctHandler marks the current word as read correctly and moves on.
func (app *App) correctHandler(c *gin.Context) {
	app.applyOutcome(c, progress.OutcomeCorrect, markCorrect)
}

// incorrectHandler keeps the current word and shows the retry message.
func (app *App) incorrectHandler(c *gin.Context) {
	app.applyOutcome(c, progress.OutcomeIncorrect, markIncorrect)
}

func (app *App) applyOutcome(c *gin.Context, outcome progress.Outcome, mark func(*DrillState) SpeechCue) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)

	var marked string
	var alreadyFinished bool
	drill, cue, err := app.updateDrill(ctx, sessionID, func(d *DrillState) SpeechCue {
		marked = currentWord(d)
		alreadyFinished = d.Finished
		return mark(d)
	})
	if err != nil {
		app.renderError(c, err)
		return
	}

	logInfo("%sSession %s marked %q %s (word %d/%d)", reqPrefix(ctx), sessionID, marked, outcome, drill.CurrentIndex+1, len(drill.Words))
	if !alreadyFinished {
		app.recordAttempt(ctx, sessionID, marked, outcome)
	}
	app.renderDrill(c, drill, cue)
}

// repeatHandler cues the current word for playback without moving.
func (app *App) repeatHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	drill, cue, err := app.updateDrill(ctx, sessionID, repeatWord)
	if err != nil {
		app.renderError(c, err)
		return
	}
	app.renderDrill(c, drill, cue)
}

// newDrillHandler starts a new drill, optionally rotating the session ID.
func (app *App) newDrillHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	app.deleteSession(sessionID)
	logInfo("%sCleared old drill for session: %s", reqPrefix(ctx), sessionID)

	if c.Query("reset") == "1" {
		app.clearSessionCookie(c)
		sessionID = uuid.NewString()
		app.setSessionCookie(c, sessionID)
		logInfo("Created new session ID: %s", sessionID)
	}

	drill, err := app.newDrill(ctx, sessionID)
	if err != nil {
		app.renderError(c, err)
		return
	}

	if isHTMX(c) {
		app.SessionMutex.RLock()
		snapshot := *drill
		app.SessionMutex.RUnlock()
		app.renderDrill(c, snapshot, SpeechCue{})
		return
	}
	c.Redirect(http.StatusSeeOther, RouteHome)
}

// restartHandler rewinds the drill to its first word, keeping the same order.
func (app *App) restartHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	drill, _, err := app.updateDrill(ctx, sessionID, func(d *DrillState) SpeechCue {
		restartDrill(d)
		return SpeechCue{}
	})
	if err != nil {
		app.renderError(c, err)
		return
	}
	if isHTMX(c) {
		app.renderDrill(c, drill, SpeechCue{})
		return
	}
	c.Redirect(http.StatusSeeOther, RouteHome)
}

// drillStateHandler renders the current drill as an HTML fragment.
func (app *App) drillStateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	drill, err := app.viewDrill(ctx, sessionID)
	if err != nil {
		app.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "drill-content", app.drillView(drill, SpeechCue{}))
}

// wordsHandler serves the loaded word list as {"words": [...]}.
func (app *App) wordsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, types.WordList{Words: app.words()})
}

// audioHandler serves a clip for a word in the list from the speech provider.
func (app *App) audioHandler(c *gin.Context) {
	ctx := c.Request.Context()
	word := c.Param("word")

	if app.Speech == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoAudio, "speech": speech.BackendBrowser})
		return
	}
	sessionID, _ := c.Cookie(SessionCookieName)
	if !app.knownWord(sessionID, word) {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorUnknownWord})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	path, err := app.Speech.AudioFile(ctx, word)
	switch {
	case err == nil:
	case errors.Is(err, speech.ErrUnknownWord):
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorUnknownWord})
		return
	case errors.Is(err, speech.ErrNoAudio):
		logInfo("%sNo audio for %q from %s", reqPrefix(ctx), word, app.Speech.Name())
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoAudio})
		return
	default:
		logWarn("%sSpeech provider %s failed for %q: %v", reqPrefix(ctx), app.Speech.Name(), word, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrorNoAudio})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("Content-Type", "audio/mpeg")
	c.File(path)
}

// statsHandler returns per-word attempt tallies.
func (app *App) statsHandler(c *gin.Context) {
	tallies, err := app.Progress.Tallies(c.Request.Context())
	if err != nil {
		logError("Failed to read progress tallies: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrorStatsOffline})
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": tallies})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	speechStatus := "ok"
	if app.Speech != nil {
		if err := app.Speech.IsAvailable(); err != nil {
			speechStatus = err.Error()
		}
	}
	app.SessionMutex.RLock()
	sessions := len(app.DrillSessions)
	app.SessionMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"words_loaded":    app.wordCount(),
		"active_sessions": sessions,
		"speech":          app.speechMode(),
		"speech_status":   speechStatus,
		"uptime":          formatUptime(time.Since(app.StartTime)),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// knownWord reports whether word belongs to the loaded list or the session's drill.
func (app *App) knownWord(sessionID, word string) bool {
	app.WordsMutex.RLock()
	_, ok := app.WordSet[word]
	app.WordsMutex.RUnlock()
	if ok {
		return true
	}
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()
	drill, exists := app.DrillSessions[sessionID]
	return exists && lo.Contains(drill.Words, word)
}

func (app *App) recordAttempt(ctx context.Context, sessionID, word string, outcome progress.Outcome) {
	err := app.Progress.Record(ctx, progress.Attempt{
		SessionID: sessionID,
		Word:      word,
		Outcome:   outcome,
		At:        time.Now(),
	})
	if err != nil {
		logWarn("%sFailed to record %s attempt for %q: %v", reqPrefix(ctx), outcome, word, err)
	}
}

// drillView builds the template data shared by the page and the fragment.
func (app *App) drillView(drill DrillState, cue SpeechCue) gin.H {
	position, total := drillPosition(&drill)
	return gin.H{
		"title":      pageTitle,
		"drill":      drill,
		"word":       currentWord(&drill),
		"position":   position,
		"total":      total,
		"cue":        cue,
		"speechMode": app.speechMode(),
		"serverTTS":  app.Speech != nil,
		"audioError": ErrorNoAudio,
	}
}

// renderDrill answers HTMX requests with the fragment and everything else with the page.
func (app *App) renderDrill(c *gin.Context, drill DrillState, cue SpeechCue) {
	if isHTMX(c) {
		c.HTML(http.StatusOK, "drill-content", app.drillView(drill, cue))
		return
	}
	c.HTML(http.StatusOK, "index.html", app.drillView(drill, cue))
}

func (app *App) renderError(c *gin.Context, err error) {
	logError("%sRequest failed: %v", reqPrefix(c.Request.Context()), err)
	setServerErrorTrigger(c, ErrorGeneric)
	view := app.drillView(DrillState{}, SpeechCue{})
	view["error"] = ErrorGeneric
	if isHTMX(c) {
		c.HTML(http.StatusInternalServerError, "drill-content", view)
		return
	}
	c.HTML(http.StatusInternalServerError, "index.html", view)
}

func setServerErrorTrigger(c *gin.Context, errMsg string) {
	payload := map[string]string{"server_error": errMsg}
	if b, err := json.Marshal(payload); err == nil {
		c.Header("HX-Trigger", string(b))
	} else {
		logWarn("Failed to marshal HX-Trigger payload: %v", err)
	}
}

func audioURL(word string) string {
	return "/audio/" + url.PathEscape(word)
}
