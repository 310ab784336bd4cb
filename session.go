package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || !validSessionID(sessionID) {
		sessionID = uuid.NewString()
		app.setSessionCookie(c, sessionID)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

func (app *App) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", app.IsProduction, true)
}

func (app *App) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", app.IsProduction, true)
}

// getDrillState returns the drill for a session: from memory, then from disk
// when persistence is on, otherwise a new drill. Concurrent first requests for
// one session all end up with the same drill.
func (app *App) getDrillState(ctx context.Context, sessionID string) (*DrillState, error) {
	if drill, ok := app.cachedDrill(sessionID); ok {
		logDebug("%sRetrieved cached drill for session: %s", reqPrefix(ctx), sessionID)
		return drill, nil
	}

	if app.PersistSessions {
		if loaded, err := app.loadDrillSessionFromFile(sessionID); err == nil {
			drill, stored := app.storeDrillIfAbsent(sessionID, loaded)
			if stored {
				logInfo("%sRestored drill for session %s from disk", reqPrefix(ctx), sessionID)
			}
			return drill, nil
		}
	}

	fresh, err := newDrillState(ctx, app.words(), app.ShuffleWords)
	if err != nil {
		return nil, err
	}
	drill, stored := app.storeDrillIfAbsent(sessionID, fresh)
	if stored {
		logInfo("%sNew drill for session %s: %d words (shuffled: %v)", reqPrefix(ctx), sessionID, len(fresh.Words), fresh.Shuffled)
		app.SessionMutex.RLock()
		snapshot := *drill
		app.SessionMutex.RUnlock()
		app.persist(sessionID, &snapshot)
	}
	return drill, nil
}

func (app *App) cachedDrill(sessionID string) (*DrillState, bool) {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	drill, ok := app.DrillSessions[sessionID]
	if ok {
		drill.LastAccessTime = time.Now()
	}
	return drill, ok
}

// storeDrillIfAbsent inserts drill unless another request already stored one
// for sessionID, and returns whichever drill is now in the map.
func (app *App) storeDrillIfAbsent(sessionID string, drill *DrillState) (*DrillState, bool) {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if existing, ok := app.DrillSessions[sessionID]; ok {
		existing.LastAccessTime = time.Now()
		return existing, false
	}
	drill.LastAccessTime = time.Now()
	app.DrillSessions[sessionID] = drill
	return drill, true
}

// saveDrillState stores the drill in memory and, when enabled, on disk.
func (app *App) saveDrillState(sessionID string, drill *DrillState) {
	app.SessionMutex.Lock()
	drill.LastAccessTime = time.Now()
	app.DrillSessions[sessionID] = drill
	snapshot := *drill
	app.SessionMutex.Unlock()

	app.persist(sessionID, &snapshot)
}

func (app *App) persist(sessionID string, snapshot *DrillState) {
	if !app.PersistSessions {
		return
	}
	if err := app.saveDrillSessionToFile(sessionID, snapshot); err != nil {
		logWarn("Failed to persist drill for session %s: %v", sessionID, err)
	}
}

// viewDrill returns a copy of the session's drill that is safe to render.
// Words is never mutated after a drill is created, so a shallow copy suffices.
func (app *App) viewDrill(ctx context.Context, sessionID string) (DrillState, error) {
	drill, err := app.getDrillState(ctx, sessionID)
	if err != nil {
		return DrillState{}, err
	}
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()
	return *drill, nil
}

// updateDrill applies fn to the session's drill under the session lock,
// persists it and returns a copy of the new state.
func (app *App) updateDrill(ctx context.Context, sessionID string, fn func(*DrillState) SpeechCue) (DrillState, SpeechCue, error) {
	drill, err := app.getDrillState(ctx, sessionID)
	if err != nil {
		return DrillState{}, SpeechCue{}, err
	}
	app.SessionMutex.Lock()
	cue := fn(drill)
	snapshot := *drill
	app.SessionMutex.Unlock()

	app.persist(sessionID, &snapshot)
	return snapshot, cue, nil
}

// deleteSession forgets a session in memory and on disk.
func (app *App) deleteSession(sessionID string) {
	app.SessionMutex.Lock()
	delete(app.DrillSessions, sessionID)
	app.SessionMutex.Unlock()
	if app.PersistSessions {
		app.removeDrillSessionFile(sessionID)
	}
}

// evictIdleSessions drops in-memory drills not touched within maxAge.
func (app *App) evictIdleSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	removed := 0
	for id, drill := range app.DrillSessions {
		if drill.LastAccessTime.Before(cutoff) {
			delete(app.DrillSessions, id)
			removed++
		}
	}
	return removed
}

// sessionCleanupLoop evicts idle sessions and old session files until ctx ends.
func (app *App) sessionCleanupLoop(ctx context.Context) {
	if app.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(app.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.evictIdleSessions(app.SessionTimeout); n > 0 {
				logInfo("Evicted %d idle sessions", n)
			}
			if app.PersistSessions {
				if err := app.cleanupOldSessions(app.SessionTimeout); err != nil {
					logWarn("Session file cleanup failed: %v", err)
				}
			}
		}
	}
}
