package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errInvalidSessionID = errors.New("invalid session ID format")

// validSessionID accepts only canonical 36-character UUIDs, which also rules
// out path separators and dot segments.
func validSessionID(sessionID string) bool {
	if len(sessionID) != 36 {
		return false
	}
	_, err := uuid.Parse(sessionID)
	return err == nil
}

// sessionFilePath returns the on-disk location for a session's drill.
func (app *App) sessionFilePath(sessionID string) (string, error) {
	if !validSessionID(sessionID) {
		return "", errInvalidSessionID
	}
	return filepath.Join(app.SessionDir, strings.ToLower(sessionID)+".json"), nil
}

// saveDrillSessionToFile persists a drill to disk.
func (app *App) saveDrillSessionToFile(sessionID string, drill *DrillState) error {
	sessionFile, err := app.sessionFilePath(sessionID)
	if err != nil {
		logWarn("Skipping save for invalid session ID: %q", sessionID)
		return err
	}
	if err := os.MkdirAll(app.SessionDir, 0o755); err != nil {
		logWarn("Failed to create sessions directory: %v", err)
		return err
	}

	data, err := json.MarshalIndent(drill, "", "  ")
	if err != nil {
		logWarn("Failed to marshal drill state for session %s: %v", sessionID, err)
		return err
	}

	tmp := sessionFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logWarn("Failed to write session file %s: %v", tmp, err)
		return err
	}
	if err := os.Rename(tmp, sessionFile); err != nil {
		logWarn("Failed to move session file into place %s: %v", sessionFile, err)
		_ = os.Remove(tmp)
		return err
	}
	logDebug("Saved session file: %s", sessionFile)
	return nil
}

// loadDrillSessionFromFile loads a drill from disk. Stale, corrupt and
// malformed files are removed and reported as os.ErrNotExist.
func (app *App) loadDrillSessionFromFile(sessionID string) (*DrillState, error) {
	sessionFile, err := app.sessionFilePath(sessionID)
	if err != nil {
		logWarn("Invalid session ID for loading: %q", sessionID)
		return nil, os.ErrNotExist
	}

	info, err := os.Stat(sessionFile)
	if err != nil {
		return nil, err
	}

	fileAge := time.Since(info.ModTime())
	if fileAge > app.SessionTimeout {
		logInfo("Session file is too old (%v, max: %v), removing: %s", fileAge, app.SessionTimeout, sessionFile)
		_ = os.Remove(sessionFile)
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(sessionFile)
	if err != nil {
		logWarn("Failed to read session file %s: %v", sessionFile, err)
		return nil, err
	}

	var drill DrillState
	if err := json.Unmarshal(data, &drill); err != nil {
		logWarn("Failed to unmarshal session file %s (corrupted), removing: %v", sessionFile, err)
		_ = os.Remove(sessionFile)
		return nil, os.ErrNotExist
	}

	if !validDrillState(&drill) {
		logWarn("Session file %s has invalid structure (words: %d, index: %d), removing", sessionFile, len(drill.Words), drill.CurrentIndex)
		_ = os.Remove(sessionFile)
		return nil, os.ErrNotExist
	}

	drill.LastAccessTime = time.Now()
	logInfo("Loaded session from file: %s (index %d/%d)", sessionFile, drill.CurrentIndex+1, len(drill.Words))
	return &drill, nil
}

func (app *App) removeDrillSessionFile(sessionID string) {
	sessionFile, err := app.sessionFilePath(sessionID)
	if err != nil {
		return
	}
	if err := os.Remove(sessionFile); err != nil && !os.IsNotExist(err) {
		logWarn("Failed to remove session file %s: %v", sessionFile, err)
	}
}

// cleanupOldSessions removes session files older than maxAge.
func (app *App) cleanupOldSessions(maxAge time.Duration) error {
	entries, err := os.ReadDir(app.SessionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logWarn("Failed to read sessions directory: %v", err)
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	removedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logWarn("Failed to get info for session file %s: %v", entry.Name(), err)
			errorCount++
			continue
		}

		if info.ModTime().Before(cutoff) {
			sessionFile := filepath.Join(app.SessionDir, entry.Name())
			if err := os.Remove(sessionFile); err != nil {
				logWarn("Failed to remove old session file %s: %v", sessionFile, err)
				errorCount++
			} else {
				removedCount++
			}
		}
	}

	logInfo("Session cleanup completed: removed %d files, %d errors", removedCount, errorCount)
	return nil
}
