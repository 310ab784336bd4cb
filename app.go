package main

import (
	"strings"
	"sync"
	"time"

	"sightwords/internal/progress"
	"sightwords/internal/speech"
	"sightwords/internal/types"

	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

type DrillState = types.DrillState
type SpeechCue = types.SpeechCue

// Config is the runtime configuration read from the environment.
type Config struct {
	Port            string
	IsProduction    bool
	SessionTimeout  time.Duration
	CookieMaxAge    time.Duration
	StaticCacheAge  time.Duration
	CleanupInterval time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	WordsFile       string
	ShuffleWords    bool
	WatchWords      bool
	PersistSessions bool
	SessionDir      string
	ProgressDB      string
	Speech          speech.Config
}

// App holds the word list, live drill sessions and the pluggable backends.
type App struct {
	Config

	WordsMutex sync.RWMutex
	WordList   []string
	WordSet    map[string]struct{}

	SessionMutex  sync.RWMutex
	DrillSessions map[string]*DrillState

	LimiterMutex sync.Mutex
	LimiterMap   map[string]*rate.Limiter

	Speech    speech.Provider
	Progress  progress.Recorder
	StartTime time.Time
}

func loadConfig() Config {
	isProduction := getEnvString("GIN_MODE", "") == "release" || getEnvString("ENV", "") == "production"

	sp := speech.DefaultConfig()
	sp.Backend = getEnvString("SPEECH_BACKEND", sp.Backend)
	sp.AudioDir = getEnvString("AUDIO_DIR", sp.AudioDir)
	sp.CacheDir = getEnvString("AUDIO_CACHE_DIR", sp.CacheDir)
	sp.OpenAIKey = getEnvString("OPENAI_API_KEY", "")
	sp.OpenAIModel = getEnvString("OPENAI_TTS_MODEL", sp.OpenAIModel)
	sp.OpenAIVoice = getEnvString("OPENAI_TTS_VOICE", sp.OpenAIVoice)
	sp.OpenAISpeed = getEnvFloat("OPENAI_TTS_SPEED", sp.OpenAISpeed)

	return Config{
		Port:            getEnvString("PORT", "8080"),
		IsProduction:    isProduction,
		SessionTimeout:  getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		CookieMaxAge:    getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		StaticCacheAge:  getEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute),
		RateLimitRPS:    getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
		WordsFile:       getEnvString("WORDS_FILE", "data/words.json"),
		ShuffleWords:    getEnvBool("SHUFFLE_WORDS", true),
		WatchWords:      getEnvBool("WATCH_WORDS", !isProduction),
		PersistSessions: getEnvBool("PERSIST_SESSIONS", false),
		SessionDir:      getEnvString("SESSION_DIR", "data/sessions"),
		ProgressDB:      getEnvString("PROGRESS_DB", ""),
		Speech:          sp,
	}
}

// newApp builds an App around a word list. Backends default to the browser
// speech mode and a no-op progress recorder.
func newApp(cfg Config, words []string) *App {
	app := &App{
		Config:        cfg,
		DrillSessions: make(map[string]*DrillState),
		LimiterMap:    make(map[string]*rate.Limiter),
		Progress:      progress.Nop{},
		StartTime:     time.Now(),
	}
	app.setWords(words)
	return app
}

// setWords swaps the word list used for new drills.
func (app *App) setWords(words []string) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	app.WordsMutex.Lock()
	app.WordList = words
	app.WordSet = set
	app.WordsMutex.Unlock()
}

// words returns a copy of the current word list.
func (app *App) words() []string {
	app.WordsMutex.RLock()
	defer app.WordsMutex.RUnlock()
	out := make([]string, len(app.WordList))
	copy(out, app.WordList)
	return out
}

// reloadWords swaps in a new word list and reports words without server audio.
func (app *App) reloadWords(words []string) {
	app.setWords(words)
	app.warnUnspeakable(words)
}

// warnUnspeakable logs the words a server speech backend cannot voice. Those
// words still drill, and the page falls back to browser speech for them.
func (app *App) warnUnspeakable(words []string) []string {
	if app.Speech == nil {
		return nil
	}
	bad := lo.Reject(words, func(w string, _ int) bool {
		return speech.Speakable(w)
	})
	if len(bad) > 0 {
		logWarn("%d word%s cannot have %s audio (only a-z, 0-9, ' and - are allowed): %s",
			len(bad), plural(len(bad)), app.speechMode(), strings.Join(bad, ", "))
	}
	return bad
}

func (app *App) wordCount() int {
	app.WordsMutex.RLock()
	defer app.WordsMutex.RUnlock()
	return len(app.WordList)
}

func (app *App) speechMode() string {
	if app.Speech == nil {
		return speech.BackendBrowser
	}
	return app.Speech.Name()
}
