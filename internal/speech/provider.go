// Package speech resolves a sight word to an audio file the browser can play.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrNoAudio means the provider has no audio for the word.
	ErrNoAudio = errors.New("no audio for word")
	// ErrUnknownWord is returned for input that cannot name an audio file.
	ErrUnknownWord = errors.New("word cannot be spoken")
)

// Provider turns a word into the path of a playable audio file.
type Provider interface {
	// AudioFile returns the path of an audio file for word, generating it if needed.
	AudioFile(ctx context.Context, word string) (string, error)

	Name() string

	// IsAvailable reports whether the provider is configured well enough to serve audio.
	IsAvailable() error
}

// Backend names accepted by SPEECH_BACKEND.
const (
	BackendBrowser     = "browser"
	BackendFiles       = "files"
	BackendOpenAI      = "openai"
	BackendOpenAIFiles = "openai+files"
)

// Config holds settings for all server-side providers.
type Config struct {
	Backend  string
	AudioDir string
	CacheDir string

	OpenAIKey   string
	OpenAIModel string
	OpenAIVoice string
	OpenAISpeed float64
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendBrowser,
		AudioDir:    "static/audio",
		CacheDir:    "data/audio-cache",
		OpenAIModel: "tts-1",
		OpenAIVoice: "nova",
		OpenAISpeed: 0.9,
	}
}

// NewProvider builds the provider for cfg.Backend. The browser backend has no
// server-side provider, so it returns nil with no error.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendBrowser:
		return nil, nil
	case BackendFiles:
		return NewFileProvider(cfg.AudioDir), nil
	case BackendOpenAI:
		tts, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		return tts, nil
	case BackendOpenAIFiles:
		tts, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		return NewFallbackProvider(NewFileProvider(cfg.AudioDir), tts), nil
	default:
		return nil, fmt.Errorf("unknown speech backend: %s", cfg.Backend)
	}
}

// FallbackProvider tries primary first and secondary when primary fails.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
}

// NewFallbackProvider chains two providers.
func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary}
}

func (p *FallbackProvider) AudioFile(ctx context.Context, word string) (string, error) {
	path, err := p.primary.AudioFile(ctx, word)
	if err == nil {
		return path, nil
	}
	if errors.Is(err, ErrUnknownWord) {
		return "", err
	}
	if !errors.Is(err, ErrNoAudio) {
		log.Warnf("speech provider %s failed: %v, falling back to %s", p.primary.Name(), err, p.secondary.Name())
	}
	return p.secondary.AudioFile(ctx, word)
}

func (p *FallbackProvider) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.secondary.Name())
}

func (p *FallbackProvider) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}
	secondaryErr := p.secondary.IsAvailable()
	if secondaryErr == nil {
		return nil
	}
	return fmt.Errorf("both providers unavailable: primary=%v, secondary=%v", primaryErr, secondaryErr)
}

// Speakable reports whether word can be served as server-side audio.
func Speakable(word string) bool {
	_, err := fileStem(word)
	return err == nil
}

// fileStem maps a word to a safe file name stem. Only letters, digits,
// apostrophes and hyphens are allowed, so a word can never escape its directory.
func fileStem(word string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" || len(w) > 64 {
		return "", ErrUnknownWord
	}
	for _, r := range w {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r == '-':
		default:
			return "", ErrUnknownWord
		}
	}
	return w, nil
}
