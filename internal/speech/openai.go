package speech

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// speechClient is the part of the OpenAI client the provider needs.
type speechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAIProvider synthesises words with the OpenAI speech endpoint and caches
// the clips on disk so each word is generated once.
type OpenAIProvider struct {
	client  speechClient
	config  Config
	breaker *gobreaker.CircuitBreaker
}

// NewOpenAIProvider creates a TTS provider. It requires an API key.
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.OpenAIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return newOpenAIProvider(openai.NewClient(config.OpenAIKey), config)
}

func newOpenAIProvider(client speechClient, config Config) (*OpenAIProvider, error) {
	if config.CacheDir == "" {
		return nil, errors.New("audio cache directory is required")
	}
	if err := os.MkdirAll(config.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if config.OpenAISpeed <= 0 {
		config.OpenAISpeed = 1.0
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-tts",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &OpenAIProvider{client: client, config: config, breaker: breaker}, nil
}

func (p *OpenAIProvider) AudioFile(ctx context.Context, word string) (string, error) {
	if _, err := fileStem(word); err != nil {
		return "", err
	}

	cacheFile := p.cacheFilePath(word)
	if info, err := os.Stat(cacheFile); err == nil && info.Size() > 0 {
		return cacheFile, nil
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.generate(ctx, word, cacheFile)
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI TTS: %w", err)
	}
	return cacheFile, nil
}

func (p *OpenAIProvider) generate(ctx context.Context, word, outputFile string) error {
	log.Debugf("OpenAI TTS: model=%s voice=%s speed=%.2f input=%q", p.config.OpenAIModel, p.config.OpenAIVoice, p.config.OpenAISpeed, word)

	response, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.OpenAIModel),
		Input:          word,
		Voice:          openai.SpeechVoice(p.config.OpenAIVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          p.config.OpenAISpeed,
	})
	if err != nil {
		return err
	}
	defer response.Close()

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to a temp file first so concurrent readers never see a partial clip.
	tmp, err := os.CreateTemp(filepath.Dir(outputFile), ".tts-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, response)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if written == 0 {
		return errors.New("no audio data received from OpenAI")
	}
	return os.Rename(tmp.Name(), outputFile)
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) IsAvailable() error {
	if p.breaker.State() == gobreaker.StateOpen {
		return errors.New("OpenAI TTS circuit is open")
	}
	return nil
}

// cacheFilePath keys the clip on the word and every voice setting that changes it.
func (p *OpenAIProvider) cacheFilePath(word string) string {
	h := md5.New()
	h.Write([]byte(word))
	h.Write([]byte(p.config.OpenAIModel))
	h.Write([]byte(p.config.OpenAIVoice))
	h.Write([]byte(fmt.Sprintf("%.2f", p.config.OpenAISpeed)))
	hash := hex.EncodeToString(h.Sum(nil))
	return filepath.Join(p.config.CacheDir, hash[:2], hash[2:]+".mp3")
}
