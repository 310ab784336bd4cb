package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileProvider serves pre-recorded clips named <word>.mp3 from a directory.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) AudioFile(_ context.Context, word string) (string, error) {
	stem, err := fileStem(word)
	if err != nil {
		return "", err
	}
	path := filepath.Join(p.dir, stem+".mp3")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoAudio, word)
	}
	return path, nil
}

func (p *FileProvider) Name() string {
	return "files"
}

func (p *FileProvider) IsAvailable() error {
	info, err := os.Stat(p.dir)
	if err != nil {
		return fmt.Errorf("audio directory %s: %w", p.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("audio directory %s is not a directory", p.dir)
	}
	return nil
}
