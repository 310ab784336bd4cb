// Package wordlist loads, normalises and shuffles the sight word lists the
// drill runs over.
package wordlist

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"sightwords/internal/types"
)

// ErrEmpty is returned when a list has no usable words after normalisation.
var ErrEmpty = errors.New("word list is empty")

// Default is the built-in list used when no word file is present.
var Default = []string{
	"the", "and", "a", "to", "in", "is", "you", "that", "it", "of",
	"for", "on", "are", "as", "with", "his", "they", "I", "at", "be",
}

// Load reads a word list from path. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON of the shape {"words": [...]}.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Ext(path))
}

// LoadOrDefault behaves like Load but falls back to Default when path does
// not exist. The second return value reports whether the fallback was used.
func LoadOrDefault(path string) ([]string, bool, error) {
	words, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Normalize(Default), true, nil
	}
	return words, false, err
}

// Parse decodes raw word list data. ext selects the format.
func Parse(data []byte, ext string) ([]string, error) {
	var wl types.WordList
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &wl); err != nil {
			return nil, fmt.Errorf("decode yaml word list: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &wl); err != nil {
			return nil, fmt.Errorf("decode json word list: %w", err)
		}
	}
	words := Normalize(wl.Words)
	if len(words) == 0 {
		return nil, ErrEmpty
	}
	return words, nil
}

// Normalize trims every word and drops blanks and repeats, keeping the
// first occurrence. Case is preserved so "I" stays capitalised.
func Normalize(words []string) []string {
	trimmed := lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = strings.TrimSpace(w)
		return w, w != ""
	})
	return lo.Uniq(trimmed)
}

// Shuffle returns a shuffled copy of words. The input is left untouched.
func Shuffle(words []string) ([]string, error) {
	out := make([]string, len(words))
	copy(out, words)
	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("shuffle words: %w", err)
		}
		j := int(n.Int64())
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
