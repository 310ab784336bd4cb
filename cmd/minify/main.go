// Command minify shrinks the drill's templates, stylesheets and scripts.
//
// Single file:  go run ./cmd/minify -input=static/js/drill.js -output=dist/static/js/drill.js -type=js
// Whole tree:   go run ./cmd/minify -all
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var mediaTypes = map[string]string{
	"css":  "text/css",
	"js":   "application/javascript",
	"html": "text/html",
}

func main() {
	var (
		inputFile  = flag.String("input", "", "Input file path")
		outputFile = flag.String("output", "", "Output file path")
		fileType   = flag.String("type", "", "File type (css, js or html)")
		all        = flag.Bool("all", false, "Minify templates/ and static/ into -dist")
		distDir    = flag.String("dist", "dist", "Output directory for -all")
	)
	flag.Parse()

	m := newMinifier()

	if *all {
		total := 0
		for _, dir := range []string{"templates", "static"} {
			n, err := minifyTree(m, dir, *distDir)
			if err != nil {
				log.Fatalf("Error minifying %s: %v", dir, err)
			}
			total += n
		}
		fmt.Printf("Minified %d files into %s\n", total, *distDir)
		return
	}

	if *inputFile == "" || *outputFile == "" || *fileType == "" {
		log.Fatal("Usage: go run ./cmd/minify -input=<file> -output=<file> -type=<css|js|html> | -all [-dist=dist]")
	}
	mediaType, ok := mediaTypes[strings.ToLower(*fileType)]
	if !ok {
		log.Fatalf("Unsupported file type: %s (supported: css, js, html)", *fileType)
	}
	if err := minifyFile(m, *inputFile, *outputFile, mediaType); err != nil {
		log.Fatalf("Failed to minify %s: %v", *inputFile, err)
	}
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
		TemplateDelims:   html.GoTemplateDelims,
	})
	m.AddFunc("application/javascript", js.Minify)
	return m
}

// minifyTree minifies every css, js and html file under srcDir into
// distDir/srcDir. Other files (audio, images) are copied as-is.
func minifyTree(m *minify.M, srcDir, distDir string) (int, error) {
	count := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		dst := filepath.Join(distDir, path)
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if mediaType, ok := mediaTypes[ext]; ok {
			count++
			return minifyFile(m, path, dst, mediaType)
		}
		return copyFile(path, dst)
	})
	return count, err
}

func minifyFile(m *minify.M, srcPath, dstPath, mediaType string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	minified, err := m.Bytes(mediaType, src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, minified, 0o644); err != nil {
		return err
	}

	if len(src) > 0 {
		ratio := float64(len(src)-len(minified)) / float64(len(src)) * 100
		fmt.Printf("%s: %d bytes -> %d bytes (%.1f%% reduction)\n", srcPath, len(src), len(minified), ratio)
	}
	return nil
}

func copyFile(srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, data, 0o644)
}
