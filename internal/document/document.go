// Package document handles reading and writing the text files the pipeline
// operates on, and the path conventions tying a source document to its
// derived outputs.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Suffixes appended to a source file's base name for derived outputs.
const (
	AnonymizedSuffix   = "_anonymized"
	DeanonymizedSuffix = "_de-anonymized"
	mappingSuffix      = "_entity_map"
)

// Read loads the file at path as UTF-8 text. Files that are not valid UTF-8
// are rejected rather than silently mangled.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from CLI args
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: not valid UTF-8 text", path)
	}
	return string(data), nil
}

// Write stores content at path, creating or truncating the file.
func Write(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644) // #nosec G306 -- document output, not a secret
}

// IsMarkdown reports whether path has a Markdown extension. It decides
// whether the substitution engine treats the document as structured Markdown
// or plain text.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// DeriveOutputPath returns the conventional output path for a transformed
// document: the source base name plus suffix, same directory. Markdown
// sources keep their extension; everything else gets .txt, since the output
// is always plain UTF-8 text.
func DeriveOutputPath(srcPath, suffix string) string {
	ext := filepath.Ext(srcPath)
	base := strings.TrimSuffix(srcPath, ext)
	if !IsMarkdown(srcPath) {
		ext = ".txt"
	}
	return base + suffix + ext
}

// IsKnownExtension reports whether the path has one of the extensions the
// pipeline formally supports. Anything else is still read as plain text,
// but callers should warn.
func IsKnownExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// DeriveMappingPath returns the conventional mapping-file path for a source
// document: base name plus "_entity_map", with a .csv extension.
func DeriveMappingPath(srcPath string) string {
	base := strings.TrimSuffix(srcPath, filepath.Ext(srcPath))
	return base + mappingSuffix + ".csv"
}
