// Package storage defines the vault file-system abstraction and the output sink.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for vault and output file operations.
type Provider interface {
	// List returns every file under dir (relative to root) whose extension is
	// in exts, with its content. An empty exts matches every file.
	List(dir string, exts ...string) ([]models.SourceFile, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}

// Sink is the write side of Provider, used for build output.
type Sink interface {
	Write(path string, content []byte) error
}
