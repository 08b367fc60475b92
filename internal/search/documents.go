package search

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// documentsFile is the layout of a documents file:
//
//	documents:
//	  - id: doc-1
//	    title: Getting started
//	    body: ...
type documentsFile struct {
	Documents []Document `yaml:"documents"`
}

// LoadDocuments reads documents from a YAML file.
func LoadDocuments(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open documents file: %w", err)
	}
	defer f.Close()

	return ReadDocuments(f)
}

// ReadDocuments decodes documents from YAML. Every document needs an ID.
func ReadDocuments(r io.Reader) ([]Document, error) {
	var file documentsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse documents: %w", err)
	}

	for i, d := range file.Documents {
		if d.ID == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}
	}
	return file.Documents, nil
}
