package model

import (
	"os"
	"path/filepath"
	"strings"
)

// Document is an uploaded file. It only lives until its text is extracted.
type Document struct {
	FileName string
	Data     []byte
}

// NewDocumentFromFile reads a file from disk, the file name is the base name of the path.
func NewDocumentFromFile(filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return &Document{
		FileName: filepath.Base(filePath),
		Data:     data,
	}, nil
}

// Extension returns the lower case file extension including the dot.
func (d *Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.FileName))
}
