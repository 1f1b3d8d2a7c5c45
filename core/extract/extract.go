package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/paperqa/helper"
)

// Supported file extensions.
const (
	ExtensionPDF      = ".pdf"
	ExtensionText     = ".txt"
	ExtensionMarkdown = ".md"
)

var supportedExtensions = map[string]bool{
	ExtensionPDF:      true,
	ExtensionText:     true,
	ExtensionMarkdown: true,
}

// pageSeparator keeps page boundaries visible to the chunker as paragraph breaks.
const pageSeparator = "\n\n"

// IsSupported reports whether the file name has a supported extension.
func IsSupported(fileName string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// Text converts a document into flat text. It fails with ErrUnsupportedInput
// for unknown file types and for documents without any extractable text.
func Text(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !supportedExtensions[ext] {
		return "", helper.Kind(helper.ErrUnsupportedInput, fmt.Errorf("unsupported file type %q", fileName))
	}

	var text string
	var err error
	switch ext {
	case ExtensionPDF:
		text, err = PDFText(data)
		if err != nil {
			return "", err
		}
	default:
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", helper.Kind(helper.ErrUnsupportedInput, fmt.Errorf("no text could be extracted from %q", fileName))
	}
	return text, nil
}

// PDFText extracts the plain text of every page.
func PDFText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = helper.Kind(helper.ErrUnsupportedInput, fmt.Errorf("read pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", helper.Kind(helper.ErrUnsupportedInput, helper.NewError("read pdf", err))
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", helper.Kind(helper.ErrUnsupportedInput, helper.NewError(fmt.Sprintf("read page %d", i), err))
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, pageSeparator), nil
}
