// Package extract pulls plain text out of uploaded submission files.
// PDF and DOCX files are parsed locally; images are only re-encoded
// here and go through the remote OCR call instead.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// DetectType returns the canonical file type for a filename: "pdf",
// "docx", "jpg", "jpeg" or "png". Legacy .doc is treated as docx.
// Unsupported extensions return "".
func DetectType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "pdf":
		return "pdf"
	case "docx", "doc":
		return "docx"
	case "jpg", "jpeg", "png":
		return ext
	}
	return ""
}

// IsImage reports whether a detected file type goes through OCR.
func IsImage(fileType string) bool {
	switch fileType {
	case "jpg", "jpeg", "png":
		return true
	}
	return false
}

// Text extracts plain text from PDF or DOCX data.
func Text(data []byte, fileType string) (string, error) {
	switch fileType {
	case "pdf":
		return fromPDF(data)
	case "docx":
		return fromDOCX(data)
	}
	return "", fmt.Errorf("unsupported file type: %q", fileType)
}

func fromPDF(data []byte) (text string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	if reader, err := r.GetPlainText(); err == nil {
		if _, err := io.Copy(&sb, reader); err == nil {
			return strings.TrimSpace(sb.String()), nil
		}
	}

	// Page-by-page fallback for documents the whole-document path
	// cannot handle.
	sb.Reset()
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

func fromDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx document.xml: %w", err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}

	return "", errors.New("docx: word/document.xml not found")
}

// parseDocumentXML walks WordprocessingML and collects the text runs.
// Paragraphs become lines; table cells within a row are space-separated.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			case "tc":
				sb.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// ValidateContent reports whether extracted text looks like real
// content rather than parser artifacts: non-blank, at least 10 chars,
// and at least 30% alphanumeric.
func ValidateContent(text string) bool {
	if len(strings.TrimSpace(text)) < 10 {
		return false
	}

	alnum, total := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	return float64(alnum)/float64(total) >= 0.3
}
