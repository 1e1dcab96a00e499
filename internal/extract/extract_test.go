package extract

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"essay.pdf", "pdf"},
		{"essay.PDF", "pdf"},
		{"report.docx", "docx"},
		{"legacy.doc", "docx"},
		{"scan.jpg", "jpg"},
		{"scan.jpeg", "jpeg"},
		{"scan.png", "png"},
		{"notes.txt", ""},
		{"archive.zip", ""},
		{"noextension", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DetectType(tt.filename); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestIsImage(t *testing.T) {
	for _, ft := range []string{"jpg", "jpeg", "png"} {
		if !IsImage(ft) {
			t.Errorf("IsImage(%q) = false, want true", ft)
		}
	}
	for _, ft := range []string{"pdf", "docx", ""} {
		if IsImage(ft) {
			t.Errorf("IsImage(%q) = true, want false", ft)
		}
	}
}

// buildDOCX assembles a minimal docx archive around the given
// document.xml body.
func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph of the essay.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph here.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Cell one</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Cell two</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestTextFromDOCX(t *testing.T) {
	data := buildDOCX(t, sampleDocumentXML)

	text, err := Text(data, "docx")
	if err != nil {
		t.Fatalf("Text() error: %v", err)
	}

	for _, want := range []string{"First paragraph of the essay.", "Second paragraph here.", "Cell one", "Cell two"} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q:\n%s", want, text)
		}
	}

	// Paragraphs are separate lines.
	if strings.Contains(text, "essay.Second") {
		t.Error("paragraphs should be newline-separated")
	}
}

func TestTextFromDOCXSplitRuns(t *testing.T) {
	// Word often splits one sentence across multiple runs.
	data := buildDOCX(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p>
    <w:r><w:t>Hel</w:t></w:r><w:r><w:t>lo wor</w:t></w:r><w:r><w:t>ld</w:t></w:r>
  </w:p></w:body>
</w:document>`)

	text, err := Text(data, "docx")
	if err != nil {
		t.Fatalf("Text() error: %v", err)
	}
	if text != "Hello world" {
		t.Errorf("got %q, want %q", text, "Hello world")
	}
}

func TestTextErrors(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		if _, err := Text([]byte("plain"), "txt"); err == nil {
			t.Error("expected error for unsupported type")
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		if _, err := Text([]byte("not a docx at all"), "docx"); err == nil {
			t.Error("expected error for corrupt docx")
		}
	})

	t.Run("zip without document.xml", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, _ := zw.Create("other.xml")
		_, _ = w.Write([]byte("<x/>"))
		_ = zw.Close()

		if _, err := Text(buf.Bytes(), "docx"); err == nil {
			t.Error("expected error for docx without word/document.xml")
		}
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		if _, err := Text([]byte("%PDF-1.4 garbage"), "pdf"); err == nil {
			t.Error("expected error for corrupt pdf")
		}
	})
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"too short", "abc", false},
		{"normal prose", "This is a normal student answer with words.", true},
		{"mostly symbols", "$$$ %%% ### @@@ !!! ^^^ &&& ***", false},
		{"numbers count", "1234567890 1234567890", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateContent(tt.text); got != tt.want {
				t.Errorf("ValidateContent(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPrepareImage(t *testing.T) {
	// A small PNG with an alpha channel, like a phone screenshot.
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 200})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	jpegData, err := PrepareImage(pngBuf.Bytes())
	if err != nil {
		t.Fatalf("PrepareImage() error: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("bounds changed: %v != %v", decoded.Bounds(), src.Bounds())
	}
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	if _, err := PrepareImage([]byte("definitely not an image")); err == nil {
		t.Error("expected error for non-image data")
	}
}
