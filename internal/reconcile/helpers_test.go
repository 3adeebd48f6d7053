package reconcile

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
)

// legacyArchive builds an archive in the oldest format: no assignees, no
// type or code, photos as bare paths.
func legacyArchive(t *testing.T) []byte {
	t.Helper()
	files := []struct{ name, body string }{
		{"report.json", `{
			"exportDate": "2023-11-02T10:00:00.000Z",
			"rooms": [{"slug": "wc", "name": "WC"}],
			"issues": [
				{"id": "old", "roomSlug": "wc", "title": "Abattant", "status": "open",
				 "createdAt": "2023-10-01T10:00:00.000Z", "updatedAt": "2023-10-01T10:00:00.000Z",
				 "photos": ["img/old-1.jpg", "img/logo.svg"]},
				{"id": "untitled", "roomSlug": "wc"}
			]
		}`},
		{"img/old-1.jpg", "legacy-bytes"},
		{"img/logo.svg", "<svg/>"},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("Create(%s): %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("Write(%s): %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}
