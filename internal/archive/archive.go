// Package archive reads and writes the portable archive: a ZIP holding a
// machine-readable manifest (report.json), a human-readable report
// (report.md) and an img/ folder with a full image and a thumbnail per
// photo.
package archive

import (
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"
)

// Names of the parts inside an archive.
const (
	ManifestName = "report.json"
	ReportName   = "report.md"
	AssetDir     = "img"
)

// DefaultExtension is used for photos whose MIME type yields no allowed
// extension.
const DefaultExtension = "jpg"

var allowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ExtensionForMIME derives a file extension from the subtype of a MIME type,
// falling back to DefaultExtension when the subtype is not allowed or the
// type cannot be parsed.
func ExtensionForMIME(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return DefaultExtension
	}
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		return DefaultExtension
	}
	if _, allowed := allowedExtensions[sub]; !allowed {
		return DefaultExtension
	}
	return sub
}

// AllowedExtension reports whether name ends in an allowed image extension.
func AllowedExtension(name string) bool {
	_, ok := allowedExtensions[extensionOf(name)]
	return ok
}

// mimeForPath guesses a MIME type from an asset path.
func mimeForPath(name string) string {
	if m, ok := allowedExtensions[extensionOf(name)]; ok {
		return m
	}
	return allowedExtensions[DefaultExtension]
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// AssetName returns the archive path for the n-th (1-based) photo of an
// issue: img/{issueID}-{n}.{ext}, or img/{issueID}-{n}-thumb.{ext} for the
// thumbnail. Characters unsafe in file names are replaced.
func AssetName(issueID string, n int, thumb bool, ext string) string {
	base := safeName(issueID) + "-" + strconv.Itoa(n)
	if thumb {
		base += "-thumb"
	}
	return AssetDir + "/" + base + "." + ext
}

// safeName keeps ASCII letters, digits, '-' and '_' and replaces everything
// else with '_'.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "issue"
	}
	return b.String()
}

// namer hands out asset names that are unique within one archive.
type namer struct {
	used map[string]struct{}
}

func newNamer() *namer {
	return &namer{used: make(map[string]struct{})}
}

// claim returns name if it is free, else name with -{k} inserted before the
// extension for the smallest free k starting at 1.
func (n *namer) claim(name string) string {
	candidate := name
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for k := 1; ; k++ {
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, k, ext)
	}
}

// MalformedArchiveError reports an archive that cannot be imported at all:
// not a ZIP, no manifest, or a manifest without an issues list. Nothing is
// written when it is returned.
type MalformedArchiveError struct {
	Reason string
	Err    error
}

func (e *MalformedArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed archive: %s: %v", e.Reason, e.Err)
	}
	return "malformed archive: " + e.Reason
}

func (e *MalformedArchiveError) Unwrap() error {
	return e.Err
}

// OutcomeStatus classifies what happened to one item of a batch.
type OutcomeStatus string

const (
	// OutcomeSkipped means the item was left out.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeReassigned means the item was kept under a fresh id.
	OutcomeReassigned OutcomeStatus = "reassigned"
	// OutcomeOverwritten means the item replaced an existing one with the
	// same id.
	OutcomeOverwritten OutcomeStatus = "overwritten"
	// OutcomeDegraded means the item was kept with part of its data missing.
	OutcomeDegraded OutcomeStatus = "degraded"
)

// Item kinds carried by outcomes.
const (
	KindIssue    = "issue"
	KindPhoto    = "photo"
	KindRoom     = "room"
	KindAssignee = "assignee"
)

// Outcome records a per-item result that did not stop the batch.
type Outcome struct {
	Kind   string        `json:"kind"`
	Ref    string        `json:"ref"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason"`
}

func skipped(kind, ref, reason string) Outcome {
	return Outcome{Kind: kind, Ref: ref, Status: OutcomeSkipped, Reason: reason}
}
