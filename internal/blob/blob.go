// Package blob is the opaque file storage used for uploaded court documents,
// addressed by relative path. The firm's deployment keeps documents on local
// disk next to the database.
package blob

import (
	"fmt"
	"path"
	"strings"
)

// Store persists and retrieves document blobs by relative path.
type Store interface {
	// Save writes data under the given path, creating parent directories.
	Save(path string, data []byte) error
	// Exists reports whether a blob is present at the given path.
	Exists(path string) bool
	// LocalPath returns a filesystem path the PDF parser can open.
	LocalPath(path string) string
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(path string) error
}

// UpdatePath builds the storage path for a proceeding update's document:
// juicios/{juicioID}/updates/{filename}. The filename keeps its uploaded
// name so concurrent uploads with distinct names do not collide.
func UpdatePath(juicioID, filename string) string {
	return fmt.Sprintf("juicios/%s/updates/%s", juicioID, SanitizeFilename(filename))
}

// SanitizeFilename strips directory components and path traversal from an
// uploaded filename.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		name = "documento.pdf"
	}
	return name
}
