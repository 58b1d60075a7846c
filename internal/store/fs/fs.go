// Package fs implementa los stores del dominio sobre archivos JSON.
//
// Layout bajo el directorio raíz:
//
//	identities/<ref>.json   una identidad por archivo (clave privada sellada)
//	documents/<scope>.json  todos los SignatureRecords de un scope
//
// Cada escritura es atómica (tmp → fsync → rename). Un único proceso debe
// ser dueño del directorio: el lock es en memoria.
package fs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

const (
	identitiesDir = "identities"
	documentsDir  = "documents"
	filePerm      = 0o600
)

// fileName convierte una referencia (email) en un nombre de archivo seguro.
func fileName(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "." || ref == ".." {
		return "", fmt.Errorf("%w: empty reference", repository.ErrInvalidInput)
	}
	return url.PathEscape(ref) + ".json", nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

func isNotExist(err error) bool { return errors.Is(err, os.ErrNotExist) }

func join(root string, parts ...string) string {
	return filepath.Join(append([]string{filepath.Clean(root)}, parts...)...)
}
