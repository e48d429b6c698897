// Package romfile loads cartridge images from plain files or archives.
package romfile

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

var ErrNoROMInArchive = errors.New("romfile: archive contains no ROM")

// Load reads a ROM image. Zip and 7z archives are searched for the first
// entry with a .gb/.gbc extension; anything else is read as a raw image.
func Load(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return loadZip(path)
	case ".7z":
		return load7z(path)
	default:
		return os.ReadFile(path)
	}
}

func isROMName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gb", ".gbc":
		return true
	}
	return false
}

func loadZip(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	for _, f := range r.File {
		if !isROMName(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("romfile: %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, ErrNoROMInArchive
}

func load7z(path string) ([]byte, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	for _, f := range r.File {
		if !isROMName(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("romfile: %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, ErrNoROMInArchive
}
