// storage.go
//
// A scalable quality-control gamme service, replacement for the legacy Django QC application
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamme-qc.
// gamme-qc is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamme-qc is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamme-qc.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store abstracts blob storage for photos and report PDFs. Paths returned by
// Save are relative keys; URL turns a key into a client-facing address.
type Store interface {
	Save(dir, filename string, r io.Reader) (string, error)
	Delete(key string) error
	URL(key string) string
}

// LocalStore keeps blobs on the local filesystem under a media root,
// serving them from a public base URL.
type LocalStore struct {
	Root    string
	BaseURL string
}

// NewLocalStore creates a LocalStore rooted at root
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Save writes the reader's content under dir with a uuid-prefixed name and
// returns the relative key.
func (s *LocalStore) Save(dir, filename string, r io.Reader) (string, error) {
	key := path.Join(dir, uuid.NewString()+"_"+sanitize(filename))

	full := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	return key, nil
}

// Delete removes the blob for key. Deleting a missing blob is not an error.
func (s *LocalStore) Delete(key string) error {
	full := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// URL returns the public address for key
func (s *LocalStore) URL(key string) string {
	return s.BaseURL + "/media/" + key
}

// SaveMultipart streams an uploaded form file into the store
func SaveMultipart(s Store, dir string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return s.Save(dir, fh.Filename, f)
}

// sanitize strips path separators and other hostile characters from an
// uploaded filename; the uuid prefix already guarantees uniqueness.
func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}
