// Package localstore keeps deposited files on a local (or in-memory) filesystem.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/noah-isme/testseries-api/pkg/storage"
)

// Store writes objects below a root directory of an afero filesystem.
type Store struct {
	fs      afero.Fs
	root    string
	baseURL string
	logger  zerolog.Logger
}

// New constructs a store rooted at dir. baseURL is the public prefix under which the
// API serves files, e.g. "/api/v1"; URLs take the form <baseURL>/files/<key>.
func New(filesystem afero.Fs, dir, baseURL string, logger zerolog.Logger) (*Store, error) {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("local storage directory must be provided")
	}
	if err := filesystem.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to prepare storage directory: %w", err)
	}

	return &Store{
		fs:      filesystem,
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "localstore").Logger(),
	}, nil
}

// Put writes the object, refusing to overwrite an existing key.
func (s *Store) Put(ctx context.Context, key, _ string, body io.Reader) (string, error) {
	target, err := s.path(key)
	if err != nil {
		return "", err
	}

	if exists, err := afero.Exists(s.fs, target); err != nil {
		return "", err
	} else if exists {
		return "", fmt.Errorf("object %q already exists", key)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := afero.WriteReader(s.fs, target, body); err != nil {
		_ = s.fs.Remove(target)
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("object stored")

	return fmt.Sprintf("%s/files/%s", s.baseURL, key), nil
}

// Get opens the object for reading.
func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}

	file, err := s.fs.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, err
	}
	return file, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path.Join(s.root, strings.TrimPrefix(clean, "/")), nil
}
