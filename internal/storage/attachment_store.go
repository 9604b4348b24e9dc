package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffLen is how much of a blob is buffered for content-type detection.
const sniffLen = 3072

// ErrBlobNotFound is returned when a reference has no stored blob.
var ErrBlobNotFound = errors.New("blob not found")

// StoredBlob describes a blob after it was written.
type StoredBlob struct {
	Reference   string
	Size        int64
	ContentType string
}

// AttachmentStore persists attachment payloads out of band from ticket records.
type AttachmentStore interface {
	Save(ctx context.Context, fileName string, r io.Reader) (StoredBlob, error)
	Open(ctx context.Context, reference string) (io.ReadCloser, error)
	Delete(ctx context.Context, reference string) error
}

// LocalStore keeps blobs in a directory on the local filesystem.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute storage directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes r under a random name that keeps the original extension.
// The blob only becomes visible once fully written.
func (s *LocalStore) Save(ctx context.Context, fileName string, r io.Reader) (StoredBlob, error) {
	if err := ctx.Err(); err != nil {
		return StoredBlob{}, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return StoredBlob{}, fmt.Errorf("read %s: %w", fileName, err)
	}
	head = head[:n]

	reference := blobName(fileName)
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return StoredBlob{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	size, err := io.Copy(tmp, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		_ = tmp.Close()
		return StoredBlob{}, fmt.Errorf("write %s: %w", fileName, err)
	}
	if err := tmp.Close(); err != nil {
		return StoredBlob{}, fmt.Errorf("close %s: %w", fileName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.root, reference)); err != nil {
		return StoredBlob{}, fmt.Errorf("commit %s: %w", fileName, err)
	}

	return StoredBlob{
		Reference:   reference,
		Size:        size,
		ContentType: mimetype.Detect(head).String(),
	}, nil
}

// Open returns a reader for the blob. The caller closes it.
func (s *LocalStore) Open(_ context.Context, reference string) (io.ReadCloser, error) {
	path, err := s.path(reference)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", reference, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", reference, err)
	}
	return f, nil
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *LocalStore) Delete(_ context.Context, reference string) error {
	path, err := s.path(reference)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", reference, err)
	}
	return nil
}

func (s *LocalStore) path(reference string) (string, error) {
	if reference == "" || reference != filepath.Base(reference) || strings.HasPrefix(reference, ".") {
		return "", fmt.Errorf("invalid reference %q", reference)
	}
	return filepath.Join(s.root, reference), nil
}

func blobName(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 16 {
		ext = ""
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}
