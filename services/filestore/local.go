package filestore

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/assignment"
)

// Allowed attachment types: images, PDF, Office documents, text and archives.
// Both the file extension and the declared MIME type must match.
var (
	allowedExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
		".pdf": true,
		".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
		".txt": true, ".csv": true, ".md": true,
		".zip": true, ".rar": true, ".7z": true,
	}

	allowedMIMETypes = map[string]bool{
		"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
		"application/pdf": true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"application/vnd.ms-excel": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
		"application/vnd.ms-powerpoint": true,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
		"text/plain": true, "text/csv": true, "text/markdown": true,
		"application/zip": true, "application/x-zip-compressed": true,
		"application/vnd.rar": true, "application/x-rar-compressed": true,
		"application/x-7z-compressed": true,
	}
)

// Local stores attachments on local disk. Save is safe for concurrent use:
// randomized filenames plus exclusive creation avoid collisions.
type Local struct {
	dir     string
	maxSize int64
}

var _ assignment.FileStore = (*Local)(nil)

func NewLocal(conf *core.Config) (*Local, error) {
	if err := os.MkdirAll(conf.Uploads.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &Local{
		dir:     conf.Uploads.Dir,
		maxSize: conf.Uploads.MaxFileSize,
	}, nil
}

// Save validates and writes one upload. The stored filename is
// <millisecond-timestamp>-<random-int>-<original-name>.
func (s *Local) Save(ctx context.Context, up assignment.Upload) (assignment.Attachment, error) {
	if err := s.validate(up); err != nil {
		return assignment.Attachment{}, err
	}

	name := fmt.Sprintf("%d-%d-%s",
		time.Now().UnixNano()/int64(time.Millisecond), rand.Intn(1_000_000_000), sanitizeName(up.Name))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return assignment.Attachment{}, errors.Wrap(err, "creating attachment file")
	}
	written, err := io.Copy(f, io.LimitReader(up.Content, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > s.maxSize {
		err = fmt.Errorf("file %q exceeds the %d byte limit", up.Name, s.maxSize)
	}
	if err != nil {
		_ = os.Remove(path)
		return assignment.Attachment{}, err
	}

	return assignment.Attachment{
		OriginalName: up.Name,
		StoredName:   name,
		Path:         path,
		Size:         written,
		ContentType:  up.ContentType,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

// Remove deletes a previously stored attachment. Paths outside the store
// directory are refused.
func (s *Local) Remove(att assignment.Attachment) error {
	path := filepath.Clean(att.Path)
	if filepath.Dir(path) != filepath.Clean(s.dir) {
		return fmt.Errorf("refusing to remove %q: outside the uploads dir", att.Path)
	}
	return os.Remove(path)
}

func (s *Local) validate(up assignment.Upload) error {
	ext := strings.ToLower(filepath.Ext(up.Name))
	if ext == "" || !allowedExtensions[ext] {
		return core.NewValidationError(
			fmt.Errorf("file type %q is not allowed", ext),
			core.FieldError{Field: "files", Error: fmt.Sprintf("file type %q is not allowed", ext)},
		)
	}
	mimeType := strings.ToLower(strings.TrimSpace(strings.SplitN(up.ContentType, ";", 2)[0]))
	if !allowedMIMETypes[mimeType] {
		return core.NewValidationError(
			fmt.Errorf("content type %q is not allowed", mimeType),
			core.FieldError{Field: "files", Error: fmt.Sprintf("content type %q is not allowed", mimeType)},
		)
	}
	if up.Size > s.maxSize {
		return core.NewValidationError(
			fmt.Errorf("file %q exceeds the %d byte limit", up.Name, s.maxSize),
			core.FieldError{Field: "files", Error: "file too large"},
		)
	}
	return nil
}

// sanitizeName strips any path components from an uploaded filename.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "." || name == ".." || name == "" {
		name = "file"
	}
	return name
}
