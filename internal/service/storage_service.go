package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/pkg/config"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/storage"
)

// StoredFile describes one uploaded file in a teacher's space.
type StoredFile struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// StorageService manages per-teacher file space on local disk. Every key is
// namespaced under the owning teacher's prefix, so a teacher can never read
// or delete another teacher's files.
type StorageService struct {
	store   *storage.LocalStorage
	plans   planResolver
	maxSize int64
	logger  *zap.Logger
}

// NewStorageService constructs the storage service.
func NewStorageService(store *storage.LocalStorage, plans planResolver, cfg config.StorageConfig, logger *zap.Logger) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageService{store: store, plans: plans, maxSize: cfg.MaxFileSizeBytes, logger: logger}
}

func teacherPrefix(teacherID string) string {
	return path.Join("users", teacherID)
}

// Initialize creates the teacher's storage prefix. Safe to call repeatedly.
func (s *StorageService) Initialize(ctx context.Context, teacherID string) error {
	if err := s.store.EnsurePrefix(teacherPrefix(teacherID)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialise storage")
	}
	return nil
}

// List returns the teacher's files.
func (s *StorageService) List(ctx context.Context, teacherID string) ([]StoredFile, error) {
	infos, err := s.store.List(teacherPrefix(teacherID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	files := make([]StoredFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, StoredFile{
			Key:      info.Key,
			Name:     path.Base(info.Key),
			Size:     info.Size,
			Modified: info.ModTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return files, nil
}

// Upload stores one multipart file for the teacher and returns its key.
// Requires a plan with file storage; files over the configured size limit
// are rejected.
func (s *StorageService) Upload(ctx context.Context, teacherID string, header *multipart.FileHeader) (*StoredFile, error) {
	if s.plans != nil {
		limits, err := s.plans.Limits(ctx, teacherID)
		if err != nil {
			return nil, err
		}
		if !limits.FileStorage {
			return nil, appErrors.Clone(appErrors.ErrPlanLimit, "plan does not include file storage")
		}
	}
	if s.maxSize > 0 && header.Size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	name := sanitizeFilename(header.Filename)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing file name")
	}

	src, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable upload")
	}
	defer src.Close()

	key := path.Join(teacherPrefix(teacherID), uuid.NewString()+"_"+name)
	if _, err := s.store.SaveStream(key, src); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	s.logger.Info("file uploaded",
		zap.String("teacher_id", teacherID),
		zap.String("key", key),
		zap.Int64("size", header.Size))
	return &StoredFile{Key: key, Name: name, Size: header.Size}, nil
}

// Download opens a stored file for reading. Keys outside the teacher's
// prefix report NotFound.
func (s *StorageService) Download(ctx context.Context, teacherID, key string) (io.ReadCloser, string, error) {
	if !s.owns(teacherID, key) {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	f, err := s.store.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return f, path.Base(key), nil
}

// Delete removes one of the teacher's files.
func (s *StorageService) Delete(ctx context.Context, teacherID, key string) error {
	if !s.owns(teacherID, key) {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if err := s.store.Delete(key); err != nil {
		if os.IsNotExist(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	return nil
}

func (s *StorageService) owns(teacherID, key string) bool {
	return strings.HasPrefix(key, teacherPrefix(teacherID)+"/")
}

// sanitizeFilename keeps only the base name and drops path separators.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
