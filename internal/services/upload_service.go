package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"printshop/internal/models"
	"printshop/internal/repositories"
	"printshop/pkg/filestore"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// FileStore keeps uploaded bytes under a storage name.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
}

// UploadService accepts boarding-pass images and tracks them.
type UploadService struct {
	repo     repositories.UploadRepository
	files    FileStore
	maxBytes int64
}

// NewUploadService creates a new UploadService.
func NewUploadService(repo repositories.UploadRepository, files FileStore, maxBytes int64) *UploadService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &UploadService{repo: repo, files: files, maxBytes: maxBytes}
}

// Store sniffs data, rejects anything but images and saves it. ownerID is
// empty for guest uploads.
func (s *UploadService) Store(ctx context.Context, ownerID, originalName string, data []byte) (*models.UploadedFile, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), s.maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrUnsupportedFileType
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedFileType, mime.String())
	}

	filename := uuid.New().String() + mime.Extension()
	if err := s.files.Save(ctx, filename, data); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.UploadedFile{
		UserID:       ownerID,
		OriginalName: originalName,
		Filename:     filename,
		Size:         int64(len(data)),
		MimeType:     mime.String(),
	}
	if _, err := s.repo.Save(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Get returns the record of a file that has not been deleted.
func (s *UploadService) Get(ctx context.Context, fileID string) (*models.UploadedFile, error) {
	file, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.Deleted {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}
	return file, nil
}

// Open returns a file's record and its bytes.
func (s *UploadService) Open(ctx context.Context, fileID string) (*models.UploadedFile, []byte, error) {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.files.Read(ctx, file.Filename)
	if errors.Is(err, filestore.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s has no content", ErrFileNotFound, fileID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return file, data, nil
}

// Delete soft-deletes a file. Only its owner or an admin may do so.
func (s *UploadService) Delete(ctx context.Context, fileID string, requester models.Actor) error {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if !requester.IsAdmin() && (file.UserID == "" || file.UserID != requester.UserID) {
		return ErrPermissionDenied
	}
	return s.repo.MarkDeleted(ctx, file.ID)
}
