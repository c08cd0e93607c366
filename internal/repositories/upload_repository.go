package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"printshop/internal/models"
	"printshop/pkg/docstore"
)

const uploadedFilesSet = "uploaded_files"

func fileKey(id string) string {
	if strings.HasPrefix(id, "file:") {
		return id
	}
	return "file:" + id
}

// UploadRepository defines the interface for uploaded file records.
type UploadRepository interface {
	Save(ctx context.Context, file *models.UploadedFile) (string, error)
	GetByID(ctx context.Context, id string) (*models.UploadedFile, error)
	MarkDeleted(ctx context.Context, id string) error
}

// DocstoreUploadRepository stores upload records as field-maps.
type DocstoreUploadRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewDocstoreUploadRepository creates a new DocstoreUploadRepository.
func NewDocstoreUploadRepository(store docstore.Store) *DocstoreUploadRepository {
	return NewDocstoreUploadRepositoryWithClock(store, time.Now)
}

// NewDocstoreUploadRepositoryWithClock creates a repository that stamps times from now.
func NewDocstoreUploadRepositoryWithClock(store docstore.Store, now func() time.Time) *DocstoreUploadRepository {
	return &DocstoreUploadRepository{store: store, now: now}
}

// Save writes the record and indexes it under "uploaded_files".
func (r *DocstoreUploadRepository) Save(ctx context.Context, file *models.UploadedFile) (string, error) {
	now := r.now()
	if file.ID == "" {
		file.ID = newID("file", now)
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = now
	}
	fields := map[string]string{
		"id":           file.ID,
		"originalName": file.OriginalName,
		"filename":     file.Filename,
		"size":         strconv.FormatInt(file.Size, 10),
		"mimetype":     file.MimeType,
		"uploadedAt":   formatTime(file.UploadedAt),
		"deleted":      strconv.FormatBool(file.Deleted),
	}
	setIfPresent(fields, "userId", file.UserID)

	if err := r.store.WriteIndexed(ctx, fileKey(file.ID), fields, file.ID, uploadedFilesSet); err != nil {
		return "", fmt.Errorf("failed to save uploaded file: %w", err)
	}
	return file.ID, nil
}

// GetByID loads a record, including soft-deleted ones, or nil when absent.
func (r *DocstoreUploadRepository) GetByID(ctx context.Context, id string) (*models.UploadedFile, error) {
	f, err := r.store.ReadFields(ctx, fileKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get uploaded file %s: %w", id, err)
	}
	if len(f) == 0 {
		return nil, nil
	}
	file := &models.UploadedFile{
		ID:           f["id"],
		UserID:       f["userId"],
		OriginalName: f["originalName"],
		Filename:     f["filename"],
		MimeType:     f["mimetype"],
		UploadedAt:   parseTime(f["uploadedAt"]),
		Deleted:      parseBool(f["deleted"]),
	}
	if file.ID == "" {
		file.ID = strings.TrimPrefix(id, "file:")
	}
	file.Size, _ = strconv.ParseInt(f["size"], 10, 64)
	return file, nil
}

// MarkDeleted sets the soft-delete flag.
func (r *DocstoreUploadRepository) MarkDeleted(ctx context.Context, id string) error {
	fields := map[string]string{
		"deleted":   "true",
		"deletedAt": formatTime(r.now()),
	}
	if err := r.store.WriteFields(ctx, fileKey(id), fields); err != nil {
		return fmt.Errorf("failed to delete uploaded file %s: %w", id, err)
	}
	return nil
}
