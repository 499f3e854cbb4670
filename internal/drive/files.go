package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"drive-go/internal/model"
)

// DownloadLink is a time-limited URL for fetching a file's content.
type DownloadLink struct {
	URL       string
	ExpiresIn time.Duration
}

// GetFile returns a single file owned by owner.
func (s *DriveService) GetFile(ctx context.Context, owner, fileID string) (*model.File, error) {
	file, err := s.database.FindFile(ctx, owner, fileID)
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	if file == nil {
		return nil, newError(KindNotFound, "file not found", nil)
	}
	return file, nil
}

// ListFiles returns the files directly under folderID (nil = root), name ascending.
func (s *DriveService) ListFiles(ctx context.Context, owner string, folderID *string) ([]*model.File, error) {
	folderID = normalizeID(folderID)
	if err := s.requireFolder(ctx, owner, folderID); err != nil {
		return nil, err
	}
	files, err := s.database.ListFiles(ctx, owner, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// DownloadLink presigns a read URL for a file's blob.
func (s *DriveService) DownloadLink(ctx context.Context, owner, fileID string) (*DownloadLink, error) {
	file, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.BlobTimeout)
	defer cancel()

	url, err := s.blobs.PresignGet(ctx, file.StoragePath, s.opts.DownloadTTL)
	if err != nil {
		return nil, storageFailure("could not create download link", err)
	}
	return &DownloadLink{URL: url, ExpiresIn: s.opts.DownloadTTL}, nil
}

// DownloadFile streams a file's content to w and returns its metadata.
func (s *DriveService) DownloadFile(ctx context.Context, owner, fileID string, w io.Writer) (*model.File, error) {
	file, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.BlobTimeout)
	defer cancel()

	if err := s.blobs.Get(ctx, file.StoragePath, w); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.logger.Error("file record has no blob", "owner", owner, "file", fileID)
			return nil, newError(KindStorageError, "file content is missing", err)
		}
		return nil, storageFailure("could not read file content", err)
	}
	return file, nil
}

// DeleteFile removes a file's blob and then its record. If the blob store
// fails the record is kept, so the file stays visible and the delete can be
// retried. A blob that is already gone does not block the delete.
func (s *DriveService) DeleteFile(ctx context.Context, owner, fileID string) error {
	file, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return err
	}

	blobCtx, cancel := context.WithTimeout(ctx, s.opts.BlobTimeout)
	err = s.blobs.Delete(blobCtx, file.StoragePath)
	cancel()
	switch {
	case errors.Is(err, ErrBlobNotFound):
		s.logger.Warn("blob already missing on delete", "owner", owner, "file", fileID)
	case err != nil:
		return storageFailure("could not delete file content", err)
	}

	if err := s.database.DeleteFile(ctx, owner, fileID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return newError(KindNotFound, "file not found", nil)
		}
		return newError(KindStorageError, "could not delete file metadata", err)
	}

	s.logger.Info("file deleted", "owner", owner, "file", fileID)
	return nil
}

// RenameFile changes a file's display name. The blob is not moved; its
// storage path stays an opaque key.
func (s *DriveService) RenameFile(ctx context.Context, owner, fileID, newName string) (*model.File, error) {
	name, err := cleanName(newName)
	if err != nil {
		return nil, err
	}

	file, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}
	if file.Name == name {
		return file, nil
	}

	now := s.clock.Now()
	if err := s.database.RenameFile(ctx, owner, fileID, name, now); err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return nil, newError(KindNotFound, "file not found", nil)
		case errors.Is(err, ErrUniqueViolation):
			return nil, newError(KindNameConflict, "a file with this name already exists in this location", nil)
		}
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	s.logger.Info("file renamed", "owner", owner, "file", fileID)
	file.Name = name
	file.UpdatedAt = now
	return file, nil
}

// RetagFile recomputes a file's tags with the current tagger.
func (s *DriveService) RetagFile(ctx context.Context, owner, fileID string) (*model.File, error) {
	file, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}

	tags := s.tagger.Tags(file.Name, file.MimeType)
	now := s.clock.Now()
	if err := s.database.UpdateFileTags(ctx, owner, fileID, tags, now); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, newError(KindNotFound, "file not found", nil)
		}
		return nil, fmt.Errorf("updating tags: %w", err)
	}

	file.Tags = tags
	file.UpdatedAt = now
	return file, nil
}
