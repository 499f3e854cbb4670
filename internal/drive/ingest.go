package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"drive-go/internal/model"
)

// uploadStage names the steps of the ingestion state machine.
type uploadStage string

const (
	stageReceived     uploadStage = "received"
	stageContentTyped uploadStage = "content_typed"
	stageBlobStored   uploadStage = "blob_stored"
	stageEmbedded     uploadStage = "embedded"
	stagePersisted    uploadStage = "persisted"
	stageFailed       uploadStage = "failed"
)

// UploadResult describes a successfully ingested file.
type UploadResult struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64
	Tags     []string
	// Degraded is set when the embedding could not be computed. The file is
	// stored and listed normally but only matches searches by name.
	Degraded bool
}

// StoragePath returns the blob store key for a file. The file id keeps keys
// unique, so a blob write can never replace another record's content.
func StoragePath(owner, fileID, name string) string {
	return owner + "/" + fileID + "/" + name
}

// Upload ingests content as a new file named filename under folderID (nil = root).
//
// Ordering: the blob is written first, then metadata in one transaction. If
// the metadata write fails the blob is deleted again; a crash in between can
// leave an orphaned blob but never a record without content.
func (s *DriveService) Upload(ctx context.Context, owner string, folderID *string, filename string, content []byte) (*UploadResult, error) {
	res, err := s.upload(ctx, owner, normalizeID(folderID), filename, content)
	if err != nil {
		s.metrics.UploadFailed(KindOf(err))
		return nil, err
	}
	s.metrics.UploadCompleted(res.Degraded)
	return res, nil
}

func (s *DriveService) upload(ctx context.Context, owner string, folderID *string, filename string, content []byte) (*UploadResult, error) {
	fileID := s.idgen.New()

	name, err := cleanName(filename)
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.opts.MaxUploadSize {
		return nil, newError(KindInvalidArgument, "file exceeds the maximum upload size", nil)
	}
	if err := s.CheckUser(ctx, owner); err != nil {
		return nil, err
	}
	if folderID != nil {
		folder, err := s.database.FindFolder(ctx, owner, *folderID)
		if err != nil {
			return nil, fmt.Errorf("finding folder: %w", err)
		}
		if folder == nil {
			return nil, newError(KindInvalidParent, "folder does not exist", nil)
		}
	}
	existing, err := s.database.FindFileByName(ctx, owner, folderID, name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing file: %w", err)
	}
	if existing != nil {
		return nil, newError(KindNameConflict, "a file with this name already exists in this location", nil)
	}
	s.advance(fileID, stageReceived, "name", name, "size", len(content))

	mimeType := DetectMimeType(content)
	s.advance(fileID, stageContentTyped, "mime_type", mimeType)

	storagePath := StoragePath(owner, fileID, name)
	putCtx, cancel := context.WithTimeout(ctx, s.opts.BlobTimeout)
	err = s.blobs.Put(putCtx, storagePath, bytes.NewReader(content), int64(len(content)), mimeType)
	cancel()
	if err != nil {
		s.advance(fileID, stageFailed, "error", err)
		return nil, newError(KindStorageUnavailable, "could not store file content", err)
	}
	s.advance(fileID, stageBlobStored)

	embedding, err := s.embed(ctx, embeddingInput(name, mimeType, content, s.opts.EmbedTextLimit))
	degraded := err != nil
	if degraded {
		s.logger.Warn("embedding degraded", "file", fileID, "error", err)
	}
	tags := s.tagger.Tags(name, mimeType)
	s.advance(fileID, stageEmbedded, "degraded", degraded)

	now := s.clock.Now()
	file := &model.File{
		ID:          fileID,
		Name:        name,
		StoragePath: storagePath,
		MimeType:    mimeType,
		Size:        int64(len(content)),
		OwnerID:     owner,
		FolderID:    folderID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        tags,
		Embedding:   embedding,
	}
	if err := s.database.InsertFile(ctx, file); err != nil {
		s.advance(fileID, stageFailed, "error", err)
		s.compensate(ctx, fileID, storagePath)
		if errors.Is(err, ErrUniqueViolation) {
			return nil, newError(KindNameConflict, "a file with this name already exists in this location", nil)
		}
		return nil, newError(KindStorageError, "could not save file metadata", err)
	}
	s.advance(fileID, stagePersisted)

	s.logger.Info("file uploaded", "owner", owner, "file", fileID, "size", file.Size, "mime_type", mimeType)
	return &UploadResult{
		FileID:   file.ID,
		FileName: file.Name,
		MimeType: file.MimeType,
		Size:     file.Size,
		Tags:     file.Tags,
		Degraded: degraded,
	}, nil
}

// compensate deletes a blob whose metadata write failed. It runs even if the
// request context is already cancelled; failure leaves an orphaned blob,
// which is unreachable from any listing.
func (s *DriveService) compensate(ctx context.Context, fileID, storagePath string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.BlobTimeout)
	defer cancel()

	if err := s.blobs.Delete(ctx, storagePath); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logger.Error("orphaned blob after failed upload", "file", fileID, "error", err)
		s.metrics.BlobCompensated(false)
		return
	}
	s.metrics.BlobCompensated(true)
}

func (s *DriveService) advance(fileID string, stage uploadStage, args ...any) {
	s.logger.Debug("upload stage", append([]any{"file", fileID, "stage", string(stage)}, args...)...)
}
