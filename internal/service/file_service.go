package service

import (
	"context"
	"io"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/pkg/logger"
	"conversation-core/pkg/metrics"

	"github.com/google/uuid"
)

const moduleFiles = "FILES"

// BlobStore is the writable side of the file store.
type BlobStore interface {
	FileStore
	Save(ctx context.Context, conversationId uuid.UUID, name string, r io.Reader) (string, int64, error)
}

type IFileService interface {
	Upload(ctx context.Context, conversationId uuid.UUID, fileName, mimeType string, r io.Reader) (*entity.FileInfo, error)
}

type fileService struct {
	store   IConversationService
	blobs   BlobStore
	metrics *metrics.Metrics
	logger  logger.ILogger
}

func NewFileService(store IConversationService, blobs BlobStore, m *metrics.Metrics, log logger.ILogger) IFileService {
	return &fileService{
		store:   store,
		blobs:   blobs,
		metrics: m,
		logger:  log,
	}
}

// Upload writes the bytes first and records them second; a failed record
// removes the bytes again so no unreferenced file is left behind.
func (s *fileService) Upload(ctx context.Context, conversationId uuid.UUID, fileName, mimeType string, r io.Reader) (info *entity.FileInfo, err error) {
	ctx, span := tracer().Start(ctx, "FileService.Upload")
	defer finish(span, s.metrics, "upload_file", time.Now(), &err)

	if fileName == "" {
		return nil, apperror.Invalid("file_name", "is required")
	}
	existing, err := s.store.Get(ctx, conversationId, false)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperror.NotFound("conversation", conversationId)
	}

	path, size, err := s.blobs.Save(ctx, conversationId, fileName, r)
	if err != nil {
		return nil, apperror.Storage("write file", err)
	}

	info = &entity.FileInfo{
		ConversationId: conversationId,
		FileName:       fileName,
		StoragePath:    path,
		MimeType:       mimeType,
		SizeBytes:      size,
	}
	if err := s.store.AttachFile(ctx, info); err != nil {
		if derr := s.blobs.Delete(ctx, path); derr != nil {
			s.logger.Warn(moduleFiles, "Failed to remove file after rejected upload", map[string]interface{}{
				"path":  path,
				"error": derr.Error(),
			})
		}
		return nil, err
	}
	return info, nil
}
