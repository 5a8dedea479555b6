package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/observability"
	"github.com/noah-isme/testseries-api/internal/repository"
	"github.com/noah-isme/testseries-api/pkg/storage"
)

// FileObject is a file moving in or out of the deposit.
type FileObject struct {
	Data         []byte
	ContentType  string
	Name         string
	OwnerID      string
	Kind         string
	SubmissionID *string
}

// FileDeposit stores answer sheets and evaluated sheets and hands back stable references.
type FileDeposit interface {
	Put(ctx context.Context, object FileObject) (dto.FileResponse, error)
	FromMultipart(file *multipart.FileHeader) (FileObject, error)
	Get(ctx context.Context, url string) (FileObject, error)
	Open(ctx context.Context, actor Actor, key string) (io.ReadCloser, models.StoredFile, error)
	Authorize(ctx context.Context, actor Actor, url string) error
	Purge(ctx context.Context, url string) error
}

type fileDeposit struct {
	store       storage.Store
	files       repository.UploadRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
	maxSize     int64
	tracer      trace.Tracer
}

// NewFileDeposit constructs the deposit on top of a storage backend.
func NewFileDeposit(store storage.Store, files repository.UploadRepository, submissions repository.SubmissionRepository, maxSizeMB int, logger zerolog.Logger) FileDeposit {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &fileDeposit{
		store:       store,
		files:       files,
		submissions: submissions,
		logger:      logger.With().Str("component", "file_deposit").Logger(),
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		tracer:      otel.Tracer("github.com/noah-isme/testseries-api/internal/service/file_deposit"),
	}
}

// FromMultipart reads an uploaded form file, refusing anything above the size limit.
func (s *fileDeposit) FromMultipart(file *multipart.FileHeader) (FileObject, error) {
	if file == nil {
		return FileObject{}, ErrFileRequired
	}
	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return FileObject{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return FileObject{}, validationError(fmt.Errorf("failed to open upload: %w", err))
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return FileObject{}, validationError(fmt.Errorf("failed to read upload: %w", err))
	}

	return FileObject{
		Data:        buf.Bytes(),
		ContentType: file.Header.Get("Content-Type"),
		Name:        file.Filename,
	}, nil
}

func (s *fileDeposit) Put(ctx context.Context, object FileObject) (dto.FileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "deposit.put")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.Int("upload.size_bytes", len(object.Data)),
		attribute.String("upload.kind", object.Kind),
	)

	if len(object.Data) == 0 {
		span.SetStatus(codes.Error, "validation failed")
		return dto.FileResponse{}, ErrFileRequired
	}

	if int64(len(object.Data)) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.FileResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(object.Data)
	family := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
	if !isAllowedType(family) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.FileResponse{}, ErrUploadTypeNotAllowed
	}

	if err := s.scan(object.Data, family); err != nil {
		observability.UploadRejected().WithLabelValues("scan").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return dto.FileResponse{}, err
	}

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return dto.FileResponse{}, err
	}

	checksum := sha256.Sum256(object.Data)
	key := uuid.NewString() + detected.Extension()
	name := sanitizeFileName(object.Name, detected.Extension())

	url, err := s.store.Put(ctx, key, detected.String(), bytes.NewReader(object.Data))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.FileResponse{}, storageError("store file", err)
	}

	record := models.StoredFile{
		ObjectKey:    key,
		URL:          url,
		Kind:         object.Kind,
		OwnerID:      object.OwnerID,
		SubmissionID: object.SubmissionID,
		FileName:     name,
		MimeType:     detected.String(),
		SizeBytes:    int64(len(object.Data)),
		Checksum:     hex.EncodeToString(checksum[:]),
	}

	// The row is written even if ctx was cancelled after the object landed; Purge needs it.
	if err := s.files.Create(context.WithoutCancel(ctx), &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", key).Msg("failed to remove object after metadata failure")
		}
		return dto.FileResponse{}, storageError("record file", err)
	}

	observability.UploadRequests().WithLabelValues(object.Kind, family).Inc()
	span.SetStatus(codes.Ok, "stored")

	return newFileResponse(record), nil
}

func (s *fileDeposit) Get(ctx context.Context, url string) (FileObject, error) {
	record, err := s.lookupURL(ctx, url)
	if err != nil {
		return FileObject{}, err
	}

	reader, err := s.store.Get(ctx, record.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return FileObject{}, ErrFileNotFound
		}
		return FileObject{}, storageError("read file", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return FileObject{}, storageError("read file", err)
	}

	return FileObject{
		Data:         data,
		ContentType:  record.MimeType,
		Name:         record.FileName,
		OwnerID:      record.OwnerID,
		Kind:         record.Kind,
		SubmissionID: record.SubmissionID,
	}, nil
}

func (s *fileDeposit) Open(ctx context.Context, actor Actor, key string) (io.ReadCloser, models.StoredFile, error) {
	record, err := s.files.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if actor.Is(RoleStudent) {
				return nil, models.StoredFile{}, ErrForbidden
			}
			return nil, models.StoredFile{}, ErrFileNotFound
		}
		return nil, models.StoredFile{}, storageError("lookup file", err)
	}

	if err := s.authorizeRecord(ctx, actor, record); err != nil {
		return nil, models.StoredFile{}, err
	}

	reader, err := s.store.Get(ctx, record.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, models.StoredFile{}, ErrFileNotFound
		}
		return nil, models.StoredFile{}, storageError("read file", err)
	}
	return reader, record, nil
}

func (s *fileDeposit) Authorize(ctx context.Context, actor Actor, url string) error {
	record, err := s.lookupURL(ctx, url)
	if err != nil {
		if errors.Is(err, ErrNotFound) && actor.Is(RoleStudent) {
			return ErrForbidden
		}
		return err
	}
	return s.authorizeRecord(ctx, actor, record)
}

// authorizeRecord lets staff read everything. Students may read their own answer sheets and
// the evaluated sheet of their own submission once it has been approved.
func (s *fileDeposit) authorizeRecord(ctx context.Context, actor Actor, record models.StoredFile) error {
	if actor.IsStaff() {
		return nil
	}
	if !actor.Is(RoleStudent) || actor.ID == "" {
		return ErrForbidden
	}

	switch record.Kind {
	case models.FileKindAnswerSheet:
		if record.OwnerID == actor.ID {
			return nil
		}
		return ErrForbidden
	case models.FileKindEvaluatedSheet:
		if record.SubmissionID == nil {
			return ErrForbidden
		}
		submission, err := s.submissions.GetByID(ctx, *record.SubmissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrForbidden
			}
			return storageError("lookup submission", err)
		}
		if _, err := ProjectSubmission(actor, submission); err != nil {
			return err
		}
		if !submission.IsPublished() {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

func (s *fileDeposit) Purge(ctx context.Context, url string) error {
	record, err := s.lookupURL(ctx, url)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, record.ObjectKey); err != nil {
		return storageError("delete file", err)
	}
	if err := s.files.Delete(ctx, record.ID); err != nil {
		return storageError("forget file", err)
	}

	s.logger.Info().Str("key", record.ObjectKey).Str("kind", record.Kind).Msg("file purged")
	return nil
}

func (s *fileDeposit) lookupURL(ctx context.Context, url string) (models.StoredFile, error) {
	if strings.TrimSpace(url) == "" {
		return models.StoredFile{}, ErrFileNotFound
	}
	record, err := s.files.GetByURL(ctx, url)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StoredFile{}, ErrFileNotFound
		}
		return models.StoredFile{}, storageError("lookup file", err)
	}
	return record, nil
}

func (s *fileDeposit) scan(payload []byte, family string) error {
	if family != "application/zip" {
		return nil
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

// purgeQuietly removes an orphaned file after a failed write. The caller's context may
// already be cancelled, so the purge runs detached from it.
func purgeQuietly(ctx context.Context, deposit FileDeposit, logger zerolog.Logger, url string) {
	if url == "" {
		return
	}
	if err := deposit.Purge(context.WithoutCancel(ctx), url); err != nil {
		logger.Error().Err(err).Str("url", url).Msg("failed to purge orphaned file")
	}
}

func newFileResponse(record models.StoredFile) dto.FileResponse {
	return dto.FileResponse{
		URL:       record.URL,
		ObjectKey: record.ObjectKey,
		FileName:  record.FileName,
		MimeType:  record.MimeType,
		SizeBytes: record.SizeBytes,
		Checksum:  record.Checksum,
	}
}

func sanitizeFileName(name, fallbackExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = fallbackExt
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if strings.HasPrefix(lower, "image/") {
		return "image"
	}
	switch lower {
	case "application/pdf":
		return "application/pdf"
	case "application/zip", "application/x-zip-compressed":
		return "application/zip"
	default:
		return lower
	}
}

func isAllowedType(m string) bool {
	switch m {
	case "image", "application/pdf", "application/zip":
		return true
	default:
		return false
	}
}
