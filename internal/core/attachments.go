package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"expansioncore/internal/blob"
	"expansioncore/pkg/domain"
)

// entityAttachment labels attachment lookups in not-found errors.
const entityAttachment domain.EntityType = "attachment"

// ErrAttachmentsDisabled is returned when the service has no blob store.
var ErrAttachmentsDisabled = fmt.Errorf("attachments are not configured: %w", blob.ErrUnsupported)

// AttachmentUpload is a document to attach to a store file.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func attachmentKey(fileID, attachmentID, name string) string {
	return path.Join("store-files", fileID, attachmentID+"-"+name)
}

func attachmentName(name string) (string, error) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", domain.NewBadRequestError("attachment name is required")
	}
	return name, nil
}

// AttachStoreFileDocument stores the upload in the blob store and appends its
// reference to the store file. The blob is removed again when the reference
// cannot be written.
func (s *Service) AttachStoreFileDocument(ctx context.Context, id string, upload AttachmentUpload, operatorID string) (file domain.StoreFile, attachment domain.Attachment, err error) {
	ctx, finish := s.begin(ctx, opAttachDocument, operatorID)
	defer func() { finish(id, err) }()

	if s.blobs == nil {
		return domain.StoreFile{}, domain.Attachment{}, ErrAttachmentsDisabled
	}
	name, err := attachmentName(upload.Name)
	if err != nil {
		return domain.StoreFile{}, domain.Attachment{}, err
	}
	if upload.Body == nil {
		return domain.StoreFile{}, domain.Attachment{}, domain.NewBadRequestError("attachment %s has no content", name)
	}
	current, err := s.store.GetStoreFile(ctx, id)
	if err != nil {
		return domain.StoreFile{}, domain.Attachment{}, err
	}
	if domain.IsTerminal(domain.EntityStoreFile, string(current.Status)) {
		return domain.StoreFile{}, domain.Attachment{}, domain.NewForbiddenError(domain.EntityStoreFile, id, "documents cannot be attached in status "+string(current.Status))
	}

	attachmentID := uuid.NewString()
	key := attachmentKey(id, attachmentID, name)
	info, err := s.blobs.Put(ctx, key, upload.Body, blob.PutOptions{
		ContentType: upload.ContentType,
		Metadata:    map[string]string{"store-file": id, "uploaded-by": operatorID},
	})
	if err != nil {
		return domain.StoreFile{}, domain.Attachment{}, fmt.Errorf("store attachment %s: %w", key, err)
	}
	attachment = domain.Attachment{
		ID:          attachmentID,
		Name:        name,
		Key:         key,
		ContentType: info.ContentType,
		Size:        info.Size,
		UploadedBy:  operatorID,
		UploadedAt:  s.now(),
	}
	file, err = s.store.UpdateStoreFile(ctx, id, current.UpdatedAt, func(f *domain.StoreFile) error {
		f.Attachments = append(f.Attachments, attachment)
		return nil
	})
	if err != nil {
		if _, delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error("orphaned attachment blob", "key", key, "error", delErr)
		}
		return domain.StoreFile{}, domain.Attachment{}, err
	}
	return file, attachment, nil
}

// AttachmentURL returns a time-limited download URL for an attachment.
func (s *Service) AttachmentURL(ctx context.Context, fileID, attachmentID string, expiry time.Duration) (string, error) {
	if s.blobs == nil {
		return "", ErrAttachmentsDisabled
	}
	file, err := s.store.GetStoreFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	for _, a := range file.Attachments {
		if a.ID != attachmentID {
			continue
		}
		url, err := s.blobs.PresignURL(ctx, a.Key, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
		if errors.Is(err, blob.ErrNotFound) {
			return "", domain.NewNotFoundError(entityAttachment, attachmentID)
		}
		return url, err
	}
	return "", domain.NewNotFoundError(entityAttachment, attachmentID)
}
