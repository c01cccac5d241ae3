// Package storage handles the photo upload lifecycle: prepare (issue an
// upload target and a pending row), finalize (record real bytes and
// dimensions, charge the quota), and delete (refund the quota). The
// byte counter itself moves inside the photo store's transactions; this
// service owns validation and the pre-flight quota check.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
)

// Upload is what the prepare step hands back: the pending photo row and
// where to put the bytes.
type Upload struct {
	Photo     *models.Photo `json:"photo"`
	UploadURL string        `json:"upload_url"`
}

// PrepareUploadParams is the client's declaration of the upload.
// DeclaredBytes drives the quota pre-check only; the finalize step
// charges what actually landed.
type PrepareUploadParams struct {
	GalleryID        uuid.UUID
	OriginalFilename string
	MimeType         string
	DeclaredBytes    int64
	Caption          string
	SortOrder        int32
}

type Service struct {
	tenants   repository.Tenants
	galleries repository.Galleries
	photos    repository.Photos
	baseURL   string
	logger    *zap.Logger
}

func NewService(tenants repository.Tenants, galleries repository.Galleries, photos repository.Photos, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		tenants:   tenants,
		galleries: galleries,
		photos:    photos,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// PrepareUpload validates the declaration, runs the quota pre-check,
// and creates the pending photo row with a fresh storage key. The row
// has zero bytes until FinalizeUpload; an abandoned upload never
// touches the quota.
func (s *Service) PrepareUpload(ctx context.Context, params PrepareUploadParams) (*Upload, error) {
	if params.DeclaredBytes <= 0 {
		return nil, fmt.Errorf("declared %d bytes: %w", params.DeclaredBytes, apperr.ErrInvalidBytes)
	}

	gallery, err := s.galleries.GetByID(ctx, params.GalleryID)
	if err != nil {
		return nil, err
	}
	if gallery == nil {
		return nil, apperr.ErrGalleryNotFound
	}

	tenant, err := s.tenants.Get(ctx)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperr.ErrTenantNotFound
	}
	if tenant.EnforceQuota && tenant.StorageUsed+params.DeclaredBytes > tenant.StorageLimit {
		return nil, fmt.Errorf("used %d of %d bytes: %w",
			tenant.StorageUsed, tenant.StorageLimit, apperr.ErrStorageQuotaExceeded)
	}

	// Tenant and gallery prefixes keep one tenant's objects physically
	// grouped; the uuid keeps keys unguessable.
	key := fmt.Sprintf("%s/%s/%s", tenant.ID, gallery.ID, uuid.New())

	photo, err := s.photos.Create(ctx, repository.CreatePhotoParams{
		GalleryID:        gallery.ID,
		StorageKey:       key,
		OriginalFilename: params.OriginalFilename,
		MimeType:         params.MimeType,
		Caption:          params.Caption,
		SortOrder:        params.SortOrder,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("upload prepared",
		zap.String("photo_id", photo.ID.String()),
		zap.Int64("declared_bytes", params.DeclaredBytes))

	return &Upload{
		Photo:     photo,
		UploadURL: s.baseURL + "/" + key,
	}, nil
}

// FinalizeUpload records the landed object's real size and dimensions
// and charges the tenant's byte counter, all in the store's single
// transaction.
func (s *Service) FinalizeUpload(ctx context.Context, photoID uuid.UUID, bytes int64, width, height int32) (*models.Photo, error) {
	if bytes <= 0 {
		return nil, fmt.Errorf("finalized %d bytes: %w", bytes, apperr.ErrInvalidBytes)
	}

	photo, err := s.photos.Finalize(ctx, photoID, bytes, width, height)
	if err != nil {
		return nil, err
	}

	s.logger.Info("upload finalized",
		zap.String("photo_id", photo.ID.String()),
		zap.Int64("bytes", bytes))
	return photo, nil
}

// DeletePhoto removes the row and refunds its bytes. Deleting an absent
// photo is success, matching the store's best-effort delete.
func (s *Service) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	return s.photos.Delete(ctx, photoID)
}
