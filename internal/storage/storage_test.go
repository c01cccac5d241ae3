package storage_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
	"github.com/calebds/proofstream/internal/storage"
)

type fakeTenants struct {
	tenant *models.Tenant
}

func (s *fakeTenants) Get(ctx context.Context) (*models.Tenant, error) {
	if _, err := scope.RequireTenantID(ctx); err != nil {
		return nil, err
	}
	return s.tenant, nil
}

type fakeGalleries struct {
	gallery *models.Gallery
}

func (s *fakeGalleries) Create(ctx context.Context, params repository.CreateGalleryParams) (*models.Gallery, error) {
	panic("not used")
}

func (s *fakeGalleries) GetByID(ctx context.Context, id uuid.UUID) (*models.Gallery, error) {
	if _, err := scope.RequireTenantID(ctx); err != nil {
		return nil, err
	}
	if s.gallery == nil || s.gallery.ID != id {
		return nil, nil
	}
	return s.gallery, nil
}

func (s *fakeGalleries) List(ctx context.Context) ([]models.Gallery, error) { panic("not used") }
func (s *fakeGalleries) Update(ctx context.Context, id uuid.UUID, params repository.UpdateGalleryParams) (*models.Gallery, error) {
	panic("not used")
}
func (s *fakeGalleries) Delete(ctx context.Context, id uuid.UUID) error { panic("not used") }

type fakePhotos struct {
	created *repository.CreatePhotoParams
	deleted []uuid.UUID
}

func (s *fakePhotos) Create(ctx context.Context, params repository.CreatePhotoParams) (*models.Photo, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	s.created = &params
	return &models.Photo{
		ID:               uuid.New(),
		TenantID:         tenantID,
		GalleryID:        params.GalleryID,
		StorageKey:       params.StorageKey,
		OriginalFilename: params.OriginalFilename,
		MimeType:         params.MimeType,
	}, nil
}

func (s *fakePhotos) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	panic("not used")
}
func (s *fakePhotos) GetInGallery(ctx context.Context, galleryID, photoID uuid.UUID) (*models.Photo, error) {
	panic("not used")
}
func (s *fakePhotos) List(ctx context.Context, galleryID uuid.UUID) ([]models.Photo, error) {
	panic("not used")
}

func (s *fakePhotos) Finalize(ctx context.Context, id uuid.UUID, bytes int64, width, height int32) (*models.Photo, error) {
	if _, err := scope.RequireTenantID(ctx); err != nil {
		return nil, err
	}
	return &models.Photo{ID: id, Bytes: bytes, Width: width, Height: height}, nil
}

func (s *fakePhotos) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := scope.RequireTenantID(ctx); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func setup(t *testing.T, tenant *models.Tenant) (*storage.Service, *fakePhotos, *models.Gallery, context.Context) {
	t.Helper()
	gallery := &models.Gallery{ID: uuid.New(), TenantID: tenant.ID, Title: "wedding", AccessMode: models.AccessPublic}
	photos := &fakePhotos{}
	svc := storage.NewService(
		&fakeTenants{tenant: tenant},
		&fakeGalleries{gallery: gallery},
		photos,
		"https://dev-storage.proofstream.local/upload/",
		zap.NewNop(),
	)
	return svc, photos, gallery, scope.WithTenant(context.Background(), tenant.ID)
}

func enforcedTenant(used, limit int64) *models.Tenant {
	return &models.Tenant{
		ID:           uuid.New(),
		Status:       models.TenantActive,
		StorageUsed:  used,
		StorageLimit: limit,
		EnforceQuota: true,
	}
}

func TestPrepareUpload_RejectsNonPositiveBytes(t *testing.T) {
	svc, _, gallery, ctx := setup(t, enforcedTenant(0, 1000))

	for _, bytes := range []int64{0, -1} {
		_, err := svc.PrepareUpload(ctx, storage.PrepareUploadParams{
			GalleryID:     gallery.ID,
			DeclaredBytes: bytes,
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidBytes)
	}
}

func TestPrepareUpload_UnknownGallery(t *testing.T) {
	svc, _, _, ctx := setup(t, enforcedTenant(0, 1000))

	_, err := svc.PrepareUpload(ctx, storage.PrepareUploadParams{
		GalleryID:     uuid.New(),
		DeclaredBytes: 100,
	})
	assert.ErrorIs(t, err, apperr.ErrGalleryNotFound)
}

func TestPrepareUpload_QuotaPreCheck(t *testing.T) {
	// 900 of 1000 bytes used: 100 more fits exactly, 101 does not.
	svc, _, gallery, ctx := setup(t, enforcedTenant(900, 1000))

	_, err := svc.PrepareUpload(ctx, storage.PrepareUploadParams{
		GalleryID:     gallery.ID,
		DeclaredBytes: 101,
	})
	assert.ErrorIs(t, err, apperr.ErrStorageQuotaExceeded)

	up, err := svc.PrepareUpload(ctx, storage.PrepareUploadParams{
		GalleryID:     gallery.ID,
		DeclaredBytes: 100,
	})
	require.NoError(t, err)
	assert.NotNil(t, up.Photo)
}

func TestPrepareUpload_QuotaIgnoredWhenNotEnforced(t *testing.T) {
	over := enforcedTenant(5000, 1000)
	over.EnforceQuota = false
	svc, _, gallery, ctx := setup(t, over)

	_, err := svc.PrepareUpload(ctx, storage.PrepareUploadParams{
		GalleryID:     gallery.ID,
		DeclaredBytes: 100,
	})
	require.NoError(t, err)
}

func TestPrepareUpload_KeyAndURL(t *testing.T) {
	tenant := enforcedTenant(0, 1_000_000)
	svc, photos, gallery, ctx := setup(t, tenant)

	up, err := svc.PrepareUpload(ctx, storage.PrepareUploadParams{
		GalleryID:        gallery.ID,
		OriginalFilename: "dsc_0042.jpg",
		MimeType:         "image/jpeg",
		DeclaredBytes:    1234,
	})
	require.NoError(t, err)

	prefix := tenant.ID.String() + "/" + gallery.ID.String() + "/"
	assert.True(t, strings.HasPrefix(up.Photo.StorageKey, prefix), "key %q", up.Photo.StorageKey)
	assert.Equal(t, "https://dev-storage.proofstream.local/upload/"+up.Photo.StorageKey, up.UploadURL)

	require.NotNil(t, photos.created)
	assert.Equal(t, "dsc_0042.jpg", photos.created.OriginalFilename)
	assert.Equal(t, "image/jpeg", photos.created.MimeType)

	// The pending row carries no bytes until finalize.
	assert.Zero(t, up.Photo.Bytes)
}

func TestFinalizeUpload_RejectsNonPositiveBytes(t *testing.T) {
	svc, _, _, ctx := setup(t, enforcedTenant(0, 1000))

	_, err := svc.FinalizeUpload(ctx, uuid.New(), 0, 800, 600)
	assert.ErrorIs(t, err, apperr.ErrInvalidBytes)
}

func TestFinalizeUpload_RecordsDimensions(t *testing.T) {
	svc, _, _, ctx := setup(t, enforcedTenant(0, 1000))

	photo, err := svc.FinalizeUpload(ctx, uuid.New(), 555, 800, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(555), photo.Bytes)
	assert.Equal(t, int32(800), photo.Width)
	assert.Equal(t, int32(600), photo.Height)
}

func TestService_RequiresScope(t *testing.T) {
	svc, _, gallery, _ := setup(t, enforcedTenant(0, 1000))

	_, err := svc.PrepareUpload(context.Background(), storage.PrepareUploadParams{
		GalleryID:     gallery.ID,
		DeclaredBytes: 100,
	})
	assert.ErrorIs(t, err, apperr.ErrTenantScopeMissing)

	err = svc.DeletePhoto(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrTenantScopeMissing)
}
