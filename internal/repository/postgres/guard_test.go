package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/repository/postgres"
)

// Every scoped store must fail with ErrTenantScopeMissing before any
// I/O when no scope is open. The stores here are built with a nil pool:
// if any method touched the pool before the guard, it would panic
// instead of returning the error.
func TestScopedStores_RefuseWithoutScope(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tenants := postgres.NewTenantStore(nil)
	galleries := postgres.NewGalleryStore(nil)
	photos := postgres.NewPhotoStore(nil)
	selections := postgres.NewSelectionStore(nil)
	domains := postgres.NewTenantDomainStore(nil)

	calls := map[string]func() error{
		"tenants.Get": func() error {
			_, err := tenants.Get(ctx)
			return err
		},
		"galleries.Create": func() error {
			_, err := galleries.Create(ctx, repository.CreateGalleryParams{Title: "t"})
			return err
		},
		"galleries.GetByID": func() error {
			_, err := galleries.GetByID(ctx, id)
			return err
		},
		"galleries.List": func() error {
			_, err := galleries.List(ctx)
			return err
		},
		"galleries.Update": func() error {
			_, err := galleries.Update(ctx, id, repository.UpdateGalleryParams{})
			return err
		},
		"galleries.Delete": func() error {
			return galleries.Delete(ctx, id)
		},
		"photos.Create": func() error {
			_, err := photos.Create(ctx, repository.CreatePhotoParams{GalleryID: id})
			return err
		},
		"photos.GetByID": func() error {
			_, err := photos.GetByID(ctx, id)
			return err
		},
		"photos.GetInGallery": func() error {
			_, err := photos.GetInGallery(ctx, id, id)
			return err
		},
		"photos.List": func() error {
			_, err := photos.List(ctx, id)
			return err
		},
		"photos.Finalize": func() error {
			_, err := photos.Finalize(ctx, id, 1, 1, 1)
			return err
		},
		"photos.Delete": func() error {
			return photos.Delete(ctx, id)
		},
		"selections.GetWithItems": func() error {
			_, err := selections.GetWithItems(ctx, id, "client")
			return err
		},
		"selections.CreateOrGetDraft": func() error {
			_, err := selections.CreateOrGetDraft(ctx, id, "client")
			return err
		},
		"selections.AddItem": func() error {
			return selections.AddItem(ctx, id, id)
		},
		"selections.RemoveItem": func() error {
			return selections.RemoveItem(ctx, id, id)
		},
		"selections.Submit": func() error {
			_, err := selections.Submit(ctx, id)
			return err
		},
		"domains.Get": func() error {
			_, err := domains.Get(ctx)
			return err
		},
		"domains.Upsert": func() error {
			_, err := domains.Upsert(ctx, repository.UpsertDomainParams{Hostname: "x.example.com"})
			return err
		},
		"domains.MarkVerified": func() error {
			_, err := domains.MarkVerified(ctx, "x.example.com")
			return err
		},
		"domains.SetActive": func() error {
			_, err := domains.SetActive(ctx)
			return err
		},
		"domains.Disable": func() error {
			_, err := domains.Disable(ctx)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.ErrorIs(t, call(), apperr.ErrTenantScopeMissing)
			})
		})
	}
}
