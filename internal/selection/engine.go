package selection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
)

// Publisher receives selection activity for the tenant-facing live feed.
// Publishing is strictly best-effort: a down feed never fails the
// client's operation.
type Publisher interface {
	PublishActivity(ctx context.Context, tenantID, galleryID uuid.UUID, event Event)
}

// Event is one selection activity record.
type Event struct {
	Kind           string    `json:"kind"` // item_added | item_removed | submitted
	GalleryID      uuid.UUID `json:"gallery_id"`
	ClientUsername string    `json:"client_username"`
	PhotoID        uuid.UUID `json:"photo_id,omitempty"`
	ItemCount      int       `json:"item_count"`
}

// Engine implements the proof-selection workflow for one
// (tenant, gallery, client) at a time: a DRAFT selection accumulates
// photo choices until the client submits, and SUBMITTED is terminal.
// The tenant comes from the ambient scope via the stores; the engine
// itself never sees a tenant id except to tag activity events.
type Engine struct {
	galleries  repository.Galleries
	photos     repository.Photos
	selections repository.Selections
	publisher  Publisher
	logger     *zap.Logger
}

func NewEngine(
	galleries repository.Galleries,
	photos repository.Photos,
	selections repository.Selections,
	publisher Publisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		galleries:  galleries,
		photos:     photos,
		selections: selections,
		publisher:  publisher,
		logger:     logger,
	}
}

// loadGallery is the validation every operation shares: the gallery must
// exist for the scoped tenant and must be PRIVATE. Proof selections make
// no sense against public galleries.
func (e *Engine) loadGallery(ctx context.Context, galleryID uuid.UUID) (*models.Gallery, error) {
	g, err := e.galleries.GetByID(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.ErrGalleryNotFound
	}
	if g.AccessMode != models.AccessPrivate {
		return nil, apperr.ErrGalleryNotPrivate
	}
	return g, nil
}

// CreateOrGetDraft returns the client's draft, creating it on first
// touch. An already-submitted selection is a hard error — there is
// nothing left to draft.
func (e *Engine) CreateOrGetDraft(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error) {
	if _, err := e.loadGallery(ctx, galleryID); err != nil {
		return nil, err
	}

	sel, err := e.selections.CreateOrGetDraft(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, fmt.Errorf("create or get draft: %w", err)
	}
	if sel.Status == models.SelectionSubmitted {
		return nil, apperr.ErrSelectionSubmitted
	}
	return sel, nil
}

// AddItem puts a photo into the draft. Adding a photo that is already
// selected is a no-op returning the unchanged selection.
func (e *Engine) AddItem(ctx context.Context, galleryID uuid.UUID, clientUsername string, photoID uuid.UUID) (*models.ProofSelection, error) {
	if _, err := e.loadGallery(ctx, galleryID); err != nil {
		return nil, err
	}

	photo, err := e.photos.GetInGallery(ctx, galleryID, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, apperr.ErrPhotoNotFound
	}

	sel, err := e.CreateOrGetDraft(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}

	if err := e.selections.AddItem(ctx, sel.ID, photoID); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	sel, err = e.selections.GetWithItems(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, apperr.ErrSelectionNotFound
	}
	e.publish(ctx, sel, Event{
		Kind:           "item_added",
		GalleryID:      galleryID,
		ClientUsername: clientUsername,
		PhotoID:        photoID,
		ItemCount:      len(sel.Items),
	})
	return sel, nil
}

// RemoveItem takes a photo out of the draft. Removing a photo that was
// never selected is a no-op returning the unchanged selection.
func (e *Engine) RemoveItem(ctx context.Context, galleryID uuid.UUID, clientUsername string, photoID uuid.UUID) (*models.ProofSelection, error) {
	if _, err := e.loadGallery(ctx, galleryID); err != nil {
		return nil, err
	}

	photo, err := e.photos.GetInGallery(ctx, galleryID, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, apperr.ErrPhotoNotFound
	}

	sel, err := e.CreateOrGetDraft(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}

	if err := e.selections.RemoveItem(ctx, sel.ID, photoID); err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}

	sel, err = e.selections.GetWithItems(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, apperr.ErrSelectionNotFound
	}
	e.publish(ctx, sel, Event{
		Kind:           "item_removed",
		GalleryID:      galleryID,
		ClientUsername: clientUsername,
		PhotoID:        photoID,
		ItemCount:      len(sel.Items),
	})
	return sel, nil
}

// Submit is the one-way transition to SUBMITTED.
//
// The limit check is strictly greater-than: a selection holding exactly
// MaxSelections items is permitted. The flip itself is optimistic — the
// store only updates a row still in DRAFT, so a concurrent submit that
// got there first surfaces as SelectionNotFound, never as a double
// submit.
func (e *Engine) Submit(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error) {
	gallery, err := e.loadGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}

	sel, err := e.selections.GetWithItems(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, apperr.ErrSelectionNotFound
	}
	if sel.Status == models.SelectionSubmitted {
		return nil, apperr.ErrSelectionSubmitted
	}
	if gallery.MaxSelections != nil && len(sel.Items) > int(*gallery.MaxSelections) {
		return nil, apperr.ErrMaxSelectionsExceeded
	}

	ok, err := e.selections.Submit(ctx, sel.ID)
	if err != nil {
		return nil, fmt.Errorf("submit selection: %w", err)
	}
	if !ok {
		return nil, apperr.ErrSelectionNotFound
	}

	sel, err = e.selections.GetWithItems(ctx, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, apperr.ErrSelectionNotFound
	}
	e.publish(ctx, sel, Event{
		Kind:           "submitted",
		GalleryID:      galleryID,
		ClientUsername: clientUsername,
		ItemCount:      len(sel.Items),
	})
	return sel, nil
}

// GetWithItems is the read-only lookup. A missing selection is nil, not
// an error — callers create lazily on demand. Gallery validation still
// applies and still fails hard.
func (e *Engine) GetWithItems(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error) {
	if _, err := e.loadGallery(ctx, galleryID); err != nil {
		return nil, err
	}
	return e.selections.GetWithItems(ctx, galleryID, clientUsername)
}

func (e *Engine) publish(ctx context.Context, sel *models.ProofSelection, event Event) {
	if e.publisher == nil || sel == nil {
		return
	}
	e.publisher.PublishActivity(ctx, sel.TenantID, sel.GalleryID, event)
}
