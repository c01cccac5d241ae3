package domainconn_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/domainconn"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
)

// fakeDomains keeps one domain row per tenant, scoped exactly like the
// postgres store.
type fakeDomains struct {
	byTenant map[uuid.UUID]*models.TenantDomain
	byHost   map[string]uuid.UUID
}

func newFakeDomains() *fakeDomains {
	return &fakeDomains{
		byTenant: map[uuid.UUID]*models.TenantDomain{},
		byHost:   map[string]uuid.UUID{},
	}
}

func (s *fakeDomains) Get(ctx context.Context) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := s.byTenant[tenantID]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

func (s *fakeDomains) Upsert(ctx context.Context, params repository.UpsertDomainParams) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if owner, taken := s.byHost[params.Hostname]; taken && owner != tenantID {
		return nil, apperr.ErrDomainTaken
	}
	if prev, ok := s.byTenant[tenantID]; ok {
		delete(s.byHost, prev.Hostname)
	}
	d := &models.TenantDomain{
		ID:                uuid.New(),
		TenantID:          tenantID,
		Hostname:          params.Hostname,
		Status:            models.DomainPendingVerification,
		VerificationToken: params.VerificationToken,
		TxtRecordName:     params.TxtRecordName,
		TxtRecordValue:    params.TxtRecordValue,
		CreatedAt:         time.Now(),
	}
	s.byTenant[tenantID] = d
	s.byHost[params.Hostname] = tenantID
	out := *d
	return &out, nil
}

func (s *fakeDomains) update(ctx context.Context, status string) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := s.byTenant[tenantID]
	if !ok {
		return nil, apperr.ErrDomainNotFound
	}
	now := time.Now()
	d.Status = status
	switch status {
	case models.DomainVerified:
		d.VerifiedAt = &now
	case models.DomainActive:
		d.ActivatedAt = &now
	case models.DomainDisabled:
		d.DisabledAt = &now
	}
	out := *d
	return &out, nil
}

func (s *fakeDomains) MarkVerified(ctx context.Context, hostname string) (*models.TenantDomain, error) {
	return s.update(ctx, models.DomainVerified)
}

func (s *fakeDomains) SetActive(ctx context.Context) (*models.TenantDomain, error) {
	return s.update(ctx, models.DomainActive)
}

func (s *fakeDomains) Disable(ctx context.Context) (*models.TenantDomain, error) {
	return s.update(ctx, models.DomainDisabled)
}

type recordingInvalidator struct {
	hosts []string
}

func (r *recordingInvalidator) InvalidateHost(_ context.Context, host string) {
	r.hosts = append(r.hosts, host)
}

func setup() (*domainconn.Lifecycle, *fakeDomains, *recordingInvalidator, context.Context) {
	store := newFakeDomains()
	inv := &recordingInvalidator{}
	lc := domainconn.NewLifecycle(store, inv, "proofstream.local", zap.NewNop())
	return lc, store, inv, scope.WithTenant(context.Background(), uuid.New())
}

func TestStartConnection_RejectsBadHostnames(t *testing.T) {
	lc, _, _, ctx := setup()

	for _, host := range []string{
		"",
		"nodots",
		"192.168.1.10",
		"proofstream.local",
		"alice.proofstream.local",
		"-bad.example.com",
		"bad-.example.com",
		"under_score.example.com",
	} {
		_, err := lc.StartConnection(ctx, host)
		assert.ErrorIs(t, err, apperr.ErrInvalidHostname, "host %q", host)
	}
}

func TestStartConnection_IssuesChallenge(t *testing.T) {
	lc, _, inv, ctx := setup()

	d, err := lc.StartConnection(ctx, "Photos.Example.COM:443")
	require.NoError(t, err)

	assert.Equal(t, "photos.example.com", d.Hostname)
	assert.Equal(t, models.DomainPendingVerification, d.Status)
	assert.NotEmpty(t, d.VerificationToken)
	assert.Equal(t, "_proofstream-challenge.photos.example.com", d.TxtRecordName)
	assert.Equal(t, d.VerificationToken, d.TxtRecordValue)
	assert.Contains(t, inv.hosts, "photos.example.com")
}

func TestStartConnection_ReplacementResetsAndInvalidatesOldHost(t *testing.T) {
	lc, _, inv, ctx := setup()

	first, err := lc.StartConnection(ctx, "old.example.com")
	require.NoError(t, err)
	_, err = lc.MarkVerified(ctx)
	require.NoError(t, err)

	second, err := lc.StartConnection(ctx, "new.example.com")
	require.NoError(t, err)

	assert.Equal(t, models.DomainPendingVerification, second.Status)
	assert.NotEqual(t, first.VerificationToken, second.VerificationToken)
	assert.Contains(t, inv.hosts, "old.example.com")
	assert.Contains(t, inv.hosts, "new.example.com")
}

// A replacement attempt that fails (hostname owned by another tenant)
// must leave the current hostname's cached routing alone.
func TestStartConnection_FailedReplacementKeepsOldHostCached(t *testing.T) {
	store := newFakeDomains()
	inv := &recordingInvalidator{}
	lc := domainconn.NewLifecycle(store, inv, "proofstream.local", zap.NewNop())

	ctxA := scope.WithTenant(context.Background(), uuid.New())
	ctxB := scope.WithTenant(context.Background(), uuid.New())

	_, err := lc.StartConnection(ctxA, "old.example.com")
	require.NoError(t, err)
	_, err = lc.StartConnection(ctxB, "taken.example.com")
	require.NoError(t, err)
	invalidations := len(inv.hosts)

	_, err = lc.StartConnection(ctxA, "taken.example.com")
	require.ErrorIs(t, err, apperr.ErrDomainTaken)

	// No cache entry was touched by the failed attempt.
	assert.Len(t, inv.hosts, invalidations)

	d, err := lc.Status(ctxA)
	require.NoError(t, err)
	assert.Equal(t, "old.example.com", d.Hostname)
}

func TestTransitions_HappyPath(t *testing.T) {
	lc, _, inv, ctx := setup()

	_, err := lc.StartConnection(ctx, "photos.example.com")
	require.NoError(t, err)

	d, err := lc.MarkVerified(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DomainVerified, d.Status)
	assert.NotNil(t, d.VerifiedAt)

	d, err = lc.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DomainActive, d.Status)
	assert.NotNil(t, d.ActivatedAt)

	d, err = lc.Disable(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DomainDisabled, d.Status)
	assert.NotNil(t, d.DisabledAt)

	// Each transition refreshed routing for the hostname.
	count := 0
	for _, h := range inv.hosts {
		if h == "photos.example.com" {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, 4)
}

func TestTransitions_IllegalOnesRejected(t *testing.T) {
	lc, _, _, ctx := setup()

	_, err := lc.StartConnection(ctx, "photos.example.com")
	require.NoError(t, err)

	// PENDING_VERIFICATION cannot activate.
	_, err = lc.Activate(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = lc.MarkVerified(ctx)
	require.NoError(t, err)
	_, err = lc.Activate(ctx)
	require.NoError(t, err)

	// ACTIVE cannot verify or activate again.
	_, err = lc.MarkVerified(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = lc.Activate(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// DISABLED is terminal for this attempt.
	_, err = lc.Disable(ctx)
	require.NoError(t, err)
	_, err = lc.MarkVerified(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = lc.Disable(ctx)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestTransitions_NoRecord(t *testing.T) {
	lc, _, _, ctx := setup()

	_, err := lc.MarkVerified(ctx)
	assert.ErrorIs(t, err, apperr.ErrDomainNotFound)
	_, err = lc.Disable(ctx)
	assert.ErrorIs(t, err, apperr.ErrDomainNotFound)

	d, err := lc.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLifecycle_RequiresScope(t *testing.T) {
	lc, _, _, _ := setup()

	_, err := lc.StartConnection(context.Background(), "photos.example.com")
	assert.ErrorIs(t, err, apperr.ErrTenantScopeMissing)
}
