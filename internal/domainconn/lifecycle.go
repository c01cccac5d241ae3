// Package domainconn runs the custom-domain connection lifecycle:
// a tenant points a hostname at the platform, proves ownership through
// a DNS TXT challenge, and the hostname becomes routable. Transition
// legality lives in a small state machine; persistence stays in the
// domain store and routing freshness in the resolver cache.
package domainconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/tenant"
)

const (
	eventVerify   = "verify"
	eventActivate = "activate"
	eventDisable  = "disable"

	txtChallengePrefix = "_proofstream-challenge."
)

// HostInvalidator drops a hostname from the resolution cache. Every
// transition calls it so routing never serves a stale status.
type HostInvalidator interface {
	InvalidateHost(ctx context.Context, host string)
}

type Lifecycle struct {
	domains     repository.Domains
	invalidator HostInvalidator
	mainDomain  string
	logger      *zap.Logger
}

func NewLifecycle(domains repository.Domains, invalidator HostInvalidator, mainDomain string, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		domains:     domains,
		invalidator: invalidator,
		mainDomain:  strings.ToLower(mainDomain),
		logger:      logger,
	}
}

// newMachine builds the transition table seeded at the record's current
// status. DISABLED is reachable from everywhere and is the only exit
// from ACTIVE; there is no way back except starting a new connection.
func newMachine(current string) *fsm.FSM {
	return fsm.NewFSM(
		current,
		fsm.Events{
			{Name: eventVerify, Src: []string{models.DomainPendingVerification}, Dst: models.DomainVerified},
			{Name: eventActivate, Src: []string{models.DomainVerified}, Dst: models.DomainActive},
			{Name: eventDisable, Src: []string{
				models.DomainPendingVerification,
				models.DomainVerified,
				models.DomainActive,
			}, Dst: models.DomainDisabled},
		},
		fsm.Callbacks{},
	)
}

// transition loads the scoped tenant's domain record, checks the event
// against the state machine, and hands the approved write to apply.
func (l *Lifecycle) transition(ctx context.Context, event string, apply func(context.Context, *models.TenantDomain) (*models.TenantDomain, error)) (*models.TenantDomain, error) {
	current, err := l.domains.Get(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.ErrDomainNotFound
	}

	if err := newMachine(current.Status).Event(ctx, event); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("%s from %s: %w", event, current.Status, apperr.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("domain transition %s: %w", event, err)
	}

	updated, err := apply(ctx, current)
	if err != nil {
		return nil, err
	}

	l.invalidate(ctx, current.Hostname)
	l.logger.Info("domain transition",
		zap.String("hostname", updated.Hostname),
		zap.String("event", event),
		zap.String("status", updated.Status))
	return updated, nil
}

// StartConnection begins (or restarts) the tenant's domain attempt.
// Any previous attempt is discarded: the record resets to
// PENDING_VERIFICATION with a fresh TXT challenge. The returned record
// carries everything the tenant needs to publish the DNS record.
func (l *Lifecycle) StartConnection(ctx context.Context, hostname string) (*models.TenantDomain, error) {
	hostname = tenant.NormalizeHost(hostname)
	if err := l.validateHostname(hostname); err != nil {
		return nil, err
	}

	// Capture the hostname being replaced before the upsert overwrites
	// the row. It is only dropped from the cache once the replacement
	// actually lands — a failed upsert (hostname taken) leaves the old
	// routing untouched.
	var replaced string
	if prev, err := l.domains.Get(ctx); err != nil {
		return nil, err
	} else if prev != nil && prev.Hostname != hostname {
		replaced = prev.Hostname
	}

	token := uuid.New().String()
	d, err := l.domains.Upsert(ctx, repository.UpsertDomainParams{
		Hostname:          hostname,
		VerificationToken: token,
		TxtRecordName:     txtChallengePrefix + hostname,
		TxtRecordValue:    token,
	})
	if err != nil {
		return nil, err
	}

	if replaced != "" {
		l.invalidate(ctx, replaced)
	}
	l.invalidate(ctx, hostname)
	l.logger.Info("domain connection started", zap.String("hostname", hostname))
	return d, nil
}

// MarkVerified records a passed TXT challenge:
// PENDING_VERIFICATION -> VERIFIED.
func (l *Lifecycle) MarkVerified(ctx context.Context) (*models.TenantDomain, error) {
	return l.transition(ctx, eventVerify, func(ctx context.Context, current *models.TenantDomain) (*models.TenantDomain, error) {
		return l.domains.MarkVerified(ctx, current.Hostname)
	})
}

// Activate makes a VERIFIED hostname routable: VERIFIED -> ACTIVE.
func (l *Lifecycle) Activate(ctx context.Context) (*models.TenantDomain, error) {
	return l.transition(ctx, eventActivate, func(ctx context.Context, _ *models.TenantDomain) (*models.TenantDomain, error) {
		return l.domains.SetActive(ctx)
	})
}

// Disable takes the hostname out of rotation from any live status.
// Requests to it fall back to subdomain-slug resolution afterwards.
func (l *Lifecycle) Disable(ctx context.Context) (*models.TenantDomain, error) {
	return l.transition(ctx, eventDisable, func(ctx context.Context, _ *models.TenantDomain) (*models.TenantDomain, error) {
		return l.domains.Disable(ctx)
	})
}

// Status returns the scoped tenant's domain record, nil when the tenant
// never started a connection.
func (l *Lifecycle) Status(ctx context.Context) (*models.TenantDomain, error) {
	return l.domains.Get(ctx)
}

func (l *Lifecycle) invalidate(ctx context.Context, hostname string) {
	if l.invalidator == nil {
		return
	}
	l.invalidator.InvalidateHost(ctx, hostname)
}

// validateHostname accepts apex or subdomain hostnames a tenant could
// plausibly own. Hostnames on the platform's own domain are refused —
// those are already served by slug routing.
func (l *Lifecycle) validateHostname(hostname string) error {
	if hostname == "" || len(hostname) > 253 {
		return fmt.Errorf("hostname %q: %w", hostname, apperr.ErrInvalidHostname)
	}
	if net.ParseIP(hostname) != nil || !strings.Contains(hostname, ".") {
		return fmt.Errorf("hostname %q: %w", hostname, apperr.ErrInvalidHostname)
	}
	if hostname == l.mainDomain || strings.HasSuffix(hostname, "."+l.mainDomain) {
		return fmt.Errorf("hostname %q is on the platform domain: %w", hostname, apperr.ErrInvalidHostname)
	}
	for _, label := range strings.Split(hostname, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("hostname %q: %w", hostname, apperr.ErrInvalidHostname)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fmt.Errorf("hostname %q: %w", hostname, apperr.ErrInvalidHostname)
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return fmt.Errorf("hostname %q: %w", hostname, apperr.ErrInvalidHostname)
			}
		}
	}
	return nil
}
