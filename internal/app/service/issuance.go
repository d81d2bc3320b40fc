package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/encoder"
)

// ArtifactRoute is the URL prefix artifacts are served under.
const ArtifactRoute = "/generated_codes/"

// DefaultStoreTimeout bounds a single store round trip.
const DefaultStoreTimeout = 3 * time.Second

// IssuerConfig holds the issuance settings.
type IssuerConfig struct {
	// BaseURL is the public address of the resolver, e.g. http://localhost:8080.
	BaseURL string
	// InputZone is the zone zone-less expirations are written in.
	// Nil means the canonical zone.
	InputZone    *time.Location
	StoreTimeout time.Duration
}

// Issued describes a newly created code.
type Issued struct {
	ID           string
	ArtifactPath string
	ExpiresAt    time.Time
}

// Issuer creates records and their images.
type Issuer struct {
	store     Store
	clock     clock.Clock
	encoder   Encoder
	artifacts Artifacts
	cfg       IssuerConfig
	logger    *zap.Logger
}

// NewIssuer wires an Issuer.
func NewIssuer(store Store, c clock.Clock, enc Encoder, arts Artifacts, cfg IssuerConfig, logger *zap.Logger) *Issuer {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &Issuer{
		store:     store,
		clock:     c,
		encoder:   enc,
		artifacts: arts,
		cfg:       cfg,
		logger:    logger,
	}
}

// ResolverURL is the payload encoded into every image.
func ResolverURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/validate?doc_id=" + url.QueryEscape(id)
}

// ArtifactPath is the logical path an artifact is served from.
func ArtifactPath(name string) string {
	return ArtifactRoute + name
}

// Issue validates the request, stores the record and writes its image.
func (s *Issuer) Issue(ctx context.Context, target, expiresRaw string) (Issued, error) {
	target = strings.TrimSpace(target)
	expiresRaw = strings.TrimSpace(expiresRaw)
	if target == "" || expiresRaw == "" {
		return Issued{}, newError(ErrInvalidRequest, MsgMissingInput, nil)
	}

	expiresAt, err := clock.ParseLocal(s.clock, expiresRaw, s.cfg.InputZone)
	if err != nil {
		return Issued{}, newError(ErrInvalidRequest, MsgInvalidFormat, err)
	}

	if !expiresAt.After(s.clock.Now()) {
		return Issued{}, newError(ErrInvalidRequest, MsgPastExpiration, nil)
	}

	if !validTarget(target) {
		return Issued{}, newError(ErrInvalidRequest, MsgInvalidURL, nil)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	rec, err := s.store.Create(storeCtx, target, expiresAt)
	cancel()
	if err != nil {
		s.logger.Error("failed to create record", zap.Error(err))
		return Issued{}, newError(ErrStoreUnavailable, MsgStoreUnavailable, err)
	}

	name := encoder.FileName(rec.ID, s.encoder.Extension())
	img, err := s.encoder.Encode(ResolverURL(s.cfg.BaseURL, rec.ID))
	if err != nil {
		return Issued{}, fmt.Errorf("encode %s: %w", rec.ID, err)
	}

	if err := s.artifacts.Put(ctx, name, img); err != nil {
		return Issued{}, fmt.Errorf("store artifact %s: %w", name, err)
	}

	s.logger.Info("code issued",
		zap.String("id", rec.ID),
		zap.Time("expires_at", rec.ExpiresAt),
	)

	return Issued{
		ID:           rec.ID,
		ArtifactPath: ArtifactPath(name),
		ExpiresAt:    rec.ExpiresAt,
	}, nil
}

func validTarget(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
