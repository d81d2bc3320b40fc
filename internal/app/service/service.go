// Package service implements issuance and resolution of expiring codes.
// Both halves read time from one clock.Clock, so expirations are parsed
// and compared in the same canonical zone.
package service

import (
	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
)

// CodeService joins an Issuer and a Resolver over one store and clock.
type CodeService struct {
	*Issuer
	*Resolver
}

// NewCodeService builds both halves from shared dependencies.
func NewCodeService(store Store, c clock.Clock, enc Encoder, arts Artifacts, cfg IssuerConfig, logger *zap.Logger) *CodeService {
	issuer := NewIssuer(store, c, enc, arts, cfg, logger)
	return &CodeService{
		Issuer:   issuer,
		Resolver: NewResolver(store, c, issuer.cfg.StoreTimeout, logger),
	}
}
