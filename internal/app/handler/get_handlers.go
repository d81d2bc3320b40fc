package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/app/service"
	"github.com/atinyakov/go-qr-expiry/internal/artifact"
	"github.com/atinyakov/go-qr-expiry/internal/models"
)

// GetHandler serves resolution, images, health and the audit listing.
type GetHandler struct {
	service   service.CodeServiceIface
	artifacts service.Artifacts
	logger    *zap.Logger
}

// NewGet creates a GetHandler.
func NewGet(s service.CodeServiceIface, a service.Artifacts, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service:   s,
		artifacts: a,
		logger:    l,
	}
}

// Validate handles GET /validate?doc_id=<id>.
func (h *GetHandler) Validate(res http.ResponseWriter, req *http.Request) {
	id := req.URL.Query().Get("doc_id")

	target, err := h.service.Resolve(req.Context(), id)
	if err != nil {
		writeServiceError(res, h.logger, err)
		return
	}

	http.Redirect(res, req, target, http.StatusFound)
}

// Artifact handles GET /generated_codes/{name}.
func (h *GetHandler) Artifact(res http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")

	img, err := h.artifacts.Get(req.Context(), name)
	if errors.Is(err, artifact.ErrNotFound) {
		http.NotFound(res, req)
		return
	}
	if err != nil {
		h.logger.Error("failed to read artifact", zap.String("name", name), zap.Error(err))
		http.Error(res, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "image/png")
	res.Header().Set("Cache-Control", "public, max-age=86400")
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(img); err != nil {
		h.logger.Debug("failed to write artifact", zap.Error(err))
	}
}

// PingDB reports the record store health.
func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()
	if err := h.service.PingContext(ctx); err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// ActiveCodes lists the records that have not expired yet.
func (h *GetHandler) ActiveCodes(res http.ResponseWriter, req *http.Request) {
	records, err := h.service.Active(req.Context())
	if err != nil {
		writeServiceError(res, h.logger, err)
		return
	}

	codes := make([]models.ActiveCode, 0, len(records))
	for _, r := range records {
		codes = append(codes, models.ActiveCode{
			ID:        r.ID,
			Target:    r.Target,
			ExpiresAt: r.ExpiresAt,
			CreatedAt: r.CreatedAt,
		})
	}

	writeJSON(res, http.StatusOK, codes)
}
