package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/app/service"
	"github.com/atinyakov/go-qr-expiry/internal/models"
)

// PostHandler issues new codes.
type PostHandler struct {
	service service.CodeServiceIface
	logger  *zap.Logger
}

// NewPost creates a PostHandler.
func NewPost(s service.CodeServiceIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		service: s,
		logger:  l,
	}
}

// Generate handles POST /generate with a JSON body {url, expires}.
func (h *PostHandler) Generate(res http.ResponseWriter, req *http.Request) {
	var request models.GenerateRequest

	if err := decodeJSONBody(res, req, &request); err != nil {
		var mr *malformedRequest
		if errors.As(err, &mr) {
			writeError(res, mr.status, mr.msg)
			return
		}
		h.logger.Error("failed to decode request", zap.Error(err))
		writeError(res, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	issued, err := h.service.Issue(req.Context(), request.URL, request.Expires)
	if err != nil {
		h.logger.Info("issue rejected", zap.String("url", request.URL), zap.Error(err))
		writeServiceError(res, h.logger, err)
		return
	}

	writeJSON(res, http.StatusOK, models.GenerateResponse{QRCodeURL: issued.ArtifactPath})
}
