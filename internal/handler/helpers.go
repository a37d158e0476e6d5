package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

const (
	msgInvalidBody  = "Corpo da requisição inválido."
	maxRequestBytes = 1 << 20
)

var providerNames = map[string]string{
	"vizzion": "Vizzion",
	"kiwify":  "Kiwify",
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Debug   any    `json:"debug,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeInput fills dst from a JSON or form-encoded body. An empty body
// leaves dst untouched so that validation reports the missing fields.
func decodeInput(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return err
		}
		fields := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleServiceError maps domain errors to HTTP responses. failureMsg is the
// operation specific message shown when a provider call fails.
func handleServiceError(w http.ResponseWriter, err error, failureMsg string, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var configuration *domain.ErrConfiguration
	var authentication *domain.ErrAuthentication
	var circuitOpen *domain.ErrCircuitOpen
	var provider *domain.ErrProvider

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   validation.Message,
			Details: validation.Field,
		})
	case errors.As(err, &configuration):
		logger.Error("provider not configured",
			zap.String("provider", configuration.Provider),
			zap.Any("configured", configuration.Configured),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Credenciais " + providerNames[configuration.Provider] + " não configuradas no servidor.",
			Debug: configuration.Configured,
		})
	case errors.As(err, &authentication):
		logger.Error("provider authentication failed", zap.Error(err))
		resp := errorResponse{Error: "Falha na autenticação com " + providerNames[authentication.Provider] + "."}
		if len(authentication.Details) > 0 {
			resp.Details = authentication.Details
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	case errors.As(err, &provider):
		logger.Error("provider error", zap.Error(err))
		resp := errorResponse{Error: failureMsg, Details: provider.DetailValue()}
		if provider.Configured != nil {
			resp.Debug = provider.Configured
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   failureMsg,
			Details: err.Error(),
		})
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, failureMsg)
	}
}
