package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Payment Handlers
// ============================================================

const (
	msgPixFailed    = "Erro ao gerar o PIX após tentar múltiplos formatos."
	msgStatusFailed = "Erro ao verificar status do pagamento."
	msgCardFailed   = "Erro ao processar pagamento com cartão."
)

type pixDebug struct {
	Format       string          `json:"format"`
	FullResponse json.RawMessage `json:"fullResponse,omitempty"`
}

type pixResponse struct {
	Data  *domain.NormalizedPixResult `json:"data"`
	Debug pixDebug                    `json:"debug"`
}

type passThroughResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func generatePixHandler(pix *service.PixNegotiator, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /generate-pix")
		defer span.End()

		var in domain.PixChargeInput
		if err := decodeInput(w, r, &in); err != nil {
			metrics.IncrRequest("generate_pix", "invalid")
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		req, err := service.ValidatePixCharge(&in)
		if err != nil {
			metrics.IncrRequest("generate_pix", "invalid")
			handleServiceError(w, err, msgPixFailed, logger)
			return
		}

		result, err := pix.Generate(ctx, req)
		if err != nil {
			metrics.IncrRequest("generate_pix", "error")
			handleServiceError(w, err, msgPixFailed, logger)
			return
		}

		metrics.IncrRequest("generate_pix", "success")
		writeJSON(w, http.StatusOK, pixResponse{
			Data:  result,
			Debug: pixDebug{Format: result.Format, FullResponse: result.Raw},
		})
	}
}

func checkPaymentHandler(status *service.StatusChecker, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /check-payment")
		defer span.End()

		var in domain.StatusInput
		if err := decodeInput(w, r, &in); err != nil {
			metrics.IncrRequest("check_payment", "invalid")
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		id, err := service.ValidateStatusLookup(&in)
		if err != nil {
			metrics.IncrRequest("check_payment", "invalid")
			handleServiceError(w, err, msgStatusFailed, logger)
			return
		}

		body, err := status.Check(ctx, id)
		if err != nil {
			metrics.IncrRequest("check_payment", "error")
			handleServiceError(w, err, msgStatusFailed, logger)
			return
		}

		metrics.IncrRequest("check_payment", "success")
		writeJSON(w, http.StatusOK, passThroughResponse{Success: true, Data: body})
	}
}

func processCardHandler(card *service.CardRelay, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /process-card")
		defer span.End()

		var in domain.CardChargeInput
		if err := decodeInput(w, r, &in); err != nil {
			metrics.IncrRequest("process_card", "invalid")
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		req, err := service.ValidateCardCharge(&in)
		if err != nil {
			metrics.IncrRequest("process_card", "invalid")
			handleServiceError(w, err, msgCardFailed, logger)
			return
		}

		body, err := card.Process(ctx, req)
		if err != nil {
			metrics.IncrRequest("process_card", "error")
			handleServiceError(w, err, msgCardFailed, logger)
			return
		}

		metrics.IncrRequest("process_card", "success")
		writeJSON(w, http.StatusOK, passThroughResponse{Success: true, Data: body})
	}
}
