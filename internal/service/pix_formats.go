package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
)

// ============================================================
// Candidate request formats
// ============================================================

// pixParty is the customer block sent to the PIX provider.
type pixParty struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

// pixPayload is everything a body builder needs for one request.
type pixPayload struct {
	TxID        string
	Amount      float64
	Party       pixParty
	Description string
}

func newPixPayload(req *domain.PaymentRequest, txID, description string) pixPayload {
	return pixPayload{
		TxID:   txID,
		Amount: req.Amount,
		Party: pixParty{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    DigitsOnly(req.Phone),
			Document: DigitsOnly(req.TaxID),
		},
		Description: description,
	}
}

type identifierChargeBody struct {
	Identifier  string   `json:"identifier"`
	Amount      float64  `json:"amount"`
	Client      pixParty `json:"client"`
	Description string   `json:"description"`
}

type accountChargeBody struct {
	AccountID   string   `json:"account_id,omitempty"`
	Amount      float64  `json:"amount"`
	Customer    pixParty `json:"customer"`
	Description string   `json:"description"`
}

// candidateDescriptor describes one way of calling the provider.
type candidateDescriptor struct {
	label   string
	path    string
	body    func(p pixPayload, creds domain.PixCredentials) any
	headers func(creds domain.PixCredentials) map[string]string
}

// candidateDescriptors is tried in order; the order is part of the contract.
var candidateDescriptors = []candidateDescriptor{
	{
		label:   "format-1",
		path:    "/gateway/pix/receive",
		body:    identifierBody,
		headers: lowerCaseKeyHeaders,
	},
	{
		label:   "format-2",
		path:    "/pix/charge",
		body:    accountBody,
		headers: bearerHeaders,
	},
	{
		label:   "format-3",
		path:    "/gateway/pix/receive",
		body:    identifierBody,
		headers: upperCaseKeyHeaders,
	},
}

func identifierBody(p pixPayload, _ domain.PixCredentials) any {
	return identifierChargeBody{
		Identifier:  p.TxID,
		Amount:      p.Amount,
		Client:      p.Party,
		Description: "Pagamento PIX para " + p.Party.Name,
	}
}

func accountBody(p pixPayload, creds domain.PixCredentials) any {
	return accountChargeBody{
		AccountID:   creds.AccountID,
		Amount:      p.Amount,
		Customer:    p.Party,
		Description: fmt.Sprintf("%s - %s", p.Description, p.TxID),
	}
}

func lowerCaseKeyHeaders(creds domain.PixCredentials) map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"x-public-key": creds.PublicKey,
		"x-secret-key": creds.SecretKey,
	}
}

func bearerHeaders(creds domain.PixCredentials) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + creds.SecretKey,
	}
}

func upperCaseKeyHeaders(creds domain.PixCredentials) map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"X-Public-Key": creds.PublicKey,
		"X-Secret-Key": creds.SecretKey,
	}
}

// buildCandidates materializes the descriptors for one request.
func buildCandidates(creds domain.PixCredentials, p pixPayload) []domain.CandidateFormat {
	base := strings.TrimRight(creds.BaseURL, "/")
	out := make([]domain.CandidateFormat, 0, len(candidateDescriptors))
	for _, d := range candidateDescriptors {
		out = append(out, domain.CandidateFormat{
			Label:     d.label,
			TargetURL: base + d.path,
			Body:      d.body(p, creds),
			Headers:   d.headers(creds),
		})
	}
	return out
}

// ============================================================
// Response extractors
// ============================================================

// pixExtractor recognizes one response shape.
type pixExtractor func(body map[string]any, txID string) (*domain.NormalizedPixResult, bool)

// pixExtractors is tried in order, first match wins.
var pixExtractors = []pixExtractor{
	extractNestedPix,
	extractQRCodeField,
	extractTopLevelBase64,
}

// extractPixResult decodes raw and runs the extractors. txID is the fallback
// transaction id when the provider does not return one.
func extractPixResult(raw json.RawMessage, txID string) (*domain.NormalizedPixResult, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, false
	}

	for _, extract := range pixExtractors {
		if result, ok := extract(body, txID); ok {
			return result, true
		}
	}
	return nil, false
}

// { "pix": { "base64": ..., "code": ... }, "transactionId" | "id" }
func extractNestedPix(body map[string]any, txID string) (*domain.NormalizedPixResult, bool) {
	pix := object(body["pix"])
	return normalized(
		text(pix["base64"]),
		text(pix["code"]),
		firstNonEmpty(text(body["transactionId"]), text(body["id"]), txID),
	)
}

// { "qr_code": {...} | "...", "qr_code_text" | "copy_and_paste", "id" | "charge_id" }
// An object qr_code without "base64" yields no image, so the shape does not
// match; the object itself is never passed on as the image.
func extractQRCodeField(body map[string]any, txID string) (*domain.NormalizedPixResult, bool) {
	image := text(body["qr_code"])
	if qr := object(body["qr_code"]); qr != nil {
		image = text(qr["base64"])
	}
	return normalized(
		image,
		firstNonEmpty(text(body["qr_code_text"]), text(body["copy_and_paste"])),
		firstNonEmpty(text(body["id"]), text(body["charge_id"]), txID),
	)
}

// { "base64": ..., "qr_code" | "code", "id" }
func extractTopLevelBase64(body map[string]any, txID string) (*domain.NormalizedPixResult, bool) {
	return normalized(
		text(body["base64"]),
		firstNonEmpty(text(body["qr_code"]), text(body["code"])),
		firstNonEmpty(text(body["id"]), txID),
	)
}

func normalized(image, code, id string) (*domain.NormalizedPixResult, bool) {
	if image == "" || code == "" {
		return nil, false
	}
	return &domain.NormalizedPixResult{
		QRCodeBase64:  image,
		QRCodeText:    code,
		TransactionID: id,
	}, true
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// text returns strings and numbers as text, anything else as "".
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
