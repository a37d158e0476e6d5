package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// ============================================================
// Inbound payloads (storefront contract, Portuguese field names)
// ============================================================

// Amount holds the raw amount sent by the storefront. The storefront sends
// either a JSON number or a numeric string, both are accepted here and parsed
// later by the validator.
type Amount string

// UnmarshalJSON accepts numbers, strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := scalarText(data)
	if err != nil {
		return err
	}
	*a = Amount(s)
	return nil
}

// Text is a string field the storefront may also send as a JSON number,
// such as a phone, a CPF or a transaction id.
type Text string

// UnmarshalJSON accepts numbers, strings and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	s, err := scalarText(data)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// scalarText returns the text of a JSON string or number. null is "".
// Numbers keep their literal form so leading digits are not reformatted.
func scalarText(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// PixChargeInput is the body of POST /generate-pix.
type PixChargeInput struct {
	Name   string `json:"nome" validate:"required"`
	Email  string `json:"email" validate:"required"`
	Phone  Text   `json:"telefone" validate:"required"`
	TaxID  Text   `json:"cpf" validate:"required"`
	Amount Amount `json:"amount" validate:"required"`
}

// CardChargeInput is the body of POST /process-card.
type CardChargeInput struct {
	Name       string `json:"nome" validate:"required"`
	Email      string `json:"email" validate:"required"`
	TaxID      Text   `json:"cpf" validate:"required"`
	Phone      Text   `json:"telefone" validate:"required"`
	Amount     Amount `json:"amount" validate:"required"`
	CardNumber Text   `json:"cardNumber" validate:"required"`
	CardName   string `json:"cardName" validate:"required"`
	CardExpiry string `json:"cardExpiry" validate:"required"`
	CardCVV    Text   `json:"cardCvv" validate:"required"`
}

// StatusInput is the body of POST /check-payment.
type StatusInput struct {
	TransactionID Text `json:"transactionId" validate:"required"`
}

// ============================================================
// Validated values
// ============================================================

// PaymentRequest is a validated customer + amount pair.
type PaymentRequest struct {
	Name   string
	Email  string
	Phone  string
	TaxID  string
	Amount float64
}

// CardPaymentRequest carries card data. It must never be logged as a whole.
type CardPaymentRequest struct {
	Customer   PaymentRequest
	CardNumber string
	CardHolder string
	CardExpiry string
	CardCVV    string
}

// ============================================================
// PIX negotiation
// ============================================================

// PixCredentials identifies the merchant against the PIX provider.
type PixCredentials struct {
	PublicKey string
	SecretKey string
	AccountID string
	BaseURL   string
}

// Flags reports which credentials are set without exposing them.
func (c PixCredentials) Flags() CredentialFlags {
	return CredentialFlags{
		"publicKeyConfigured": c.PublicKey != "",
		"secretKeyConfigured": c.SecretKey != "",
		"accountIdConfigured": c.AccountID != "",
	}
}

// CandidateFormat is one concrete way of calling the PIX provider.
type CandidateFormat struct {
	Label     string
	TargetURL string
	Body      any
	Headers   map[string]string
}

// NormalizedPixResult is the provider answer reduced to what the storefront needs.
type NormalizedPixResult struct {
	QRCodeBase64  string          `json:"qrCodeBase64"`
	QRCodeText    string          `json:"qrCodeText"`
	TransactionID string          `json:"transactionId"`
	Format        string          `json:"-"`
	Raw           json.RawMessage `json:"-"`
}

// CredentialFlags maps a credential name to whether it is configured.
type CredentialFlags map[string]bool

// ============================================================
// Card provider
// ============================================================

// AccessToken is a cached bearer token.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be used at now.
func (t AccessToken) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// TokenGrant is the answer of the client-credentials exchange.
type TokenGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// CardCharge is the payload sent to the card provider.
type CardCharge struct {
	Amount       float64      `json:"amount"`
	Customer     CardCustomer `json:"customer"`
	Card         CardDetails  `json:"card"`
	Installments int          `json:"installments"`
	Description  string       `json:"description"`
}

// CardCustomer is the customer block of a CardCharge.
type CardCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
}

// CardDetails is the card block of a CardCharge.
type CardDetails struct {
	Number     string `json:"number"`
	HolderName string `json:"holder_name"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVV        string `json:"cvv"`
}

// ============================================================
// Operational
// ============================================================

// ReadinessStatus is returned by GET /readyz.
type ReadinessStatus struct {
	Status string          `json:"status"`
	Pix    CredentialFlags `json:"pix"`
	Card   CredentialFlags `json:"card"`
}

// RelayMetrics is the JSON snapshot served on GET /metrics/relay.
type RelayMetrics struct {
	PixAttempts       map[string]float64 `json:"pixAttempts"`
	ProviderErrors    map[string]float64 `json:"providerErrors"`
	TokenCacheHitRate float64            `json:"tokenCacheHitRate"`
	TokenRefreshes    float64            `json:"tokenRefreshes"`
}
