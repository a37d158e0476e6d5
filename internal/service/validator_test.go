package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPixInput() *domain.PixChargeInput {
	return &domain.PixChargeInput{
		Name:   "Maria",
		Email:  "maria@example.com",
		Phone:  "(11) 98765-4321",
		TaxID:  "123.456.789-00",
		Amount: "47.90",
	}
}

func validCardInput() *domain.CardChargeInput {
	return &domain.CardChargeInput{
		Name:       "Maria",
		Email:      "maria@example.com",
		TaxID:      "123.456.789-00",
		Phone:      "11987654321",
		Amount:     "97",
		CardNumber: "4111111111111111",
		CardName:   "MARIA",
		CardExpiry: "12/27",
		CardCVV:    "123",
	}
}

func validationField(t *testing.T, err error) *domain.ErrValidation {
	t.Helper()
	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr
}

func TestValidatePixCharge_Valid(t *testing.T) {
	req, err := service.ValidatePixCharge(validPixInput())
	require.NoError(t, err)

	assert.Equal(t, 47.9, req.Amount)
	assert.Equal(t, "(11) 98765-4321", req.Phone)
}

func TestValidatePixCharge_MissingFields(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(in *domain.PixChargeInput)
	}{
		{"nome", func(in *domain.PixChargeInput) { in.Name = "" }},
		{"email", func(in *domain.PixChargeInput) { in.Email = "" }},
		{"telefone", func(in *domain.PixChargeInput) { in.Phone = "" }},
		{"cpf", func(in *domain.PixChargeInput) { in.TaxID = "" }},
		{"amount", func(in *domain.PixChargeInput) { in.Amount = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			in := validPixInput()
			tt.mutate(in)

			_, err := service.ValidatePixCharge(in)
			verr := validationField(t, err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, verr.Message, "obrigatórios")
		})
	}
}

func TestValidatePixCharge_InvalidAmounts(t *testing.T) {
	for _, amount := range []domain.Amount{"abc", "0", "-5", "0.00", "NaN", "Inf", "1e400", "12abc"} {
		t.Run(string(amount), func(t *testing.T) {
			in := validPixInput()
			in.Amount = amount

			_, err := service.ValidatePixCharge(in)
			verr := validationField(t, err)
			assert.Equal(t, "amount", verr.Field)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[domain.Amount]float64{
		"10":     10,
		" 47.90": 47.9,
		"97,50":  97.5,
		"1e2":    100,
	}
	for raw, want := range tests {
		got, err := service.ParseAmount(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var in domain.PixChargeInput

	require.NoError(t, json.Unmarshal([]byte(`{"amount": 12.5}`), &in))
	assert.Equal(t, domain.Amount("12.5"), in.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "30"}`), &in))
	assert.Equal(t, domain.Amount("30"), in.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": null}`), &in))
	assert.Equal(t, domain.Amount(""), in.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": true}`), &in))
}

func TestText_AcceptsNumbers(t *testing.T) {
	var in domain.PixChargeInput
	body := `{"nome":"Maria","email":"maria@example.com","telefone":11987654321,"cpf":12345678900,"amount":10}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	req, err := service.ValidatePixCharge(&in)
	require.NoError(t, err)
	assert.Equal(t, "11987654321", req.Phone)
	assert.Equal(t, "12345678900", req.TaxID)

	var status domain.StatusInput
	require.NoError(t, json.Unmarshal([]byte(`{"transactionId": 987654}`), &status))
	id, err := service.ValidateStatusLookup(&status)
	require.NoError(t, err)
	assert.Equal(t, "987654", id)

	assert.Error(t, json.Unmarshal([]byte(`{"cpf": {"n": 1}}`), &in))
}

func TestValidateCardCharge_CustomerBeforeCard(t *testing.T) {
	in := validCardInput()
	in.Email = ""
	in.CardCVV = ""

	_, err := service.ValidateCardCharge(in)
	verr := validationField(t, err)
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, "Dados do cliente são obrigatórios.", verr.Message)
}

func TestValidateCardCharge_MissingCardField(t *testing.T) {
	in := validCardInput()
	in.CardCVV = ""

	_, err := service.ValidateCardCharge(in)
	verr := validationField(t, err)
	assert.Equal(t, "cardCvv", verr.Field)
	assert.Equal(t, "Dados do cartão são obrigatórios.", verr.Message)
}

func TestValidateCardCharge_InvalidAmountAndExpiry(t *testing.T) {
	in := validCardInput()
	in.Amount = "-1"
	_, err := service.ValidateCardCharge(in)
	assert.Equal(t, "amount", validationField(t, err).Field)

	in = validCardInput()
	in.CardExpiry = "1/2"
	_, err = service.ValidateCardCharge(in)
	assert.Equal(t, "cardExpiry", validationField(t, err).Field)
}

func TestValidateCardCharge_Valid(t *testing.T) {
	req, err := service.ValidateCardCharge(validCardInput())
	require.NoError(t, err)

	assert.Equal(t, 97.0, req.Customer.Amount)
	assert.Equal(t, "MARIA", req.CardHolder)
}

func TestValidateStatusLookup(t *testing.T) {
	id, err := service.ValidateStatusLookup(&domain.StatusInput{TransactionID: " txid-1 "})
	require.NoError(t, err)
	assert.Equal(t, "txid-1", id)

	_, err = service.ValidateStatusLookup(&domain.StatusInput{TransactionID: "  "})
	assert.Equal(t, "transactionId", validationField(t, err).Field)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "11987654321", service.DigitsOnly("(11) 98765-4321"))
	assert.Equal(t, "12345678900", service.DigitsOnly("123.456.789-00"))
	assert.Equal(t, "", service.DigitsOnly("abc"))
}
