package service

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"

	"github.com/go-playground/validator/v10"
)

// User-facing validation messages, shown as-is by the storefront.
const (
	msgPixFieldsRequired = "Todos os campos (nome, email, telefone, cpf, valor) são obrigatórios."
	msgCustomerRequired  = "Dados do cliente são obrigatórios."
	msgCardRequired      = "Dados do cartão são obrigatórios."
	msgAmountPositive    = "O valor deve ser um número positivo."
	msgCardExpiry        = "Validade do cartão inválida."
	msgTransactionID     = "Transaction ID é obrigatório."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// cardFields are the fields reported with msgCardRequired.
var cardFields = map[string]bool{
	"cardNumber": true,
	"cardName":   true,
	"cardExpiry": true,
	"cardCvv":    true,
}

// ValidatePixCharge checks a /generate-pix body.
func ValidatePixCharge(in *domain.PixChargeInput) (*domain.PaymentRequest, error) {
	if field, ok := firstInvalidField(in); !ok {
		return nil, &domain.ErrValidation{Field: field, Message: msgPixFieldsRequired}
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	return &domain.PaymentRequest{
		Name:   in.Name,
		Email:  in.Email,
		Phone:  string(in.Phone),
		TaxID:  string(in.TaxID),
		Amount: amount,
	}, nil
}

// ValidateCardCharge checks a /process-card body. Customer fields are
// reported before card fields.
func ValidateCardCharge(in *domain.CardChargeInput) (*domain.CardPaymentRequest, error) {
	if field, ok := firstInvalidField(in); !ok {
		msg := msgCustomerRequired
		if cardFields[field] {
			msg = msgCardRequired
		}
		return nil, &domain.ErrValidation{Field: field, Message: msg}
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	if _, _, ok := splitExpiry(in.CardExpiry); !ok {
		return nil, &domain.ErrValidation{Field: "cardExpiry", Message: msgCardExpiry}
	}

	return &domain.CardPaymentRequest{
		Customer: domain.PaymentRequest{
			Name:   in.Name,
			Email:  in.Email,
			Phone:  string(in.Phone),
			TaxID:  string(in.TaxID),
			Amount: amount,
		},
		CardNumber: string(in.CardNumber),
		CardHolder: in.CardName,
		CardExpiry: in.CardExpiry,
		CardCVV:    string(in.CardCVV),
	}, nil
}

// ValidateStatusLookup checks a /check-payment body and returns the id.
func ValidateStatusLookup(in *domain.StatusInput) (string, error) {
	id := strings.TrimSpace(string(in.TransactionID))
	if id == "" {
		return "", &domain.ErrValidation{Field: "transactionId", Message: msgTransactionID}
	}
	return id, nil
}

// ParseAmount converts the raw amount to a finite positive number.
// A comma is accepted as decimal separator.
func ParseAmount(raw domain.Amount) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, &domain.ErrValidation{Field: "amount", Message: msgAmountPositive}
	}
	return v, nil
}

// firstInvalidField runs the struct tags and returns the first failing field.
func firstInvalidField(in any) (string, bool) {
	err := validate.Struct(in)
	if err == nil {
		return "", true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), false
	}
	return "", false
}
