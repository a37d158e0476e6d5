package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/handler"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/cache"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/client"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/observability"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/resilience"
	"github.com/boddenberg/storefront-payment-relay/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider is an upstream provider that counts hits per path and keeps
// the decoded JSON bodies it received.
type stubProvider struct {
	*httptest.Server

	mu     sync.Mutex
	hits   map[string]int
	bodies []map[string]any
}

func newStubProvider(t *testing.T, respond http.HandlerFunc) *stubProvider {
	t.Helper()
	s := &stubProvider{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.bodies = append(s.bodies, body)
		s.mu.Unlock()

		respond(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *stubProvider) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *stubProvider) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.hits {
		n += c
	}
	return n
}

func (s *stubProvider) lastBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return nil
	}
	return s.bodies[len(s.bodies)-1]
}

func replyJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

type relayOptions struct {
	pixCreds         *domain.PixCredentials
	cardUnconfigured bool
}

// newRelay wires the real clients and services against the stub providers.
func newRelay(t *testing.T, pix, card *stubProvider, opts relayOptions) http.Handler {
	t.Helper()

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	httpClient := &http.Client{Timeout: 5 * time.Second}
	bulkhead := resilience.NewBulkhead(8)

	creds := domain.PixCredentials{PublicKey: "pk-test", SecretKey: "sk-test", AccountID: "acc-1", BaseURL: pix.URL}
	if opts.pixCreds != nil {
		creds = *opts.pixCreds
		creds.BaseURL = pix.URL
	}
	secret := "client-secret"
	if opts.cardUnconfigured {
		secret = ""
	}

	vizzion := client.NewVizzionClient(httpClient, resilience.NewCircuitBreaker("vizzion", client.IsBreakerSuccess, logger), bulkhead)
	kiwify := client.NewKiwifyClient(httpClient, card.URL, "client-id", secret,
		resilience.NewCircuitBreaker("kiwify", client.IsBreakerSuccess, logger), bulkhead)

	pixSvc := service.NewPixNegotiator(vizzion, creds, service.PixOptions{
		AttemptTimeout:    2 * time.Second,
		ChargeDescription: "Manual Do Milhão",
	}, metrics, logger)
	statusSvc := service.NewStatusChecker(vizzion, creds, metrics, logger)
	cardSvc := service.NewCardRelay(kiwify, cache.NewTokenSlot(), service.CardOptions{
		TokenSafetyMargin: time.Hour,
		ChargeDescription: "Manual Do Milhão",
	}, metrics, logger)

	return handler.NewRouter(pixSvc, statusSvc, cardSvc, metrics, logger, handler.Options{
		AllowedOrigins: []string{"*"},
	})
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}
