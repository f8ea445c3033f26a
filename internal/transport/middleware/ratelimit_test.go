package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/safebank/banking/internal/transport/middleware"
)

func TestRateLimiter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rate Limiter Suite")
}

var _ = Describe("RateLimiter", func() {
	var (
		limiter *middleware.RateLimiter
		handler http.Handler
	)

	hit := func(remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = remoteAddr
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		}, logger)
		handler = limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	})

	AfterEach(func() {
		limiter.Close()
	})

	It("allows requests up to the burst, then rejects with 429", func() {
		for i := 0; i < 3; i++ {
			rec := hit("10.0.0.1:50000", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("X-RateLimit-Limit")).To(Equal("3"))
		}

		rec := hit("10.0.0.1:50000", "")
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())
		Expect(rec.Body.String()).To(ContainSubstring("too many requests"))
	})

	It("tracks clients independently", func() {
		for i := 0; i < 4; i++ {
			hit("10.0.0.1:50000", "")
		}

		rec := hit("10.0.0.2:50000", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("keys on the forwarded address when a proxy is in front", func() {
		for i := 0; i < 4; i++ {
			hit("10.0.0.9:50000", "203.0.113.7, 10.0.0.9")
		}

		blocked := hit("10.0.0.9:50000", "203.0.113.7, 10.0.0.9")
		Expect(blocked.Code).To(Equal(http.StatusTooManyRequests))

		other := hit("10.0.0.9:50000", "203.0.113.8")
		Expect(other.Code).To(Equal(http.StatusOK))
	})
})
