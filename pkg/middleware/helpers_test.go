package middleware

import (
	"net/http"
	"time"

	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/subscription"
	"github.com/bizflow/bizgate/pkg/subscription/subscriptiontest"
)

const (
	testSecret = "middleware-test-secret"
	testIssuer = "bizgate-test"

	alice = "6b1f3c9e-2d4a-4c8e-9f1a-1a2b3c4d5e6f"
	bob   = "7c2e4daf-3e5b-4d9f-8a2b-2b3c4d5e6f70"
)

func newVerifier() *auth.Verifier {
	return auth.NewVerifier(testSecret, testIssuer, time.Second)
}

func newSessions(store *subscriptiontest.Store) *subscription.Sessions {
	return subscription.NewSessions(store, observability.NopLogger(), nil, subscription.SessionsConfig{Size: 16, TTL: time.Minute})
}

// ok is a terminal handler that records it ran
func ok(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusNoContent)
	})
}
