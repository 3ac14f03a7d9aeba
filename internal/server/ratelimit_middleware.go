package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ashita-ai/senate/internal/model"
	"github.com/ashita-ai/senate/internal/ratelimit"
)

// missionRule throttles mission submissions per caller; deliberation is the
// expensive path (up to five Reasoner round trips) so it gets the tightest
// budget.
var missionRule = ratelimit.Rule{Prefix: "missions", Limit: 30, Window: time.Minute}

// readRule throttles chronicle reads, which are cheap but can still be
// hammered by a misbehaving client.
var readRule = ratelimit.Rule{Prefix: "reads", Limit: 300, Window: time.Minute}

// rateLimitMiddleware applies missionRule to POST /v1/missions and
// POST /v1/appeals, and readRule to everything else under /v1/, keyed by the
// caller ID from the validated JWT (falling back to remote address for
// unauthenticated paths that still reach this middleware).
func rateLimitMiddleware(limiter ratelimit.Allower, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := r.RemoteAddr
		if claims := ClaimsFromContext(r.Context()); claims != nil {
			key = claims.CallerID
		}

		rule := readRule
		if r.Method == http.MethodPost && (r.URL.Path == "/v1/missions" || r.URL.Path == "/v1/appeals") {
			rule = missionRule
		}

		result := limiter.Allow(r.Context(), rule, key)
		for k, v := range result.FormatHeaders() {
			w.Header().Set(k, v)
		}
		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(result.ResetAt.Unix()), 10))
			writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
