package reasoner

import "context"

// Router dispatches Think calls by role. pre_check is pinned to the
// sovereign endpoint when one is configured; every other role defaults to
// the cloud endpoint. When a call's Options.GovernanceMode is set, the forge
// role is rerouted to the backstop endpoint instead of the default forge
// endpoint. A role with no configured endpoint falls back to the mock.
type Router struct {
	sovereign Reasoner
	cloud     Reasoner
	backstop  Reasoner
	mock      Reasoner
}

// RouterConfig names the three optional endpoints a Router may hold.
type RouterConfig struct {
	Sovereign *EndpointConfig
	Cloud     *EndpointConfig
	Backstop  *EndpointConfig
}

// NewRouter builds a Router from whichever endpoints are configured; any nil
// endpoint means that tier falls back to the deterministic mock.
func NewRouter(cfg RouterConfig) *Router {
	r := &Router{mock: NewMock()}
	if cfg.Sovereign != nil {
		r.sovereign = NewHTTP(*cfg.Sovereign)
	}
	if cfg.Cloud != nil {
		r.cloud = NewHTTP(*cfg.Cloud)
	}
	if cfg.Backstop != nil {
		r.backstop = NewHTTP(*cfg.Backstop)
	}
	return r
}

// Think implements Reasoner by routing to the endpoint selected for role.
func (r *Router) Think(ctx context.Context, role Role, systemPrompt, userPrompt string, opts Options) (map[string]any, error) {
	return r.resolve(role, opts).Think(ctx, role, systemPrompt, userPrompt, opts)
}

func (r *Router) resolve(role Role, opts Options) Reasoner {
	switch role {
	case RolePreCheck:
		if r.sovereign != nil {
			return r.sovereign
		}
		return r.mock
	case RoleForge:
		if opts.GovernanceMode {
			if r.backstop != nil {
				return r.backstop
			}
			return r.mock
		}
		if r.cloud != nil {
			return r.cloud
		}
		return r.mock
	default:
		if r.cloud != nil {
			return r.cloud
		}
		return r.mock
	}
}
