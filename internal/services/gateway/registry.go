package gateway

import "github.com/pkg/errors"

// Registry resolves the gateway for a bot's configured exchange. A bot
// pointing at an unregistered exchange is a configuration error: the cycle
// attempt is aborted before any order is placed.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register adds a gateway under the exchange name.
func (r *Registry) Register(exchange string, gw Gateway) {
	r.gateways[exchange] = gw
}

// For returns the gateway registered for the exchange.
func (r *Registry) For(exchange string) (Gateway, error) {
	gw, ok := r.gateways[exchange]
	if !ok {
		return nil, errors.Errorf("no gateway registered for exchange %q", exchange)
	}
	return gw, nil
}
