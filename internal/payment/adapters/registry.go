package adapters

import (
	"errors"
	"strings"

	"github.com/smallbiznis/jobboard/internal/payment/domain"
	"go.uber.org/zap"
)

// Registry holds the gateways whose configuration is complete.
type Registry struct {
	gateways        map[string]domain.Gateway
	defaultProvider string
}

func NewRegistry(log *zap.Logger, cfg domain.GatewayConfig, defaultProvider string, factories ...domain.GatewayFactory) (*Registry, error) {
	registry := &Registry{
		gateways:        map[string]domain.Gateway{},
		defaultProvider: normalize(defaultProvider),
	}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := normalize(factory.Provider())
		if provider == "" {
			continue
		}
		gw, err := factory.NewGateway(cfg)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidConfig) {
				log.Info("payment provider not configured", zap.String("provider", provider))
				continue
			}
			return nil, err
		}
		registry.gateways[provider] = gw
	}
	return registry, nil
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.gateways[normalize(provider)]
	return ok
}

// Gateway returns the named gateway, or the default one when provider is empty.
func (r *Registry) Gateway(provider string) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = normalize(provider)
	if provider == "" {
		provider = r.defaultProvider
	}
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return gw, nil
}

func (r *Registry) Default() (domain.Gateway, error) {
	return r.Gateway("")
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
