package payment

import (
	"fmt"
	"sync"

	"github.com/bricollano/server/internal/module/payment/provider"
)

// ProviderRegistry holds the configured payment gateways.
type ProviderRegistry struct {
	mu     sync.RWMutex
	cards  map[string]provider.Provider
	crypto map[string]provider.CryptoProvider
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		cards:  make(map[string]provider.Provider),
		crypto: make(map[string]provider.CryptoProvider),
	}
}

// RegisterCard registers a card gateway.
func (r *ProviderRegistry) RegisterCard(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[p.Name()] = p
}

// RegisterCrypto registers a crypto gateway.
func (r *ProviderRegistry) RegisterCrypto(p provider.CryptoProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crypto[p.Name()] = p
}

// Card returns a card gateway by name.
func (r *ProviderRegistry) Card(name string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.cards[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Crypto returns a crypto gateway by name.
func (r *ProviderRegistry) Crypto(name string) (provider.CryptoProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.crypto[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// ByMethod returns the card gateway serving the given payment method.
func (r *ProviderRegistry) ByMethod(method Method) (provider.Provider, error) {
	switch method {
	case MethodCreditCard:
		return r.Card("stripe")
	default:
		return nil, fmt.Errorf("%w: no card gateway for method %s", ErrProviderNotFound, method)
	}
}
