package http

import (
	connectionUsecases "github.com/lumina-dash/lumina/internal/application/connection/usecases"
	"github.com/lumina-dash/lumina/internal/infrastructure/oauth"
)

// registryResolver adapts oauth.Registry to the use cases' ClientResolver
// interface. An unconfigured platform must come back as a nil interface, not
// a typed nil pointer.
type registryResolver struct {
	registry *oauth.Registry
}

func (r *registryResolver) Get(platform string) connectionUsecases.ProviderClient {
	client := r.registry.Get(platform)
	if client == nil {
		return nil
	}
	return client
}
