package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/raywall/stark-toolkit/schema"
	"github.com/rs/zerolog/log"
)

// Registry mantém um Service por entidade do catálogo. O conjunto é
// trocado inteiro em Reload; leituras concorrentes veem o catálogo antigo
// ou o novo, nunca uma mistura.
type Registry struct {
	deps Deps

	mu       sync.RWMutex
	catalog  *schema.Catalog
	services map[string]*Service
}

func NewRegistry(deps Deps, cat *schema.Catalog) (*Registry, error) {
	r := &Registry{deps: deps}
	if err := r.Reload(cat); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload monta os serviços do novo catálogo e só então os publica.
func (r *Registry) Reload(cat *schema.Catalog) error {
	services, err := build(r.deps, cat)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.catalog = cat
	r.services = services
	r.mu.Unlock()
	return nil
}

// Lookup retorna o serviço da entidade pelo nome.
func (r *Registry) Lookup(name string) (*Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// Names lista as entidades registradas em ordem alfabética.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Catalog() *schema.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

func build(deps Deps, cat *schema.Catalog) (map[string]*Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("entity: nil catalog")
	}

	services := make(map[string]*Service, len(cat.Entities))
	for i := range cat.Entities {
		e := &cat.Entities[i]
		services[e.Name] = NewService(e, deps)
	}

	for _, c := range cat.Cascades {
		parent, ok := services[c.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: cascade parent %s", ErrUnknownEntity, c.Parent)
		}
		child, ok := services[c.Child]
		if !ok {
			return nil, fmt.Errorf("%w: cascade child %s", ErrUnknownEntity, c.Child)
		}
		cascade, err := NewReferenceCascade(child, c.Field)
		if err != nil {
			return nil, err
		}
		parent.cascades = append(parent.cascades, cascade)
	}
	return services, nil
}

// CatalogLoader lê um catálogo de uma origem (arquivo ou s3://).
type CatalogLoader interface {
	Load(ctx context.Context, source string) (*schema.Catalog, error)
}

// SourceReloader recarrega o Registry a partir da origem configurada.
type SourceReloader struct {
	Registry *Registry
	Loader   CatalogLoader
	Source   string
}

func (s *SourceReloader) Reload(ctx context.Context) error {
	cat, err := s.Loader.Load(ctx, s.Source)
	if err != nil {
		return fmt.Errorf("entity: reload catalog: %w", err)
	}
	if err := s.Registry.Reload(cat); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("component", "entity").
		Str("source", s.Source).
		Str("version", cat.Version).
		Int("entities", len(cat.Entities)).
		Msg("catalog reloaded")
	return nil
}
