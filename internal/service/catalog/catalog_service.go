package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/envelope"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/rs/zerolog"
)

type CatalogUseCase interface {
	ListBranches(ctx context.Context, q BranchQuery) []domain.Branch
	GetBranch(ctx context.Context, id int64) (*domain.Branch, error)
	ListFields(ctx context.Context, q FieldQuery) []domain.Field
	GetField(ctx context.Context, id int64) (*domain.Field, error)
}

type API interface {
	Do(ctx context.Context, req httpclient.Request) ([]byte, error)
}

type Cache interface {
	GetBranches(ctx context.Context, key string) ([]domain.Branch, error)
	SetBranches(ctx context.Context, key string, branches []domain.Branch) error
}

type BranchQuery struct {
	Search string
	Page   int
	Limit  int
}

func (q BranchQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (q BranchQuery) cacheKey() string {
	return fmt.Sprintf("q=%s&page=%d&limit=%d", q.Search, q.Page, q.Limit)
}

// FieldQuery filters by branch on the client; the backend list is not branch scoped.
type FieldQuery struct {
	BranchID int64
	Limit    int
}

type CatalogService struct {
	api   API
	cache Cache
	log   zerolog.Logger
}

type CatalogServiceOption func(*CatalogService)

func WithCache(cache Cache) CatalogServiceOption {
	return func(s *CatalogService) {
		s.cache = cache
	}
}

func WithLogger(log zerolog.Logger) CatalogServiceOption {
	return func(s *CatalogService) {
		s.log = log
	}
}

func NewCatalogService(api API, opts ...CatalogServiceOption) *CatalogService {
	service := &CatalogService{api: api, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *CatalogService) ListBranches(ctx context.Context, q BranchQuery) []domain.Branch {
	key := q.cacheKey()
	if s.cache != nil {
		if cached, err := s.cache.GetBranches(ctx, key); err == nil && cached != nil {
			return cached
		}
	}

	body, err := s.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/branches", Query: q.values()})
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/branches").Msg("fetching branches failed")
		return []domain.Branch{}
	}

	list, err := envelope.DecodeList[domain.Branch](body, "branches")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/branches").Msg("unexpected response shape")
		return []domain.Branch{}
	}

	if s.cache != nil {
		if err := s.cache.SetBranches(ctx, key, list.Items); err != nil {
			s.log.Warn().Err(err).Msg("caching branches failed")
		}
	}
	return list.Items
}

func (s *CatalogService) GetBranch(ctx context.Context, id int64) (*domain.Branch, error) {
	endpoint := fmt.Sprintf("/branches/%d", id)
	body, err := s.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: endpoint})
	if err != nil {
		return nil, fmt.Errorf("get branch %d: %w", id, err)
	}
	one, err := envelope.DecodeOne[domain.Branch](body, "branch")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("unexpected response shape")
		return nil, fmt.Errorf("get branch %d: %w", id, err)
	}
	return &one.Value, nil
}

func (s *CatalogService) ListFields(ctx context.Context, q FieldQuery) []domain.Field {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := s.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/fields", Query: query})
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/fields").Msg("fetching fields failed")
		return []domain.Field{}
	}

	list, err := envelope.DecodeList[domain.Field](body, "fields")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/fields").Msg("unexpected response shape")
		return []domain.Field{}
	}

	if q.BranchID <= 0 {
		return list.Items
	}
	filtered := make([]domain.Field, 0, len(list.Items))
	for _, f := range list.Items {
		if f.BranchID == q.BranchID {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

func (s *CatalogService) GetField(ctx context.Context, id int64) (*domain.Field, error) {
	endpoint := fmt.Sprintf("/fields/%d", id)
	body, err := s.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: endpoint})
	if err != nil {
		return nil, fmt.Errorf("get field %d: %w", id, err)
	}
	one, err := envelope.DecodeOne[domain.Field](body, "field")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("unexpected response shape")
		return nil, fmt.Errorf("get field %d: %w", id, err)
	}
	return &one.Value, nil
}

var _ CatalogUseCase = (*CatalogService)(nil)
