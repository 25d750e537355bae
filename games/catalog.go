package games

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/datasapiens/cachier"
	mycache "github.com/sam80180/stardb-exporter/cache"
	"github.com/sam80180/stardb-exporter/internal/helper"
	"github.com/sam80180/stardb-exporter/tracing"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const DEFAULT_CATALOG_TTL = time.Hour

type catalogEntry struct {
	ID uint32 `json:"id"`
} // end type

// Catalog resolves the set of achievement ids a title knows about.
type Catalog struct {
	cache   *cachier.Cache[any]
	baseURL string
	file    string
	ttl     time.Duration
} // end type

type CatalogOption func(*Catalog)

func WithCatalogBaseURL(u string) CatalogOption {
	return func(c *Catalog) { c.baseURL = u }
} // end WithCatalogBaseURL()

// WithCatalogFile reads the catalog from disk instead of the network.
func WithCatalogFile(path string) CatalogOption {
	return func(c *Catalog) { c.file = path }
} // end WithCatalogFile()

func WithCatalogTTL(ttl time.Duration) CatalogOption {
	return func(c *Catalog) { c.ttl = ttl }
} // end WithCatalogTTL()

func NewCatalog(c *cachier.Cache[any], opts ...CatalogOption) *Catalog {
	that := &Catalog{cache: c, baseURL: CATALOG_BASE_URL, ttl: DEFAULT_CATALOG_TTL}
	for _, fn := range opts {
		fn(that)
	} // end for
	return that
} // end NewCatalog()

func parseCatalog(raw []byte) ([]uint32, error) {
	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("malformed achievement catalog: %w", err)
	} // end if
	return lo.Uniq(lo.Map(entries, func(e catalogEntry, _ int) uint32 { return e.ID })), nil
} // end parseCatalog()

func (that *Catalog) fetch(ctx context.Context, t Title) ([]byte, error) {
	if that.file != "" {
		return os.ReadFile(that.file)
	} // end if
	headers := map[string]string{"Accept": "application/json", "User-Agent": "stardb-exporter"}
	_, body, err := helper.HttpGetRequest[any](ctx, that.baseURL, t.CatalogPath, nil, &headers, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievement catalog: %w", err)
	} // end if
	return body, nil
} // end fetch()

// AchievementIDs returns the catalog ids of t. Network responses are cached for the catalog TTL.
func (that *Catalog) AchievementIDs(ctx context.Context, t Title) ([]uint32, error) {
	ctx, span := otel.Tracer(tracing.TRACER_NAME).Start(ctx, "catalog.achievements")
	defer span.End()
	span.SetAttributes(attribute.String("game", string(t.Game)))
	if that.file != "" || that.cache == nil {
		raw, err := that.fetch(ctx, t)
		if err != nil {
			return nil, err
		} // end if
		return parseCatalog(raw)
	} // end if
	key := fmt.Sprintf("catalog:%s%s", that.baseURL, t.CatalogPath)
	raw, hit, err := mycache.GetOrComputeValueWithTTL[string](that.cache, key, func() (*any, error) {
		body, errFetch := that.fetch(ctx, t)
		if errFetch != nil {
			return nil, errFetch
		} // end if
		var v any = string(body)
		return &v, nil
	}, that.ttl)
	if err != nil {
		return nil, err
	} // end if
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	ids, err := parseCatalog([]byte(*raw))
	if err != nil {
		return nil, err
	} // end if
	logrus.WithField("game", t.Game).WithField("cached", hit).Debugf("Achievement catalog holds %d ids", len(ids))
	return ids, nil
} // end AchievementIDs()
