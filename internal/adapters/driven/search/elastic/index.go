package elastic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	olivere "github.com/olivere/elastic/v7"
	"golang.org/x/time/rate"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// DefaultURL is used when Config.URLs is empty.
const DefaultURL = "http://127.0.0.1:9200"

// Config configures the Elasticsearch client.
type Config struct {
	// URLs of the cluster nodes.
	URLs []string

	// Username and Password enable basic auth when Username is set.
	Username string
	Password string

	// Sniff enables cluster node discovery.
	Sniff bool

	// Healthcheck enables background node health checks.
	Healthcheck bool

	// RequestsPerSecond caps outgoing requests. Zero disables the limit.
	RequestsPerSecond float64

	// Burst is the limiter's burst size. Defaults to 1.
	Burst int

	// Refresh is passed as the bulk refresh parameter when set
	// ("true", "false" or "wait_for").
	Refresh string
}

// Index is a driven.SearchIndex backed by Elasticsearch.
type Index struct {
	client  *olivere.Client
	limiter *rate.Limiter
	refresh string
	log     *slog.Logger
}

// Verify interface compliance.
var _ driven.SearchIndex = (*Index)(nil)

// NewIndex creates a client for cfg. No request is made until the first
// call unless sniffing or health checks are enabled.
func NewIndex(cfg Config) (*Index, error) {
	urls := cfg.URLs
	if len(urls) == 0 {
		urls = []string{DefaultURL}
	}

	opts := []olivere.ClientOptionFunc{
		olivere.SetURL(urls...),
		olivere.SetSniff(cfg.Sniff),
		olivere.SetHealthcheck(cfg.Healthcheck),
	}
	if cfg.Username != "" {
		opts = append(opts, olivere.SetBasicAuth(cfg.Username, cfg.Password))
	}

	client, err := olivere.NewClient(opts...)
	if err != nil {
		return nil, classify(context.Background(), "connect elasticsearch", err)
	}

	idx := &Index{
		client:  client,
		refresh: cfg.Refresh,
		log:     logger.With("component", "elastic"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		idx.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return idx, nil
}

// EnsureIndex creates the index with the mapping for kind if it is absent.
func (x *Index) EnsureIndex(ctx context.Context, name string, kind domain.EntityKind) (bool, error) {
	body, err := IndexBody(kind)
	if err != nil {
		return false, err
	}

	if err := x.wait(ctx); err != nil {
		return false, err
	}
	exists, err := x.client.IndexExists(name).Do(ctx)
	if err != nil {
		return false, classify(ctx, "check index "+name, err)
	}
	if exists {
		return false, nil
	}

	if err := x.wait(ctx); err != nil {
		return false, err
	}
	res, err := x.client.CreateIndex(name).BodyString(body).Do(ctx)
	if err != nil {
		if alreadyExists(err) {
			return false, nil
		}
		return false, classify(ctx, "create index "+name, err)
	}
	if !res.Acknowledged {
		x.log.Warn("index creation not acknowledged", "index", name)
	}
	x.log.Debug("index created", "index", name, "kind", kind)
	return true, nil
}

// Bulk upserts docs in one request. Documents the cluster refuses are
// reported as *domain.RejectionError in their result.
func (x *Index) Bulk(ctx context.Context, name string, docs []domain.Document) ([]domain.BulkItemResult, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := x.wait(ctx); err != nil {
		return nil, err
	}

	svc := x.client.Bulk()
	for _, doc := range docs {
		svc.Add(olivere.NewBulkIndexRequest().Index(name).Id(doc.DocumentID()).Doc(doc))
	}
	if x.refresh != "" {
		svc.Refresh(x.refresh)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, classify(ctx, "bulk "+name, err)
	}
	return itemResults(docs, resp), nil
}

// Close stops the client's background goroutines.
func (x *Index) Close() error {
	x.client.Stop()
	return nil
}

func (x *Index) wait(ctx context.Context) error {
	if x.limiter == nil {
		return nil
	}
	return x.limiter.Wait(ctx)
}

// itemResults pairs response items with docs by position; the bulk API
// answers in request order.
func itemResults(docs []domain.Document, resp *olivere.BulkResponse) []domain.BulkItemResult {
	results := make([]domain.BulkItemResult, len(docs))
	for i, doc := range docs {
		id := doc.DocumentID()
		results[i].ID = id

		if i >= len(resp.Items) {
			results[i].Err = &domain.RejectionError{ID: id, Reason: "missing from bulk response"}
			continue
		}
		item := firstItem(resp.Items[i])
		switch {
		case item == nil:
			results[i].Err = &domain.RejectionError{ID: id, Reason: "empty bulk response item"}
		case item.Error != nil:
			results[i].Err = &domain.RejectionError{
				ID:     id,
				Status: item.Status,
				Type:   item.Error.Type,
				Reason: item.Error.Reason,
			}
		case item.Status >= http.StatusMultipleChoices:
			results[i].Err = &domain.RejectionError{
				ID:     id,
				Status: item.Status,
				Reason: http.StatusText(item.Status),
			}
		}
	}
	return results
}

func firstItem(m map[string]*olivere.BulkResponseItem) *olivere.BulkResponseItem {
	if item, ok := m["index"]; ok {
		return item
	}
	for _, item := range m {
		return item
	}
	return nil
}

func alreadyExists(err error) bool {
	var e *olivere.Error
	if !errors.As(err, &e) || e.Details == nil {
		return false
	}
	return e.Details.Type == "resource_already_exists_exception"
}

// classify wraps err with op, marking transport failures, throttling and
// server-side 5xx responses as domain.ErrConnection.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() == nil && isConnectionError(err) {
		return domain.ConnectionError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionError(err error) bool {
	if olivere.IsConnErr(err) || olivere.IsTimeout(err) {
		return true
	}

	var e *olivere.Error
	if errors.As(err, &e) {
		return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
