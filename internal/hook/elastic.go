package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/raphi011/pinpoint/internal/model"
)

// ElasticSearchHook indexes the outcome of every finished test into an
// elasticsearch index.
type ElasticSearchHook struct {
	client   *elasticsearch.Client
	index    string
	instance string
	timeout  time.Duration

	log *slog.Logger
}

// resultDocument is the document indexed per finished test.
type resultDocument struct {
	Class     string       `json:"class"`
	Method    string       `json:"method"`
	Test      string       `json:"test"`
	Status    model.Status `json:"status"`
	Message   string       `json:"message,omitempty"`
	Logs      string       `json:"logs,omitempty"`
	Instance  string       `json:"instance,omitempty"`
	Timestamp time.Time    `json:"@timestamp"`
}

func NewElasticSearchHook(url, index, instance string, log *slog.Logger) (*ElasticSearchHook, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return &ElasticSearchHook{
		client:   client,
		index:    index,
		instance: instance,
		timeout:  10 * time.Second,
		log:      log,
	}, nil
}

func (h *ElasticSearchHook) Name() string {
	return "elastic-search"
}

// Init makes sure the cluster is reachable.
func (h *ElasticSearchHook) Init() error {
	res, err := h.client.Info()
	if err != nil {
		return fmt.Errorf("connecting to elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("connecting to elasticsearch: %s", res.Status())
	}

	return nil
}

func (h *ElasticSearchHook) TestFinishedAsync(d model.Description, o model.Outcome) {
	if err := h.indexResult(d, o); err != nil {
		h.log.Error("unable to index test result", "error", err, "test", d.String())
	}
}

func (h *ElasticSearchHook) indexResult(d model.Description, o model.Outcome) error {
	var buf bytes.Buffer

	doc := resultDocument{
		Class:     d.Class,
		Method:    d.Method,
		Test:      d.String(),
		Status:    o.Status,
		Message:   o.Message,
		Logs:      o.Logs,
		Instance:  h.instance,
		Timestamp: time.Now(),
	}

	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	res, err := h.client.Index(
		h.index,
		&buf,
		h.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("indexing document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing document: %s", res.Status())
	}

	return nil
}
