// Package elasticsearch stores mirror documents in an Elasticsearch index and
// uses sequence numbers for conditional replaces.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/CarCatalog/internal/mirror"
)

// Store is an Elasticsearch-backed implementation of mirror.Store.
type Store struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// esWriteResponse is returned by the create and index APIs.
type esWriteResponse struct {
	SeqNo       int64 `json:"_seq_no"`
	PrimaryTerm int64 `json:"_primary_term"`
}

type esGetResponse struct {
	Found       bool            `json:"found"`
	SeqNo       int64           `json:"_seq_no"`
	PrimaryTerm int64           `json:"_primary_term"`
	Source      mirror.Document `json:"_source"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// Config locates the cluster and the index holding the car documents.
type Config struct {
	URL string
	// APIKey is the base64 encoded API key; empty means no authentication.
	APIKey string
	// Index defaults to DefaultIndexName.
	Index string
}

// New connects to the cluster and makes sure the index exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	s := &Store{client: client, indexName: indexName, logger: logger}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusOK {
		s.logger.Info("elasticsearch index already exists", "index", s.indexName)
		return nil
	}

	res, err = s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Another instance may have created it in the meantime.
	if res.IsError() {
		errResp := decodeError(res)
		if errResp.Error.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("create index: %s", describe(res, errResp))
	}

	s.logger.Info("elasticsearch index created", "index", s.indexName)
	return nil
}

// DeleteIndex drops the whole index. A missing index is not an error.
func (s *Store) DeleteIndex(ctx context.Context) error {
	res, err := s.client.Indices.Delete([]string{s.indexName}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch delete index: %s", describe(res, decodeError(res)))
	}
	return nil
}

func (s *Store) Create(ctx context.Context, doc *mirror.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch create: marshal document: %w", err)
	}

	res, err := s.client.Create(
		s.indexName,
		doc.ID,
		bytes.NewReader(data),
		s.client.Create.WithRefresh("true"),
		s.client.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusConflict {
		return mirror.ErrDocumentExists
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch create: %s", describe(res, decodeError(res)))
	}

	rev, err := decodeWrite(res)
	if err != nil {
		return fmt.Errorf("elasticsearch create: %w", err)
	}
	doc.Rev = rev
	s.logger.Debug("mirrored car document created", "id", doc.ID, "version", doc.Version)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*mirror.Document, error) {
	res, err := s.client.Get(s.indexName, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, mirror.ErrDocumentNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch get: %s", describe(res, decodeError(res)))
	}

	var body esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if !body.Found {
		return nil, mirror.ErrDocumentNotFound
	}
	doc := body.Source
	doc.Rev = mirror.Revision{Seq: body.SeqNo, Term: body.PrimaryTerm}
	return &doc, nil
}

func (s *Store) Replace(ctx context.Context, doc *mirror.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch replace: marshal document: %w", err)
	}

	res, err := s.client.Index(
		s.indexName,
		bytes.NewReader(data),
		s.client.Index.WithDocumentID(doc.ID),
		s.client.Index.WithIfSeqNo(int(doc.Rev.Seq)),
		s.client.Index.WithIfPrimaryTerm(int(doc.Rev.Term)),
		s.client.Index.WithRefresh("true"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch replace: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// A conditional index of a deleted id also answers 409, so tell the two
	// apart with a follow-up read.
	if res.StatusCode == http.StatusConflict {
		if _, getErr := s.Get(ctx, doc.ID); errors.Is(getErr, mirror.ErrDocumentNotFound) {
			return mirror.ErrDocumentNotFound
		}
		return mirror.ErrVersionConflict
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch replace: %s", describe(res, decodeError(res)))
	}

	rev, err := decodeWrite(res)
	if err != nil {
		return fmt.Errorf("elasticsearch replace: %w", err)
	}
	doc.Rev = rev
	s.logger.Debug("mirrored car document replaced", "id", doc.ID, "version", doc.Version)
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.client.Delete(
		s.indexName,
		id,
		s.client.Delete.WithRefresh("true"),
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return mirror.ErrDocumentNotFound
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch delete: %s", describe(res, decodeError(res)))
	}

	s.logger.Debug("mirrored car document deleted", "id", id)
	return nil
}

func decodeWrite(res *esapi.Response) (mirror.Revision, error) {
	var body esWriteResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return mirror.Revision{}, fmt.Errorf("decode response: %w", err)
	}
	return mirror.Revision{Seq: body.SeqNo, Term: body.PrimaryTerm}, nil
}

func decodeError(res *esapi.Response) esErrorResponse {
	var errResp esErrorResponse
	_ = json.NewDecoder(res.Body).Decode(&errResp)
	return errResp
}

func describe(res *esapi.Response, errResp esErrorResponse) string {
	if errResp.Error.Type == "" {
		return "unexpected status " + res.Status()
	}
	return errResp.Error.Type + ": " + errResp.Error.Reason
}
