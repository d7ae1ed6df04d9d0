package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"taskline/infra/tracing"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/elastic/go-elasticsearch/v7/estransport"
	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	SearchFunc             = Search
	IndexFunc              = Index
	DropIndexFunc          = DropIndex
	DeleteDocumentByIdFunc = DeleteDocumentById
)

type H map[string]interface{}

const (
	DeleteResultDeleted  = "deleted"
	DeleteResultNotFound = "not_found"
)

type ESDeleteResult struct {
	Index string `json:"_index"`
	Id    string `json:"_id"`

	Version int `json:"_version"`

	Result string         `json:"result"` // deleted, not_found
	Shards ESSearchShards `json:"_shards"`
}

type ESSearchResult struct {
	Took    int            `json:"took"`
	TimeOut bool           `json:"timed_out"`
	Shards  ESSearchShards `json:"_shards"`
	Hits    ESSearchHits   `json:"hits"`
}
type ESSearchShards struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
type ESSearchHits struct {
	Total    ESSearchHitsTotal `json:"total"`
	MaxScore float64           `json:"max_score"`
	Hits     []ESSearchHit     `json:"hits"`
}
type ESSearchHitsTotal struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}
type ESSearchHit struct {
	Index string `json:"_index"`
	Id    string `json:"_id"`

	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// ActiveESClient is nil until Configure runs; the index stays disabled without addresses.
var ActiveESClient *elasticsearch.Client

func Configure(addresses []string) (*elasticsearch.Client, error) {
	debug := logrus.IsLevelEnabled(logrus.DebugLevel)
	conf := elasticsearch.Config{
		Addresses: addresses,
		Logger:    &estransport.TextLogger{Output: os.Stdout, EnableRequestBody: debug, EnableResponseBody: debug},
		Transport: &tracing.TracingTransport{Transport: http.DefaultTransport},
	}
	client, err := elasticsearch.NewClient(conf)
	if err != nil {
		return nil, err
	}

	ActiveESClient = client
	return client, nil
}

func DropIndex(ctx context.Context, index string) error {
	req := esapi.IndicesDeleteRequest{
		Index:             []string{index},
		IgnoreUnavailable: esapi.BoolPtr(true),
	}

	res, err := req.Do(ctx, ActiveESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error response status %s", res.Status())
	}
	logrus.Debugln(res.String())
	return nil
}

func Index(ctx context.Context, index string, id types.ID, doc interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id.String(),
		Body:       bytes.NewReader(buf.Bytes()),
		Refresh:    "true",
	}

	logrus.Debugln("saved document body:", buf.String())
	res, err := req.Do(ctx, ActiveESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error response status %s", res.Status())
	}
	logrus.Debugln(res.String())
	return nil
}

func Search(ctx context.Context, index string, query interface{}) (*ESSearchResult, error) {
	var q bytes.Buffer
	if err := json.NewEncoder(&q).Encode(query); err != nil {
		return nil, err
	}

	res, err := ActiveESClient.Search(
		ActiveESClient.Search.WithContext(ctx),
		ActiveESClient.Search.WithIndex(index),
		ActiveESClient.Search.WithBody(&q),
		ActiveESClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", index, res.String())
	}

	r := ESSearchResult{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteDocumentById treats a missing document as deleted.
func DeleteDocumentById(ctx context.Context, index string, id types.ID) error {
	res, err := ActiveESClient.Delete(index, id.String(),
		ActiveESClient.Delete.WithRefresh("true"),
		ActiveESClient.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	logrus.Debugln("delete document response body: ", string(body))
	result := ESDeleteResult{}
	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}
	if result.Result == DeleteResultDeleted || result.Result == DeleteResultNotFound {
		return nil
	}
	return fmt.Errorf("delete error on elasticsearch: %v", string(body))
}
