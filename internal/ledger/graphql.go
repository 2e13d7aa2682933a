package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const transactionsQuery = `query($tags: [TagFilter!], $first: Int) {
  transactions(tags: $tags, first: $first, sort: HEIGHT_DESC) {
    edges { node { tags { name value } } }
  }
}`

// DefaultPageSize is the page size used when a query does not set one.
// Only existence and the first match matter to callers.
const DefaultPageSize = 1

// GraphQLClient queries an Arweave-style GraphQL gateway.
type GraphQLClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewGraphQLClient creates a client for the gateway at baseURL.
func NewGraphQLClient(baseURL string, client *http.Client, logger *zap.Logger) *GraphQLClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &GraphQLClient{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/graphql",
		client:   client,
		logger:   logger,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Transactions struct {
			Edges []struct {
				Node struct {
					Tags []Tag `json:"tags"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"transactions"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *GraphQLClient) Query(ctx context.Context, q Query) ([]Record, error) {
	first := q.First
	if first <= 0 {
		first = DefaultPageSize
	}

	body, err := json.Marshal(graphQLRequest{
		Query: transactionsQuery,
		Variables: map[string]any{
			"tags":  q.Tags,
			"first": first,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf("%w: gateway returned %d", ErrIndexUnavailable, resp.StatusCode)
	}

	var decoded graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrIndexUnavailable, err)
	}

	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIndexUnavailable, decoded.Errors[0].Message)
	}

	edges := decoded.Data.Transactions.Edges
	records := make([]Record, 0, len(edges))

	for _, edge := range edges {
		records = append(records, Record{Tags: edge.Node.Tags})
	}

	c.logger.Debug("index query",
		zap.Int("filters", len(q.Tags)),
		zap.Int("matches", len(records)),
	)

	return records, nil
}

// Ping checks that the gateway answers at all.
func (c *GraphQLClient) Ping(ctx context.Context) error {
	_, err := c.Query(ctx, Query{Tags: []TagFilter{Match(TagAppName, "health-check")}})

	return err
}

// Compile-time check.
var _ Querier = (*GraphQLClient)(nil)
