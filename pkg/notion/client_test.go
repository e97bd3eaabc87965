package notion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport redirects every request at the test server so the
// client can be exercised without touching api.notion.com.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return NewClient("secret-token",
		WithHTTPClient(&http.Client{Transport: rewriteTransport{target: target}}),
		WithRateLimit(0),
	)
}

func TestCreatePage(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/pages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"page","id":"page-123"}`))
	})

	page, err := c.CreatePage(context.Background(), &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: "db-1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "page-123", string(page.ID))
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestUpdatePage_ErrorWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"object":"error","status":500,"code":"internal_server_error","message":"boom"}`, http.StatusInternalServerError)
	})

	_, err := c.UpdatePage(context.Background(), "page-123", &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: update page page-123")
}

func TestQueryDatabase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/databases/db-1/query", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","results":[{"object":"page","id":"page-9"}],"has_more":false}`))
	})

	resp, err := c.QueryDatabase(context.Background(), "db-1", &notionapi.DatabaseQueryRequest{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "page-9", string(resp.Results[0].ID))
}
