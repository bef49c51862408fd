package telegraph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// cannedServer answers every request with status and body and records the
// last request path and decoded JSON body.
type cannedServer struct {
	*httptest.Server
	path string
	body map[string]interface{}
}

func newCannedServer(t *testing.T, status int, body string) *cannedServer {
	t.Helper()
	cs := &cannedServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected Content-Type: %s", ct)
		}
		cs.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		cs.body = nil
		if err := json.Unmarshal(raw, &cs.body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(append([]Option{WithBaseURL(baseURL)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

var sampleContent = []Node{Element("p", nil, Text("Hello"))}

// operations invokes each API method with a minimal valid request and returns
// its result for comparison.
var operations = []struct {
	name string
	path string
	call func(c *Client) (interface{}, error)
}{
	{"createAccount", "/createAccount", func(c *Client) (interface{}, error) {
		return c.CreateAccount(context.Background(), CreateAccountRequest{ShortName: "Sandbox"})
	}},
	{"editAccountInfo", "/editAccountInfo", func(c *Client) (interface{}, error) {
		return c.EditAccountInfo(context.Background(), EditAccountInfoRequest{AccessToken: "tok", AuthorName: String("Anon")})
	}},
	{"getAccountInfo", "/getAccountInfo", func(c *Client) (interface{}, error) {
		return c.GetAccountInfo(context.Background(), GetAccountInfoRequest{AccessToken: "tok"})
	}},
	{"revokeAccessToken", "/revokeAccessToken", func(c *Client) (interface{}, error) {
		return c.RevokeAccessToken(context.Background(), RevokeAccessTokenRequest{AccessToken: "tok"})
	}},
	{"createPage", "/createPage", func(c *Client) (interface{}, error) {
		return c.CreatePage(context.Background(), CreatePageRequest{AccessToken: "tok", Title: "Title", Content: sampleContent})
	}},
	{"editPage", "/editPage", func(c *Client) (interface{}, error) {
		return c.EditPage(context.Background(), EditPageRequest{AccessToken: "tok", Path: "Title-01-01", Title: "Title", Content: sampleContent})
	}},
	{"getPage", "/getPage", func(c *Client) (interface{}, error) {
		return c.GetPage(context.Background(), GetPageRequest{Path: "Title-01-01"})
	}},
	{"getPageList", "/getPageList", func(c *Client) (interface{}, error) {
		return c.GetPageList(context.Background(), GetPageListRequest{AccessToken: "tok"})
	}},
	{"getViews", "/getViews", func(c *Client) (interface{}, error) {
		return c.GetViews(context.Background(), GetViewsRequest{Path: "Title-01-01"})
	}},
}

func TestNewClient(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("expected baseURL %q, got %q", DefaultBaseURL, client.baseURL)
	}
	if client.uploadURL != DefaultUploadURL {
		t.Errorf("expected uploadURL %q, got %q", DefaultUploadURL, client.uploadURL)
	}
	if client.httpClient == nil || client.httpClient.Timeout != DefaultTimeout {
		t.Error("expected default http client with timeout")
	}
	if client.logger == nil || client.localFilename == nil {
		t.Error("expected default logger and filename func")
	}
}

func TestNewClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
	}{
		{"valid base url", WithBaseURL("http://localhost:8080/"), false},
		{"invalid base url", WithBaseURL("not a url"), true},
		{"invalid upload url", WithUploadURL(""), true},
		{"nil http client", WithHTTPClient(nil), true},
		{"nil logger", WithLogger(nil), true},
		{"nil filename func", WithLocalFilenames(nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.opt)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}

	client, _ := NewClient(WithBaseURL("http://localhost:8080/"))
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash to be trimmed, got %q", client.baseURL)
	}
}

func TestOperationsReturnResult(t *testing.T) {
	results := map[string]string{
		"createAccount":     `{"short_name":"Sandbox","author_name":"Anon","author_url":"","access_token":"abc","auth_url":"https://edit.telegra.ph/auth/x"}`,
		"editAccountInfo":   `{"short_name":"Sandbox","author_name":"Anon","author_url":""}`,
		"getAccountInfo":    `{"short_name":"Sandbox","author_name":"Anon","author_url":"","page_count":3}`,
		"revokeAccessToken": `{"short_name":"Sandbox","author_name":"Anon","author_url":"","access_token":"new","auth_url":"https://edit.telegra.ph/auth/y"}`,
		"createPage":        `{"path":"Title-01-01","url":"https://telegra.ph/Title-01-01","title":"Title","description":"Hello","views":0,"can_edit":true}`,
		"editPage":          `{"path":"Title-01-01","url":"https://telegra.ph/Title-01-01","title":"Title","description":"Hello","content":[{"tag":"p","children":["Hello"]}],"views":2}`,
		"getPage":           `{"path":"Title-01-01","url":"https://telegra.ph/Title-01-01","title":"Title","description":"Hello","author_name":"Anon","views":7}`,
		"getPageList":       `{"total_count":1,"pages":[{"path":"Title-01-01","url":"https://telegra.ph/Title-01-01","title":"Title","description":"","views":1}]}`,
		"getViews":          `{"views":42}`,
	}

	for _, op := range operations {
		t.Run(op.name, func(t *testing.T) {
			want := results[op.name]
			server := newCannedServer(t, http.StatusOK, `{"ok":true,"result":`+want+`}`)
			client := newTestClient(t, server.URL)

			got, err := op.call(client)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if server.path != op.path {
				t.Errorf("expected path %s, got %s", op.path, server.path)
			}

			gotJSON, _ := json.Marshal(got)
			var gotValue, wantValue interface{}
			json.Unmarshal(gotJSON, &gotValue)
			json.Unmarshal([]byte(want), &wantValue)
			if !reflect.DeepEqual(gotValue, wantValue) {
				t.Errorf("result mismatch:\n got  %s\n want %s", gotJSON, want)
			}
		})
	}
}

func TestOperationsEnvelopeError(t *testing.T) {
	const body = `{"ok":false,"error":"ACCESS_TOKEN_INVALID"}`

	for _, op := range operations {
		t.Run(op.name, func(t *testing.T) {
			server := newCannedServer(t, http.StatusOK, body)
			client := newTestClient(t, server.URL)

			got, err := op.call(client)
			if err == nil {
				t.Fatalf("expected error, got result %v", got)
			}
			if !errors.Is(err, ErrRequest) {
				t.Errorf("expected ErrRequest, got %v", err)
			}

			var envErr *EnvelopeError
			if !errors.As(err, &envErr) {
				t.Fatalf("expected *EnvelopeError, got %T", err)
			}
			if string(envErr.Raw) != body {
				t.Errorf("expected raw body %s, got %s", body, envErr.Raw)
			}
			if envErr.Description != "ACCESS_TOKEN_INVALID" {
				t.Errorf("unexpected description: %s", envErr.Description)
			}
			if !strings.Contains(err.Error(), "ACCESS_TOKEN_INVALID") {
				t.Errorf("expected error message to carry the payload: %v", err)
			}
		})
	}
}

func TestOperationsTransportError(t *testing.T) {
	for _, op := range operations {
		t.Run(op.name, func(t *testing.T) {
			server := newCannedServer(t, http.StatusBadGateway, "bad gateway")
			client := newTestClient(t, server.URL)

			_, err := op.call(client)

			var trErr *TransportError
			if !errors.As(err, &trErr) {
				t.Fatalf("expected *TransportError, got %v", err)
			}
			if trErr.StatusCode != http.StatusBadGateway {
				t.Errorf("unexpected status code: %d", trErr.StatusCode)
			}
			if trErr.Status != "502 Bad Gateway" {
				t.Errorf("unexpected status: %s", trErr.Status)
			}
			if !errors.Is(err, ErrRequest) {
				t.Error("expected TransportError to match ErrRequest")
			}
		})
	}
}

func TestDefaultsAppliedToBody(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
		want map[string]interface{}
	}{
		{
			name: "getAccountInfo fields",
			call: func(c *Client) error {
				_, err := c.GetAccountInfo(context.Background(), GetAccountInfoRequest{AccessToken: "tok"})
				return err
			},
			want: map[string]interface{}{
				"access_token": "tok",
				"fields":       []interface{}{"short_name", "author_name", "author_url"},
			},
		},
		{
			name: "getAccountInfo explicit empty fields",
			call: func(c *Client) error {
				_, err := c.GetAccountInfo(context.Background(), GetAccountInfoRequest{AccessToken: "tok", Fields: []string{}})
				return err
			},
			want: map[string]interface{}{"access_token": "tok", "fields": []interface{}{}},
		},
		{
			name: "editAccountInfo clears author url",
			call: func(c *Client) error {
				_, err := c.EditAccountInfo(context.Background(), EditAccountInfoRequest{AccessToken: "tok", AuthorURL: String("")})
				return err
			},
			want: map[string]interface{}{"access_token": "tok", "author_url": ""},
		},
		{
			name: "getPageList offset and limit",
			call: func(c *Client) error {
				_, err := c.GetPageList(context.Background(), GetPageListRequest{AccessToken: "tok"})
				return err
			},
			want: map[string]interface{}{"access_token": "tok", "offset": float64(0), "limit": float64(50)},
		},
		{
			name: "getPageList explicit zero limit",
			call: func(c *Client) error {
				_, err := c.GetPageList(context.Background(), GetPageListRequest{AccessToken: "tok", Offset: Int(5), Limit: Int(0)})
				return err
			},
			want: map[string]interface{}{"access_token": "tok", "offset": float64(5), "limit": float64(0)},
		},
		{
			name: "getPage return_content",
			call: func(c *Client) error {
				_, err := c.GetPage(context.Background(), GetPageRequest{Path: "p"})
				return err
			},
			want: map[string]interface{}{"path": "p", "return_content": false},
		},
		{
			name: "getPage explicit return_content",
			call: func(c *Client) error {
				_, err := c.GetPage(context.Background(), GetPageRequest{Path: "p", ReturnContent: Bool(true)})
				return err
			},
			want: map[string]interface{}{"path": "p", "return_content": true},
		},
		{
			name: "createPage return_content",
			call: func(c *Client) error {
				_, err := c.CreatePage(context.Background(), CreatePageRequest{AccessToken: "tok", Title: "T", Content: []Node{Text("x")}})
				return err
			},
			want: map[string]interface{}{"access_token": "tok", "title": "T", "content": []interface{}{"x"}, "return_content": false},
		},
		{
			name: "editPage return_content",
			call: func(c *Client) error {
				_, err := c.EditPage(context.Background(), EditPageRequest{AccessToken: "tok", Path: "p", Title: "T", Content: []Node{Text("x")}})
				return err
			},
			want: map[string]interface{}{"access_token": "tok", "path": "p", "title": "T", "content": []interface{}{"x"}, "return_content": false},
		},
		{
			name: "getViews omits unset date",
			call: func(c *Client) error {
				_, err := c.GetViews(context.Background(), GetViewsRequest{Path: "p", Year: Int(2024), Month: Int(1)})
				return err
			},
			want: map[string]interface{}{"path": "p", "year": float64(2024), "month": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newCannedServer(t, http.StatusOK, `{"ok":true,"result":{}}`)
			client := newTestClient(t, server.URL)

			if err := tt.call(client); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(server.body, tt.want) {
				t.Errorf("unexpected body:\n got  %v\n want %v", server.body, tt.want)
			}
		})
	}
}

func TestDefaultsDoNotMutateCaller(t *testing.T) {
	req := GetPageListRequest{AccessToken: "tok"}
	_ = req.withDefaults()
	if req.Offset != nil || req.Limit != nil {
		t.Error("withDefaults mutated the caller's request")
	}

	info := GetAccountInfoRequest{AccessToken: "tok"}
	defaulted := info.withDefaults()
	defaulted.Fields[0] = "page_count"
	if DefaultAccountFields[0] != FieldShortName {
		t.Error("defaulted fields share storage with DefaultAccountFields")
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("x", 33)

	tests := []struct {
		name  string
		call  func(c *Client) error
		field string
	}{
		{"missing short_name", func(c *Client) error {
			_, err := c.CreateAccount(ctx, CreateAccountRequest{})
			return err
		}, "short_name"},
		{"long short_name", func(c *Client) error {
			_, err := c.CreateAccount(ctx, CreateAccountRequest{ShortName: long})
			return err
		}, "short_name"},
		{"missing access_token", func(c *Client) error {
			_, err := c.RevokeAccessToken(ctx, RevokeAccessTokenRequest{})
			return err
		}, "access_token"},
		{"unknown field", func(c *Client) error {
			_, err := c.GetAccountInfo(ctx, GetAccountInfoRequest{AccessToken: "tok", Fields: []string{"email"}})
			return err
		}, "fields"},
		{"missing content", func(c *Client) error {
			_, err := c.CreatePage(ctx, CreatePageRequest{AccessToken: "tok", Title: "T"})
			return err
		}, "content"},
		{"disallowed tag", func(c *Client) error {
			_, err := c.CreatePage(ctx, CreatePageRequest{AccessToken: "tok", Title: "T", Content: []Node{Element("script", nil)}})
			return err
		}, "content"},
		{"disallowed attribute", func(c *Client) error {
			_, err := c.CreatePage(ctx, CreatePageRequest{AccessToken: "tok", Title: "T", Content: []Node{Element("a", map[string]string{"onclick": "x"})}})
			return err
		}, "content"},
		{"missing path", func(c *Client) error {
			_, err := c.EditPage(ctx, EditPageRequest{AccessToken: "tok", Title: "T", Content: sampleContent})
			return err
		}, "path"},
		{"limit too large", func(c *Client) error {
			_, err := c.GetPageList(ctx, GetPageListRequest{AccessToken: "tok", Limit: Int(201)})
			return err
		}, "limit"},
		{"negative offset", func(c *Client) error {
			_, err := c.GetPageList(ctx, GetPageListRequest{AccessToken: "tok", Offset: Int(-1)})
			return err
		}, "offset"},
		{"year out of range", func(c *Client) error {
			_, err := c.GetViews(ctx, GetViewsRequest{Path: "p", Year: Int(1999)})
			return err
		}, "year"},
		{"month without year", func(c *Client) error {
			_, err := c.GetViews(ctx, GetViewsRequest{Path: "p", Month: Int(3)})
			return err
		}, "month"},
		{"hour without day", func(c *Client) error {
			_, err := c.GetViews(ctx, GetViewsRequest{Path: "p", Year: Int(2024), Month: Int(3), Hour: Int(0)})
			return err
		}, "hour"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request sent despite invalid input: %s", r.URL.Path)
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(client)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Errorf("expected field %s, got %v", tt.field, err)
			}
		})
	}
}

func TestMalformedEnvelope(t *testing.T) {
	server := newCannedServer(t, http.StatusOK, `not json`)
	client := newTestClient(t, server.URL)

	_, err := client.GetPage(context.Background(), GetPageRequest{Path: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRequest) {
		t.Error("decode failure should not be reported as a request error")
	}
}

func TestNodeJSON(t *testing.T) {
	nodes := []Node{
		Text("plain "),
		Element("a", map[string]string{"href": "https://example.com"}, Text("link")),
		Element("br", nil),
	}

	data, err := json.Marshal(nodes)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	want := `["plain ",{"tag":"a","attrs":{"href":"https://example.com"},"children":["link"]},{"tag":"br"}]`
	if string(data) != want {
		t.Errorf("unexpected JSON:\n got  %s\n want %s", data, want)
	}

	var decoded []Node
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, nodes) {
		t.Errorf("decoded nodes differ: %#v", decoded)
	}

	var n Node
	if err := json.Unmarshal([]byte(`42`), &n); err == nil {
		t.Error("expected error for numeric node")
	}
}
