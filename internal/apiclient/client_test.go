package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) ExpireSession(context.Context) {
	s.mu.Lock()
	s.expired++
	s.token = ""
	s.mu.Unlock()
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *fakeSession) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sess := &fakeSession{token: "tok-1"}
	return New(Config{BaseURL: srv.URL + "/"}, sess), sess
}

func TestURLResolution(t *testing.T) {
	c := New(Config{BaseURL: "http://shop.local/"}, nil)
	assert.Equal(t, "http://shop.local/api/notifications/low-stock", c.URL("/notifications/low-stock"))
	assert.Equal(t, "http://shop.local/api/auth/me", c.URL("auth/me"))
	assert.Equal(t, "https://cdn.example/x.pdf", c.URL("https://cdn.example/x.pdf"))
}

func TestGetAttachesBearerAndDecodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/low-stock", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"unread_count":2,"alerts":[]}`)
	})

	var out struct {
		UnreadCount int `json:"unread_count"`
	}
	require.NoError(t, c.Get(context.Background(), "/notifications/low-stock", &out))
	assert.Equal(t, 2, out.UnreadCount)
}

func TestNoTokenNoAuthorizationHeader(t *testing.T) {
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	sess.token = ""
	require.NoError(t, c.Post(context.Background(), "/notifications/low-stock/read-all", nil, nil))
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"token expired"}`)
	})

	err := c.Get(context.Background(), "/auth/me", nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, "Session expired", err.Error())
	assert.Equal(t, 1, sess.expired)
	assert.Empty(t, sess.Token())
}

func TestErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", 400, `{"error":"bad id","message":"ignored"}`, "bad id"},
		{"message field", 409, `{"message":"already read"}`, "already read"},
		{"plain text", 500, `upstream down`, "upstream down"},
		{"empty body", 404, ``, "Not Found"},
		{"empty json", 503, `{}`, "Service Unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			err := c.Get(context.Background(), "/x", nil)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr), "err = %v", err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Zero(t, sess.expired)
		})
	}
}

func TestPostEncodesJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "amina", body["username"])
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	v, err := c.Request(context.Background(), "/auth/login", Options{Method: "post", Body: map[string]string{"username": "amina"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, v)
}

func TestRequestNonJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	v, err := c.Request(context.Background(), "/ping", Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "pong"}, v)
}

func TestFormBodyKeepsItsContentType(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "linen"))
	require.NoError(t, mw.Close())

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, mw.FormDataContentType(), r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "linen", r.FormValue("name"))
		w.WriteHeader(http.StatusCreated)
	})
	err := c.Do(context.Background(), "/inventory", Options{
		Method: http.MethodPost,
		Body:   FormBody{ContentType: mw.FormDataContentType(), Body: &buf},
	}, nil)
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":4,"username":"khalid","full_name":"Khalid Omar","role":"cashier"}`)
	})
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.ID)
	assert.Equal(t, "Khalid Omar", u.FullName)
}

func TestRequestBlob(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/invoices/1/pdf":
			assert.Empty(t, r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(pdf)
		case "/api/invoices/2/pdf":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	ctx := context.Background()

	blob, err := c.RequestBlob(ctx, "/invoices/1/pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", blob.ContentType)
	assert.Equal(t, pdf, blob.Data)

	_, err = c.RequestBlob(ctx, "/invoices/2/pdf")
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Equal(t, "Download failed", err.Error())

	_, err = c.RequestBlob(ctx, "/invoices/3/pdf")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, sess.expired)
}
