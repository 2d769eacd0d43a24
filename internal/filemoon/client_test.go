package filemoon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/fmbot/internal/config"
)

// newTestClient starts a server that answers every request with handler and
// returns a client pointed at it
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.APIConfig{BaseURL: server.URL, Key: "secret-key", Timeout: 5})
	require.NoError(t, err)
	return client, server
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(&config.APIConfig{BaseURL: "not a url", Key: "k", Timeout: 1})
	assert.Error(t, err)
}

func TestClient_SendsKeyAndParameters(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"status":200,"msg":"OK","result":{"filecode":"abc123"}}`))
	})

	code, err := client.SubmitRemoteUpload(context.Background(), "https://example.com/a video.mp4?x=1&y=2", 42)
	require.NoError(t, err)
	assert.Equal(t, "abc123", code)

	assert.Equal(t, "/remote/add", gotPath)
	assert.Equal(t, []string{"secret-key"}, gotQuery["key"])
	assert.Equal(t, []string{"42"}, gotQuery["fld_id"])
	assert.Equal(t, []string{"https://example.com/a video.mp4?x=1&y=2"}, gotQuery["url"])
}

func TestClient_ListFolders(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(`{
		"status": 200,
		"msg": "OK",
		"result": {"folders": [
			{"fld_id": 7, "name": "Movies", "creation_date": "2024-03-01 10:00:00"},
			{"fld_id": "9", "name": "Shows", "creation_date": "2024-04-01 08:30:00"}
		]}
	}`))

	folders, err := client.ListFolders(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 2)

	assert.Equal(t, int64(7), folders[0].ID)
	assert.Equal(t, "Movies", folders[0].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), folders[0].CreatedAt)
	assert.Equal(t, int64(9), folders[1].ID)
}

func TestClient_ListFiles_EmptyResult(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(`{"status":200,"msg":"OK","result":{"files":null}}`))

	files, err := client.ListFiles(context.Background(), 3)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestClient_GetAccountInfo(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(`{
		"status": 200,
		"result": {
			"login": "alice", "email": "alice@example.com", "balance": "1.50",
			"files_total": "12", "storage_used": 5368709120, "storage_left": "inf",
			"premium": 1, "premium_expire": "2030-01-01"
		}
	}`))

	info, err := client.GetAccountInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Login)
	assert.Equal(t, "1.50", info.Balance)
	assert.Equal(t, FlexInt(12), info.FilesTotal)
	assert.Equal(t, FlexInt(5368709120), info.StorageUsed)
	assert.Equal(t, "inf", info.StorageLeft)
	assert.True(t, info.Premium)
}

func TestClient_GetUploadStatus(t *testing.T) {
	t.Run("records", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(`{"status":200,"msg":"OK","result":[{"progress":"55","status":"working"}]}`))

		status, err := client.GetUploadStatus(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "OK", status.Msg)
		require.Len(t, status.Records, 1)
		assert.Equal(t, FlexInt(55), status.Records[0].Progress)
		assert.Equal(t, "working", status.Records[0].Status)
	})

	t.Run("empty list", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(`{"status":200,"msg":"OK","result":[]}`))

		status, err := client.GetUploadStatus(context.Background(), "abc")
		require.NoError(t, err)
		assert.Empty(t, status.Records)
	})
}

func TestClient_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name        string
		handler     http.HandlerFunc
		wantKind    ErrorKind
		wantMessage string
	}{
		{
			name:        "envelope failure uses msg",
			handler:     jsonHandler(`{"status":403,"msg":"Wrong key"}`),
			wantKind:    KindProtocol,
			wantMessage: "Wrong key",
		},
		{
			name:        "envelope failure without msg uses fallback",
			handler:     jsonHandler(`{"status":500}`),
			wantKind:    KindProtocol,
			wantMessage: "Invalid operation",
		},
		{
			name:        "malformed json",
			handler:     jsonHandler(`<html>oops</html>`),
			wantKind:    KindProtocol,
			wantMessage: "Error decoding JSON response.",
		},
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantKind:    KindTransport,
			wantMessage: "502 Bad Gateway",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, tc.handler)

			err := client.RenameFolder(context.Background(), 1, "new")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.wantKind, apiErr.Kind)
			assert.Equal(t, "folder/rename", apiErr.Op)
			assert.Equal(t, tc.wantMessage, err.Error())
		})
	}
}

func TestClient_TransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := NewClient(&config.APIConfig{BaseURL: baseURL, Key: "secret-key", Timeout: 1})
	require.NoError(t, err)

	_, err = client.ListFolders(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsProtocol(err))
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestClient_TransportErrorLogHidesKey(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	hook := logtest.NewGlobal()
	t.Cleanup(func() { logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks)) })

	client, err := NewClient(&config.APIConfig{BaseURL: baseURL, Key: "secret-key", Timeout: 1})
	require.NoError(t, err)

	_, err = client.ListFolders(context.Background())
	require.Error(t, err)

	entries := hook.AllEntries()
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		line, err := entry.String()
		require.NoError(t, err)
		assert.NotContains(t, line, "secret-key")
	}
	assert.Contains(t, hook.LastEntry().Data["error"], "key=***")

	// the wrapped cause is scrubbed too
	assert.NotContains(t, errors.Unwrap(err).Error(), "secret-key")
}

func TestClient_GetBaseURL(t *testing.T) {
	client, err := NewClient(&config.APIConfig{BaseURL: "https://api.example.com/api/", Key: "k", Timeout: 1})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/", client.GetBaseURL())
}

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		in   string
		want FlexInt
	}{
		{`12`, 12},
		{`"12"`, 12},
		{`""`, 0},
		{`null`, 0},
		{`"99.0"`, 99},
	}

	for _, tc := range testCases {
		var n FlexInt
		require.NoError(t, n.UnmarshalJSON([]byte(tc.in)), tc.in)
		assert.Equal(t, tc.want, n, tc.in)
	}

	var n FlexInt
	assert.Error(t, n.UnmarshalJSON([]byte(`"abc"`)))
}
