package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/L-Ayim/Vault/internal/database"
	"github.com/L-Ayim/Vault/internal/handlers"
	"github.com/L-Ayim/Vault/internal/services"
	"github.com/L-Ayim/Vault/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubStore struct{}

func (stubStore) Save(ctx context.Context, name string, payload io.Reader, size int64) (storage.Handle, error) {
	if _, err := io.Copy(io.Discard, payload); err != nil {
		return storage.Handle{}, err
	}
	key := "test/" + uuid.New().String() + "-" + name
	return storage.Handle{Key: key, URL: "stub://" + key}, nil
}

func (stubStore) ResolveURL(ctx context.Context, key string) (string, error) {
	return "stub://" + key, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store := stubStore{}
	accountHandler := handlers.NewAccountHandler(services.NewAccountService(db))
	groupHandler := handlers.NewGroupHandler(services.NewGroupService(db, nil))
	fileHandler := handlers.NewFileHandler(services.NewFileService(db, store, nil, nil))
	nodeHandler := handlers.NewNodeHandler(services.NewNodeService(db, nil, nil))
	chatHandler := handlers.NewChatHandler(services.NewChatService(db, store, nil))

	r := gin.New()
	SetupRouter(r, db, accountHandler, groupHandler, fileHandler, nodeHandler, chatHandler)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

type apiResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

func register(t *testing.T, client *resty.Client, username string) string {
	t.Helper()
	var out apiResponse
	resp, err := client.R().
		SetBody(map[string]string{"username": username, "password": "longenoughpw"}).
		SetResult(&out).
		Post("/api/v1/auth/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	token, _ := out.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthFlow(t *testing.T) {
	server := newTestServer(t)
	client := resty.New().SetBaseURL(server.URL)

	token := register(t, client, "alice")

	// Protected routes reject anonymous callers.
	resp, err := client.R().Get("/api/v1/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	var me apiResponse
	resp, err = client.R().
		SetAuthToken(token).
		SetResult(&me).
		Get("/api/v1/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var login apiResponse
	resp, err = client.R().
		SetBody(map[string]string{"username": "alice", "password": "longenoughpw"}).
		SetResult(&login).
		Post("/api/v1/auth/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = client.R().
		SetBody(map[string]string{"username": "alice", "password": "wrong"}).
		Post("/api/v1/auth/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestPublicNodeVisibleWithoutToken(t *testing.T) {
	server := newTestServer(t)
	client := resty.New().SetBaseURL(server.URL)

	token := register(t, client, "owner")

	var created apiResponse
	resp, err := client.R().
		SetAuthToken(token).
		SetBody(map[string]string{"name": "shared board", "description": ""}).
		SetResult(&created).
		Post("/api/v1/nodes")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	nodeID, _ := created.Data["id"].(string)
	require.NotEmpty(t, nodeID)

	// Before sharing, the node does not exist for anonymous callers.
	resp, err = client.R().Get("/api/v1/nodes/" + nodeID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = client.R().
		SetAuthToken(token).
		SetBody(map[string]interface{}{"public": true, "permission": "read"}).
		Post(fmt.Sprintf("/api/v1/nodes/%s/share", nodeID))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	resp, err = client.R().Get("/api/v1/nodes/" + nodeID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var listing struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
		Error   string      `json:"error"`
	}
	resp, err = client.R().SetResult(&listing).Get("/api/v1/nodes/public")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestFileUploadAndDownloadURL(t *testing.T) {
	server := newTestServer(t)
	client := resty.New().SetBaseURL(server.URL)

	token := register(t, client, "uploader")

	var uploaded apiResponse
	resp, err := client.R().
		SetAuthToken(token).
		SetFileReader("file", "notes.txt", strings.NewReader("hello")).
		SetResult(&uploaded).
		Post("/api/v1/files")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	fileData, _ := uploaded.Data["file"].(map[string]interface{})
	fileID, _ := fileData["id"].(string)
	require.NotEmpty(t, fileID)

	var download apiResponse
	resp, err = client.R().
		SetAuthToken(token).
		SetResult(&download).
		Get(fmt.Sprintf("/api/v1/files/%s/download", fileID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	url, _ := download.Data["url"].(string)
	assert.NotEmpty(t, url)

	// A second account cannot see the file.
	otherToken := register(t, client, "other")
	resp, err = client.R().
		SetAuthToken(otherToken).
		Get("/api/v1/files/" + fileID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}
