package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-mercari/listing/internal/listing"
	"github.com/simple-mercari/listing/internal/mercari"
	"github.com/simple-mercari/listing/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testAPIURL   = "http://127.0.0.1:9000"
	testFrontURL = "http://localhost:3000"
)

type testEnv struct {
	server   *Server
	store    *storage.SQLiteStore
	imageDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "mercari.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	imageDir := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(imageDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(imageDir, DefaultImageName), []byte("default"), 0644))

	return testEnv{
		server: New(Options{
			Store:    store,
			ImageDir: imageDir,
			APIURL:   testAPIURL,
			FrontURL: testFrontURL,
		}),
		store:    store,
		imageDir: imageDir,
	}
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func multipartItem(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		part.Write(data)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/items", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "Hello, world!"}, decode(t, w))
}

func TestAddItem(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(multipartItem(t, map[string]string{"name": "jacket", "category": "fashion"}, "jacket.jpg", []byte("jpegdata")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "item received: jacket"}, decode(t, w))

	hashed, err := hashImageName("jacket.jpg")
	require.NoError(t, err)
	saved, err := os.ReadFile(filepath.Join(env.imageDir, hashed))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegdata"), saved)

	items, err := env.store.ListItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "jacket", items[0].Name)
	assert.Equal(t, "fashion", items[0].Category)
	assert.Equal(t, hashed, items[0].Image)
}

func TestAddItem_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{"missing name", map[string]string{"category": "fashion"}, "a.jpg"},
		{"missing category", map[string]string{"name": "jacket"}, "a.jpg"},
		{"missing image", map[string]string{"name": "jacket", "category": "fashion"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(multipartItem(t, tt.fields, tt.filename, []byte("x")))
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}

	items, err := env.store.ListItems()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddItem_EmptyNameAccepted(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(multipartItem(t, map[string]string{"name": "", "category": ""}, "a.jpg", []byte("x")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddItem_FilenameWithoutExtension(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(multipartItem(t, map[string]string{"name": "jacket", "category": "fashion"}, "jacket", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListItems(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.AddItem("jacket", "fashion", "a.jpg")
	require.NoError(t, err)

	w := env.do(httptest.NewRequest(http.MethodGet, "/items", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body itemsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, itemsResponse{Items: []itemResponse{
		{Name: "jacket", Category: "fashion", Image: testAPIURL + "/image/" + itoa(id) + ".jpg"},
	}}, body)
}

func TestListItems_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/items", nil))
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestGetItem(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.AddItem("jacket", "fashion", "a.jpg")
	require.NoError(t, err)

	w := env.do(httptest.NewRequest(http.MethodGet, "/items/"+itoa(id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{
		"name":     "jacket",
		"category": "fashion",
		"image":    testAPIURL + "/image/" + itoa(id) + ".jpg",
	}, decode(t, w))
}

func TestGetItem_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/items/7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"blue jacket", "kettle"} {
		_, err := env.store.AddItem(name, "misc", "a.jpg")
		require.NoError(t, err)
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/search?keyword=jack", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[{"name":"blue jacket","category":"misc"}]}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestImage(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.imageDir, "stored.jpg"), []byte("stored"), 0644))
	id, err := env.store.AddItem("jacket", "fashion", "stored.jpg")
	require.NoError(t, err)

	w := env.do(httptest.NewRequest(http.MethodGet, "/image/"+itoa(id)+".jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stored", w.Body.String())
}

func TestImage_UnknownItemServesDefault(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/image/99.jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", w.Body.String())
}

func TestImage_RequiresJPGSuffix(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/image/1.png", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Image path does not end with .jpg", decode(t, w)["detail"])
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/items", nil)
	req.Header.Set("Origin", testFrontURL)
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testFrontURL, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	w = env.do(req)
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))
}

func TestHashImageName(t *testing.T) {
	hashed, err := hashImageName("jacket.jpg")
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("jacket"))
	assert.Equal(t, hex.EncodeToString(sum[:])+".jpg", hashed)

	again, err := hashImageName("/tmp/uploads/jacket.jpg")
	require.NoError(t, err)
	assert.Equal(t, hashed, again)

	_, err = hashImageName(".jpg")
	assert.Error(t, err)
}

// A listing submitted through the form lands in the store.
func TestListingSubmission_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	form := listing.NewForm(mercari.NewClient(mercari.ClientOpts{BaseURL: ts.URL, Origin: testFrontURL}))
	form.Change(listing.FieldName, "jacket")
	form.Change(listing.FieldCategory, "fashion")
	form.SelectImage([]listing.Image{{Filename: "jacket.jpg", ContentType: "image/jpeg", Data: []byte("jpegdata")}})

	assert.Equal(t, listing.ResultPosted, form.Submit(context.Background()))

	client := mercari.NewClient(mercari.ClientOpts{BaseURL: ts.URL})
	items, err := client.SearchItems(context.Background(), "jack")
	require.NoError(t, err)
	assert.Equal(t, []mercari.Item{{Name: "jacket", Category: "fashion"}}, items.Items)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
