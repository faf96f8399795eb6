package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/optimizer"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const schemaCSV = "Day,Hour,Total_Vehicles,Signal_1_Vehicles,Signal_1_Green,Signal_2_Vehicles,Signal_2_Green,Avg_Queue_Length,Avg_Delay_Time\n" +
	"Monday,8,300,120,45,180,30,15.7,42.3\n" +
	"Monday,12,500,200,50,300,35,20,50\n" +
	"Tuesday,9,250,100,40,150,30,10,30"

type testEnv struct {
	router   *gin.Engine
	auth     *services.AuthService
	sessions *session.MemoryProvider
	sid      string
	token    string
}

type envOption func(*config.Config, *Deps)

func withQuota(quota int) envOption {
	return func(_ *config.Config, d *Deps) {
		d.Sessions = session.NewMemoryProvider(quota)
	}
}

func newTestEnv(t *testing.T, optimizerURL string, fallback bool, opts ...envOption) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{MaxUploadMB: 1},
		CORS:   config.CORSConfig{AllowedOrigins: "*"},
	}
	client := optimizer.NewClient(config.OptimizerConfig{
		BaseURL:      optimizerURL,
		Timeout:      2 * time.Second,
		MockFallback: fallback,
	}).WithMock(optimizer.NewMock(rand.NewPCG(1, 2)))

	auth := services.NewAuthService(config.JWTConfig{Secret: "test", ExpiryHours: 1})
	deps := Deps{
		Auth:      auth,
		Sessions:  session.NewMemoryProvider(0),
		Optimizer: client,
		Ledger:    services.NewRunLedger(nil),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	sid, token, _, err := auth.NewSession()
	require.NoError(t, err)
	return &testEnv{
		router:   NewRouter(cfg, deps),
		auth:     auth,
		sessions: deps.Sessions.(*session.MemoryProvider),
		sid:      sid,
		token:    token,
	}
}

func (e *testEnv) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path string, v any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(v)
	return e.do(http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// multipartForm builds a form with the given fields and, when filename is
// set, a file part named "file".
func multipartForm(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// refusedURL returns the address of a server that has already shut down.
func refusedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

// oversizeCSV is twice the 1 MB upload limit of newTestEnv.
func oversizeCSV() string {
	row := "Monday,8,300,120,45,180,30,15.7,42.3\n"
	return "Day,Hour,Total_Vehicles,Signal_1_Vehicles,Signal_1_Green,Signal_2_Vehicles,Signal_2_Green,Avg_Queue_Length,Avg_Delay_Time\n" +
		strings.Repeat(row, (2<<20)/len(row)+1)
}
