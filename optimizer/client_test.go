package optimizer

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

func newTestClient(baseURL string, fallback bool) *Client {
	c := NewClient(config.OptimizerConfig{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		MockFallback: fallback,
	})
	return c.WithMock(NewMock(rand.NewPCG(1, 2)))
}

// refusedURL returns the address of a server that has already shut down.
func refusedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func fourWayRequest() models.OptimizationRequest {
	return models.OptimizationRequest{
		Topology:   models.FourWay,
		GreenTimes: []int{40, 30, 25, 35},
	}
}

func TestOptimizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathOptimize, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Four-Way", body["intersection_type"])
		assert.Equal(t, "red", body["color"])
		assert.Equal(t, []any{40.0, 30.0, 25.0, 35.0}, body["green_times"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"optimized_green_times":[42,28,"26",33],"estimated_delay_time":"41.5","estimated_queue_length":7,"intersection_type":"Four-Way"}`)
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, true).Optimize(t.Context(), fourWayRequest())
	require.NoError(t, err)
	assert.Equal(t, []int{42, 28, 26, 33}, result.OptimizedGreenTimes)
	assert.Equal(t, 41.5, result.EstimatedDelayTime)
	require.NotNil(t, result.EstimatedQueueLength)
	assert.Equal(t, 7.0, *result.EstimatedQueueLength)
	assert.Nil(t, result.OptimizedTravelTime)
	assert.Equal(t, models.SourceOptimizer, result.Source)
}

func TestOptimizeMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing green times", `{"estimated_delay_time":40}`},
		{"wrong channel count", `{"optimized_green_times":[1,2,3],"estimated_delay_time":40}`},
		{"non-integer green time", `{"optimized_green_times":[1,2,3,4.5],"estimated_delay_time":40}`},
		{"non-numeric string", `{"optimized_green_times":[1,2,3,"fast"],"estimated_delay_time":40}`},
		{"green times not array", `{"optimized_green_times":"1,2,3,4","estimated_delay_time":40}`},
		{"missing delay", `{"optimized_green_times":[1,2,3,4]}`},
		{"delay not numeric", `{"optimized_green_times":[1,2,3,4],"estimated_delay_time":"soon"}`},
		{"bad optional field", `{"optimized_green_times":[1,2,3,4],"estimated_delay_time":4,"estimated_queue_length":"long"}`},
		{"bad red times", `{"optimized_green_times":[1,2,3,4],"estimated_delay_time":4,"optimized_red_times":[1]}`},
		{"not an object", `[1,2,3,4]`},
		{"html", `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			result, err := newTestClient(srv.URL, true).Optimize(t.Context(), fourWayRequest())
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, result)
		})
	}
}

func TestOptimizeRemoteErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":"green_times out of range"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, true).Optimize(t.Context(), fourWayRequest())
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusUnprocessableEntity, remote.StatusCode)
	assert.Equal(t, `{"error":"green_times out of range"}`, string(remote.Body))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOptimizeInvalidRequestSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		req  models.OptimizationRequest
	}{
		{"too few channels", models.OptimizationRequest{Topology: models.FourWay, GreenTimes: []int{1, 2, 3}}},
		{"negative time", models.OptimizationRequest{Topology: models.TJunction, GreenTimes: []int{1, -2, 3}}},
		{"unknown topology", models.OptimizationRequest{Topology: "Hexagon", GreenTimes: []int{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient(srv.URL, true).Optimize(t.Context(), tt.req)
			assert.ErrorIs(t, err, models.ErrInvalidRequest)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestOptimizeConnectionRefusedMock(t *testing.T) {
	req := fourWayRequest()
	result, err := newTestClient(refusedURL(t), true).Optimize(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, models.SourceMock, result.Source)
	require.Len(t, result.OptimizedGreenTimes, len(req.GreenTimes))
	for i, g := range result.OptimizedGreenTimes {
		lo := int(math.Round(float64(req.GreenTimes[i]) * MockGreenScaleMin))
		hi := int(math.Round(float64(req.GreenTimes[i]) * MockGreenScaleMax))
		assert.GreaterOrEqual(t, g, lo)
		assert.LessOrEqual(t, g, hi)
	}
	assert.GreaterOrEqual(t, result.EstimatedDelayTime, MockDelayMin)
	assert.LessOrEqual(t, result.EstimatedDelayTime, MockDelayMax)
}

func TestOptimizeConnectionRefusedWithoutFallback(t *testing.T) {
	_, err := newTestClient(refusedURL(t), false).Optimize(t.Context(), fourWayRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOptimizeTimeoutIsNotMocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(config.OptimizerConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, MockFallback: true})
	result, err := c.Optimize(t.Context(), fourWayRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, result)
}

func TestPredictCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathPredict, r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 17.0, body["current_hour"])

		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, "Day,Hour,Signal_1_Green,Signal_2_Green,Signal_3_Green,Avg_Delay_Time\nFriday,17,40,30,20,55\nFriday,18,41,31,21,50\n")
	}))
	defer srv.Close()

	hour := 17
	req := models.OptimizationRequest{Topology: models.TJunction, GreenTimes: []int{40, 30, 20}, CurrentHour: &hour}
	set, err := newTestClient(srv.URL, true).Predict(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SourceOptimizer, set.Source)
	assert.Equal(t, models.TJunction, set.Topology)
	require.Len(t, set.Records, 2)
	assert.Equal(t, 18, set.Records[1].Hour)
	assert.Len(t, set.Records[0].Channels, 3)
}

func TestPredictRejectsUnknownCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "foo,bar\n1,2")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, true).Predict(t.Context(), fourWayRequest())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestPredictConnectionRefusedMock(t *testing.T) {
	set, err := newTestClient(refusedURL(t), true).Predict(t.Context(), fourWayRequest())
	require.NoError(t, err)
	assert.Equal(t, models.SourceMock, set.Source)
	assert.Len(t, set.Records, 2)
}

func TestForwardVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"color":"green","green_times":[1,2,3]}`, string(data))
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, `{"anything":"goes"}`)
	}))
	defer srv.Close()

	status, body, err := newTestClient(srv.URL, true).Forward(t.Context(), PathOptimize, []byte(`{"color":"green","green_times":[1,2,3]}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, `{"anything":"goes"}`, string(body))
}

func TestForwardRefused(t *testing.T) {
	_, _, err := newTestClient(refusedURL(t), true).Forward(t.Context(), PathOptimize, []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnavailable)
}
