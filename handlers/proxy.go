package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/normalize"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/optimizer"
)

// ProxyHandler relays dashboard submissions to the optimizer as JSON.
type ProxyHandler struct {
	client    *optimizer.Client
	maxUpload int64
}

func NewProxyHandler(client *optimizer.Client, maxUploadBytes int64) *ProxyHandler {
	return &ProxyHandler{client: client, maxUpload: maxUploadBytes}
}

// OptimizeTraffic accepts a JSON body, a color + green_times form or a
// file + intersection_type form and forwards it to /optimize. The optimizer's
// answer is returned verbatim.
func (h *ProxyHandler) OptimizeTraffic(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	var payload map[string]any
	if c.ContentType() == gin.MIMEJSON {
		if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
			if tooLarge(err) {
				respondTooLarge(c, h.maxUpload)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "details": err.Error()})
			return
		}
	} else {
		var ok bool
		if payload, ok = h.formPayload(c); !ok {
			return
		}
	}

	if !hasFields(payload, "color", "green_times") && !hasFields(payload, "csv_data", "intersection_type") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "received_data": payload})
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request", "details": err.Error()})
		return
	}

	status, resp, err := h.client.Forward(c.Request.Context(), optimizer.PathOptimize, body)
	switch {
	case errors.Is(err, optimizer.ErrUnavailable):
		if !h.client.MockFallback() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "optimizer not running or not accessible", "details": err.Error()})
			return
		}
		h.serveMock(c, payload)
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error calling optimizer", "details": err.Error()})
	default:
		c.Data(status, gin.MIMEJSON, resp)
	}
}

// NotImplemented answers unknown sub-paths of the proxy.
func (h *ProxyHandler) NotImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": fmt.Sprintf("%s is not implemented", c.Request.URL.Path)})
}

// formPayload reads a urlencoded or multipart form. It writes the 400 itself
// and reports false when the form is unusable.
func (h *ProxyHandler) formPayload(c *gin.Context) (map[string]any, bool) {
	color, hasColor := c.GetPostForm("color")
	greenTimes, hasGreen := c.GetPostForm("green_times")
	if hasColor && hasGreen {
		var times []any
		if err := json.Unmarshal([]byte(greenTimes), &times); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid green_times format", "details": err.Error()})
			return nil, false
		}
		payload := map[string]any{"color": color, "green_times": times}
		if t, ok := c.GetPostForm("intersection_type"); ok {
			payload["intersection_type"] = t
		}
		return payload, true
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			respondTooLarge(c, h.maxUpload)
			return nil, false
		}
		var fields []string
		if c.Request.PostForm != nil {
			for k := range c.Request.PostForm {
				fields = append(fields, k)
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: Missing required fields", "received_fields": fields})
		return nil, false
	}
	topology, err := models.ParseTopology(c.PostForm("intersection_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: Missing required fields", "details": err.Error()})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file", "details": err.Error()})
		return nil, false
	}
	defer f.Close()
	text, err := optimizer.ReadText(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file", "details": err.Error()})
		return nil, false
	}
	log.Printf("proxy forwarding file name=%s size=%d intersection_type=%s", fh.Filename, fh.Size, topology)
	return map[string]any{"csv_data": text, "intersection_type": topology.String()}, true
}

// serveMock answers in the optimizer's shape while it is unreachable.
func (h *ProxyHandler) serveMock(c *gin.Context, payload map[string]any) {
	optimizer.RecordMockFallback(optimizer.PathOptimize)
	mock := h.client.Mock()

	if _, ok := payload["csv_data"]; ok {
		topology, err := models.ParseTopology(fmt.Sprint(payload["intersection_type"]))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		headers, rows := normalize.Encode(mock.Sample(topology), topology)
		data := make([]map[string]string, len(rows))
		for i, row := range rows {
			data[i] = make(map[string]string, len(headers))
			for j, hdr := range headers {
				data[i][hdr] = row[j]
			}
		}
		log.Printf("optimizer unreachable, proxy serving mock sample intersection_type=%s", topology)
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": data, "source": models.SourceMock})
		return
	}

	greenTimes, err := toInts(payload["green_times"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid green_times format", "details": err.Error()})
		return
	}
	req := models.OptimizationRequest{GreenTimes: greenTimes}
	if red, ok := payload["red_times"]; ok {
		if req.RedTimes, err = toInts(red); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid red_times format", "details": err.Error()})
			return
		}
	}
	result := mock.Timings(req)

	log.Printf("optimizer unreachable, proxy serving mock timings channels=%d", len(greenTimes))
	resp := gin.H{
		"status":                "success",
		"optimized_green_times": result.OptimizedGreenTimes,
		"estimated_delay_time":  result.EstimatedDelayTime,
		"source":                models.SourceMock,
	}
	if len(result.OptimizedRedTimes) > 0 {
		resp["optimized_red_times"] = result.OptimizedRedTimes
	}
	c.JSON(http.StatusOK, resp)
}

func hasFields(payload map[string]any, keys ...string) bool {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil || v == "" {
			return false
		}
	}
	return true
}

// toInts accepts a JSON array of numbers or numeric strings.
func toInts(v any) ([]int, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", v)
	}
	out := make([]int, len(items))
	for i, item := range items {
		switch n := item.(type) {
		case float64:
			out[i] = int(n)
		case string:
			parsed, err := strconv.Atoi(n)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = parsed
		default:
			return nil, fmt.Errorf("element %d: unexpected %T", i, item)
		}
	}
	return out, nil
}
