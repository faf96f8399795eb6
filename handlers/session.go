package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/middleware"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/normalize"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/optimizer"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/session"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/summary"
)

// SessionHandler serves the dashboard pages' state: uploads and manual
// optimizations write a session's dataset, the views read it back.
type SessionHandler struct {
	authService *services.AuthService
	sessions    session.Provider
	client      *optimizer.Client
	ledger      *services.RunLedger
	publisher   *services.SignalPublisher
	maxUpload   int64
}

func NewSessionHandler(
	authService *services.AuthService,
	sessions session.Provider,
	client *optimizer.Client,
	ledger *services.RunLedger,
	publisher *services.SignalPublisher,
	maxUploadBytes int64,
) *SessionHandler {
	return &SessionHandler{
		authService: authService,
		sessions:    sessions,
		client:      client,
		ledger:      ledger,
		publisher:   publisher,
		maxUpload:   maxUploadBytes,
	}
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *SessionHandler) store(c *gin.Context) *session.Store {
	return session.NewStore(h.sessions.Scope(middleware.SessionID(c)))
}

func (h *SessionHandler) Create(c *gin.Context) {
	sid, token, expires, err := h.authService.NewSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{SessionID: sid, Token: token, ExpiresAt: expires})
}

// Upload takes a multipart file and intersection_type. The file is sent
// through the optimizer unless optimize=false, in which case it is taken as
// an already optimized result and normalized here.
func (h *SessionHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			respondTooLarge(c, h.maxUpload)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	topology, err := models.ParseTopology(c.PostForm("intersection_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	optimize := true
	if v := c.PostForm("optimize"); v != "" {
		if optimize, err = strconv.ParseBool(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid optimize flag"})
			return
		}
	}

	descriptor := &models.FileDescriptor{
		Name: fh.Filename,
		Size: fh.Size,
		Type: fh.Header.Get("Content-Type"),
	}
	if v := c.PostForm("last_modified"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			descriptor.LastModified = ms
		}
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer f.Close()

	payload := session.Payload{Kind: session.KindOptimized, Topology: topology, File: descriptor}
	if optimize {
		set, err := h.client.OptimizeFile(c.Request.Context(), topology, fh.Filename, f)
		if err != nil {
			respondError(c, err)
			return
		}
		payload.Records = set.Records
		payload.Source = set.Source
	} else {
		text, err := optimizer.ReadText(f)
		if err != nil {
			respondError(c, err)
			return
		}
		table, err := csvcodec.Parse(text)
		if err != nil {
			respondError(c, err)
			return
		}
		dataset, err := normalize.Auto(table, topology)
		if err != nil {
			respondError(c, err)
			return
		}
		payload.Records = dataset.Records
		payload.Comparisons = dataset.Comparisons
		payload.Source = models.SourceOptimizer
	}

	if err := h.store(c).Save(c.Request.Context(), payload); err != nil {
		respondError(c, err)
		return
	}
	h.recordRun(c, models.OptimizationRun{
		Kind:        models.RunFile,
		Topology:    topology,
		Source:      payload.Source,
		RecordCount: len(payload.Records) + len(payload.Comparisons),
		FileName:    fh.Filename,
	})

	c.JSON(http.StatusOK, datasetResponse(payload))
}

type optimizeBody struct {
	models.OptimizationRequest
	Topology string `json:"intersection_type" binding:"required"`
}

func (h *SessionHandler) bindRequest(c *gin.Context) (models.OptimizationRequest, bool) {
	var body optimizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.OptimizationRequest{}, false
	}
	topology, err := models.ParseTopology(body.Topology)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.OptimizationRequest{}, false
	}
	condition, err := models.ParseTrafficCondition(string(body.Condition))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.OptimizationRequest{}, false
	}
	req := body.OptimizationRequest
	req.Topology = topology
	req.Condition = condition
	return req, true
}

// Optimize submits manual timings. A real result is also published to the
// field controllers.
func (h *SessionHandler) Optimize(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	result, err := h.client.Optimize(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := session.Payload{Kind: session.KindOptimized, Topology: req.Topology, Result: result, Source: result.Source}
	if err := h.store(c).Save(c.Request.Context(), payload); err != nil {
		respondError(c, err)
		return
	}

	sid := middleware.SessionID(c)
	if err := h.publisher.Publish(sid, req.Topology, result); err != nil {
		log.Printf("signal publish failed session=%s err=%v", sid, err)
	}
	delay := result.EstimatedDelayTime
	h.recordRun(c, models.OptimizationRun{
		Kind:               models.RunOptimize,
		Topology:           req.Topology,
		Source:             result.Source,
		RecordCount:        1,
		EstimatedDelayTime: &delay,
	})

	c.JSON(http.StatusOK, result)
}

// Predict stores a forecast dataset next to, never over, the optimized one.
func (h *SessionHandler) Predict(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	set, err := h.client.Predict(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := session.Payload{Kind: session.KindPredicted, Topology: set.Topology, Records: set.Records, Source: set.Source}
	if err := h.store(c).Save(c.Request.Context(), payload); err != nil {
		respondError(c, err)
		return
	}
	h.recordRun(c, models.OptimizationRun{
		Kind:        models.RunPredict,
		Topology:    set.Topology,
		Source:      set.Source,
		RecordCount: len(set.Records),
	})

	c.JSON(http.StatusOK, datasetResponse(payload))
}

// datasetResponse is the write-path echo of a saved payload.
func datasetResponse(p session.Payload) gin.H {
	resp := gin.H{
		"intersection_type": p.Topology,
		"source":            p.Source,
		"record_count":      len(p.Records) + len(p.Comparisons),
	}
	if len(p.Records) > 0 {
		resp["records"] = p.Records
	}
	if len(p.Comparisons) > 0 {
		resp["comparisons"] = p.Comparisons
	}
	if p.File != nil {
		resp["file"] = p.File
	}
	return resp
}

func (h *SessionHandler) Records(c *gin.Context) {
	h.load(c, session.KindOptimized)
}

func (h *SessionHandler) Predicted(c *gin.Context) {
	h.load(c, session.KindPredicted)
}

func (h *SessionHandler) load(c *gin.Context, kind session.Kind) {
	p, err := h.store(c).Load(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// kindParam reads ?kind=optimized|predicted, defaulting to optimized.
func kindParam(c *gin.Context) (session.Kind, bool) {
	switch k := session.Kind(c.DefaultQuery("kind", string(session.KindOptimized))); k {
	case session.KindOptimized, session.KindPredicted:
		return k, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be optimized or predicted"})
	return "", false
}

// Radar derives the before/after chart from the stored dataset.
func (h *SessionHandler) Radar(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	p, err := h.store(c).Load(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}

	var points []models.RadarPoint
	switch {
	case len(p.Records) > 0:
		points = normalize.RadarPoints(p.Records)
	case len(p.Comparisons) > 0:
		points = normalize.ComparisonPoints(p.Comparisons)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "stored result has no chartable rows"})
		return
	}

	resp := gin.H{"intersection_type": p.Topology, "source": p.Source, "points": points}
	if pct, ok := summary.Improvement(points); ok {
		resp["improvement_pct"] = pct
	}
	c.JSON(http.StatusOK, resp)
}

// Summary returns daily averages and peak hours. ?day= narrows peak hours to
// one weekday.
func (h *SessionHandler) Summary(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	p, err := h.store(c).Load(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(p.Records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "stored result has no per-hour records"})
		return
	}

	days := models.Weekdays
	if d := c.Query("day"); d != "" {
		day, ok := models.NormalizeWeekday(d)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be a weekday name"})
			return
		}
		days = []string{day}
	}
	peaks := make(map[string][]int)
	for _, day := range days {
		if hours := summary.PeakHours(p.Records, day); len(hours) > 0 {
			peaks[day] = hours
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"intersection_type": p.Topology,
		"source":            p.Source,
		"daily":             summary.Daily(p.Records),
		"peak_hours":        peaks,
	})
}

func (h *SessionHandler) Download(c *gin.Context) {
	h.download(c, session.KindOptimized, "optimized_traffic_data.csv")
}

func (h *SessionHandler) DownloadPredicted(c *gin.Context) {
	h.download(c, session.KindPredicted, "predicted_optimized_traffic_data.csv")
}

func (h *SessionHandler) download(c *gin.Context, kind session.Kind, filename string) {
	p, err := h.store(c).Load(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}

	var headers []string
	var rows [][]string
	switch {
	case len(p.Records) > 0:
		headers, rows = normalize.Encode(p.Records, p.Topology)
	case len(p.Comparisons) > 0:
		headers = []string{"Label", "Before", "After"}
		for _, r := range p.Comparisons {
			rows = append(rows, []string{
				r.Label,
				strconv.FormatFloat(r.Before, 'f', -1, 64),
				strconv.FormatFloat(r.After, 'f', -1, 64),
			})
		}
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "stored result has no rows to download"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csvcodec.Serialize(headers, rows)))
}

func (h *SessionHandler) Clear(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	if err := h.store(c).Clear(c.Request.Context(), kind); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Changes is the polling form of the websocket stream: ?since=<RFC3339>.
func (h *SessionHandler) Changes(c *gin.Context) {
	var since time.Time
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		since = t
	}

	changed, last, err := h.store(c).ChangedSince(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"changed": changed}
	if !last.IsZero() {
		resp["last_updated"] = last
	}
	c.JSON(http.StatusOK, resp)
}

// recordRun writes the ledger entry without failing the request.
func (h *SessionHandler) recordRun(c *gin.Context, run models.OptimizationRun) {
	run.SessionID = middleware.SessionID(c)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
	defer cancel()
	if err := h.ledger.Record(ctx, &run); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("run ledger write failed session=%s kind=%s err=%v", run.SessionID, run.Kind, err)
	}
}
