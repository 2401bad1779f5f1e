package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/index"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/pose"
	"github.com/your-org/suspectwatch/internal/recognition"
	"github.com/your-org/suspectwatch/pkg/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, r http.Handler, path, field, filename string, data []byte, extra map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func suspectRouter(db *memStore, objects *memObjects, idx *index.SuspectIndex, pub *memPublisher) *gin.Engine {
	// Avoid typed-nil interfaces: a nil fake means "not configured".
	var indexer SuspectIndexer
	if idx != nil {
		indexer = idx
	}
	var control ControlPublisher
	if pub != nil {
		control = pub
	}
	h := NewSuspectHandler(db, objects, indexer, control)
	r := gin.New()
	r.POST("/suspects", h.Create)
	r.GET("/suspects", h.List)
	r.GET("/suspects/:id", h.Get)
	r.PUT("/suspects/:id", h.Update)
	r.DELETE("/suspects/:id", h.Delete)
	r.POST("/suspects/:id/photo", h.UploadPhoto)
	r.PUT("/suspects/:id/embedding", h.SetEmbedding)
	return r
}

func TestSuspectLifecycle(t *testing.T) {
	db, objects, idx, pub := newMemStore(), newMemObjects(), index.New(), &memPublisher{}
	r := suspectRouter(db, objects, idx, pub)

	w := doJSON(t, r, http.MethodPost, "/suspects", dto.CreateSuspectRequest{
		Name: "John Doe", Age: 34, Sex: "male", Latitude: 40.7, Longitude: -74.0,
		Reason: "theft", Embedding: []float32{1, 0, 0},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[dto.SuspectResponse](t, w)
	if !created.HasEmbedding || created.Sex != "male" {
		t.Errorf("unexpected create response %+v", created)
	}
	if idx.Len() != 1 || len(pub.controls) != 1 {
		t.Errorf("index/control not updated: len %d controls %d", idx.Len(), len(pub.controls))
	}

	path := "/suspects/" + created.ID.String()
	w = doJSON(t, r, http.MethodPut, path, dto.UpdateSuspectRequest{Name: "John Roe", Age: 35})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	if got := decode[dto.SuspectResponse](t, w); got.Name != "John Roe" || got.Sex != "unknown" {
		t.Errorf("unexpected update response %+v", got)
	}

	w = doJSON(t, r, http.MethodGet, "/suspects", nil)
	if list := decode[dto.SuspectListResponse](t, w); list.Total != 1 || list.Suspects[0].Name != "John Roe" {
		t.Errorf("unexpected list %+v", list)
	}

	w = doMultipart(t, r, path+"/photo", "photo", "face.png", pngBytes(t, 600, 300), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("photo: %d %s", w.Code, w.Body.String())
	}
	withPhoto := decode[dto.SuspectResponse](t, w)
	photoKey := "suspects/" + created.ID.String() + "/photo.png"
	thumbKey := "suspects/" + created.ID.String() + "/thumb.jpg"
	if !objects.has(photoKey) || !objects.has(thumbKey) {
		t.Errorf("photo objects missing: %v", objects.objects)
	}
	if withPhoto.ThumbnailURL != "http://minio.test/"+thumbKey {
		t.Errorf("ThumbnailURL = %q", withPhoto.ThumbnailURL)
	}

	w = doJSON(t, r, http.MethodDelete, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if objects.has(photoKey) || idx.Len() != 0 {
		t.Error("delete did not clean up photo and index")
	}
	if w = doJSON(t, r, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", w.Code)
	}
}

func TestSuspectValidation(t *testing.T) {
	r := suspectRouter(newMemStore(), newMemObjects(), index.New(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing name", http.MethodPost, "/suspects", map[string]any{"age": 3}, http.StatusBadRequest},
		{"bad sex", http.MethodPost, "/suspects", map[string]any{"name": "x", "sex": "other"}, http.StatusBadRequest},
		{"bad latitude", http.MethodPost, "/suspects", map[string]any{"name": "x", "latitude": 91}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/suspects/nope", nil, http.StatusBadRequest},
		{"unknown", http.MethodGet, "/suspects/" + uuid.NewString(), nil, http.StatusNotFound},
		{"update unknown", http.MethodPut, "/suspects/" + uuid.NewString(), map[string]any{"name": "x"}, http.StatusNotFound},
		{"embedding unknown", http.MethodPut, "/suspects/" + uuid.NewString() + "/embedding", map[string]any{"embedding": []float32{1}}, http.StatusNotFound},
		{"empty embedding", http.MethodPut, "/suspects/" + uuid.NewString() + "/embedding", map[string]any{"embedding": []float32{}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(t, r, tt.method, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestUploadPhotoRejectsNonImage(t *testing.T) {
	db := newMemStore()
	s := &models.Suspect{Name: "x"}
	_ = db.CreateSuspect(context.Background(), s)
	r := suspectRouter(db, newMemObjects(), nil, nil)

	w := doMultipart(t, r, "/suspects/"+s.ID.String()+"/photo", "photo", "x.txt", []byte("hello"), nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestSetEmbeddingUpdatesIndex(t *testing.T) {
	db, idx := newMemStore(), index.New()
	s := &models.Suspect{Name: "Ann"}
	_ = db.CreateSuspect(context.Background(), s)
	r := suspectRouter(db, newMemObjects(), idx, nil)

	w := doJSON(t, r, http.MethodPut, "/suspects/"+s.ID.String()+"/embedding", dto.SetEmbeddingRequest{Embedding: []float32{0, 1}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := idx.Search([]float32{0, 1}, 1); len(got) != 1 || got[0].Name != "Ann" {
		t.Errorf("index not updated: %+v", got)
	}
}

func matchRouter(t *testing.T, db *memStore) *gin.Engine {
	t.Helper()
	cfg := config.Default().Scoring
	cfg.Mode = "combined"
	cfg.MatchThreshold = 70
	m, err := recognition.NewMatcher(cfg, db)
	if err != nil {
		t.Fatal(err)
	}
	h := NewMatchHandler(m, db)
	r := gin.New()
	r.POST("/match", h.Match)
	r.POST("/compare", h.Compare)
	return r
}

func TestMatch(t *testing.T) {
	db := newMemStore()
	alice := &models.Suspect{Name: "Alice", Embedding: []float32{1, 0, 0}}
	bob := &models.Suspect{Name: "Bob", Embedding: []float32{0, 1, 0}}
	_ = db.CreateSuspect(context.Background(), alice)
	_ = db.CreateSuspect(context.Background(), bob)
	r := matchRouter(t, db)

	w := doJSON(t, r, http.MethodPost, "/match", dto.MatchRequest{Embedding: []float32{1, 0, 0}, PersistScores: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[dto.MatchResponse](t, w)
	if resp.Total != 2 || resp.Threshold != 70 {
		t.Fatalf("unexpected response %+v", resp)
	}
	top := resp.Results[0]
	if top.Name != "Alice" || !top.Matched || top.Percent < 99.99 || top.Euclidean == nil || *top.Euclidean != 0 {
		t.Errorf("unexpected top result %+v", top)
	}
	if resp.Results[1].Matched {
		t.Errorf("orthogonal vector should not match: %+v", resp.Results[1])
	}
	if got, _ := db.GetSuspect(context.Background(), alice.ID); got.Score == nil || *got.Score < 99.99 {
		t.Errorf("score not persisted: %+v", got.Score)
	}

	w = doJSON(t, r, http.MethodPost, "/match", dto.MatchRequest{Embedding: []float32{1, 0, 0}, Limit: 1})
	if resp := decode[dto.MatchResponse](t, w); resp.Total != 1 {
		t.Errorf("limit not applied: %+v", resp)
	}

	w = doJSON(t, r, http.MethodPost, "/match", dto.MatchRequest{Embedding: []float32{1}, Face: &dto.FaceData{}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("degenerate face: status %d", w.Code)
	}
}

func TestCompare(t *testing.T) {
	r := matchRouter(t, newMemStore())

	tests := []struct {
		name        string
		req         dto.CompareRequest
		wantPercent float64
		wantMode    string
		nilEuclid   bool
	}{
		{"identical", dto.CompareRequest{A: []float32{3, 4}, B: []float32{3, 4}}, 100, "combined", false},
		{"cosine mode", dto.CompareRequest{A: []float32{1, 0}, B: []float32{0, 1}, Mode: "cosine"}, 0, "cosine", false},
		{"length mismatch", dto.CompareRequest{A: []float32{1, 0}, B: []float32{1}, Mode: "cosine"}, 0, "cosine", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/compare", tt.req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			got := decode[dto.CompareResponse](t, w)
			if d := got.Percent - tt.wantPercent; d > 1e-6 || d < -1e-6 {
				t.Errorf("Percent = %v, want %v", got.Percent, tt.wantPercent)
			}
			if got.Mode != tt.wantMode || (got.Euclidean == nil) != tt.nilEuclid {
				t.Errorf("unexpected response %+v", got)
			}
		})
	}

	if w := doJSON(t, r, http.MethodPost, "/compare", map[string]any{"a": []float32{1}, "b": []float32{1}, "mode": "fuzzy"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode: status %d", w.Code)
	}
}

func TestObservationCreate(t *testing.T) {
	pub := &memPublisher{}
	h := NewObservationHandler(pub)
	r := gin.New()
	r.POST("/observations", h.Create)

	w := doJSON(t, r, http.MethodPost, "/observations", map[string]any{
		"device_id": "cam-1",
		"timestamp": "2024-05-01T12:00:00Z",
		"face":      map[string]any{"bbox": []float32{0.1, 0.1, 0.2, 0.2}},
		"embedding": []float32{0.5, 0.5},
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	acc := decode[dto.ObservationAccepted](t, w)
	if len(pub.observations) != 1 || pub.observations[0].ID != acc.ID {
		t.Fatalf("observation not published: %+v", pub.observations)
	}
	if want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC); !pub.observations[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v", pub.observations[0].Timestamp)
	}

	if w := doJSON(t, r, http.MethodPost, "/observations", map[string]any{"device_id": "cam-1", "embedding": []float32{1}, "timestamp": "yesterday"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad timestamp: status %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/observations", map[string]any{"device_id": "cam-1"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing embedding: status %d", w.Code)
	}

	pub.err = errBoom
	if w := doJSON(t, r, http.MethodPost, "/observations", map[string]any{"device_id": "cam-1", "embedding": []float32{1}}); w.Code != http.StatusInternalServerError {
		t.Errorf("publish failure: status %d", w.Code)
	}
}

func TestSightingList(t *testing.T) {
	db := newMemStore()
	db.sightings = []models.Sighting{
		{ID: uuid.New(), DeviceID: "cam-1", SnapshotKey: "snapshots/a.jpg", Timestamp: time.Now()},
		{ID: uuid.New(), DeviceID: "cam-2"},
	}
	h := NewSightingHandler(db, newMemObjects())
	r := gin.New()
	r.GET("/sightings", h.List)

	sid := uuid.New()
	w := doJSON(t, r, http.MethodGet, "/sightings?device_id=cam-1&suspect_id="+sid.String()+"&from=2024-01-01T00:00:00Z&limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[dto.SightingListResponse](t, w)
	if resp.Total != 1 || resp.Sightings[0].SnapshotURL != "http://minio.test/snapshots/a.jpg" {
		t.Errorf("unexpected response %+v", resp)
	}
	f := db.lastQuery
	if f.Limit != 10 || f.SuspectID == nil || *f.SuspectID != sid || f.From == nil {
		t.Errorf("filter not parsed: %+v", f)
	}

	for _, q := range []string{"from=bad", "to=bad", "suspect_id=bad"} {
		if w := doJSON(t, r, http.MethodGet, "/sightings?"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", q, w.Code)
		}
	}
}

func documentRouter(db *memStore, objects *memObjects) *gin.Engine {
	h := NewDocumentHandler(db, objects)
	r := gin.New()
	r.POST("/collections/:collection/documents", h.Create)
	r.GET("/collections/:collection/documents", h.List)
	r.GET("/collections/:collection/documents/:docId", h.Get)
	r.GET("/collections/:collection/documents/:docId/content", h.Content)
	r.PUT("/collections/:collection/documents/:docId", h.Update)
	r.DELETE("/collections/:collection/documents/:docId", h.Delete)
	return r
}

func TestDocumentLifecycle(t *testing.T) {
	db, objects := newMemStore(), newMemObjects()
	r := documentRouter(db, objects)

	w := doMultipart(t, r, "/collections/videos/documents", "file", "clip.mov", []byte("moov"), map[string]string{"title": "lobby"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	doc := decode[dto.DocumentResponse](t, w)
	wantKey := "videos/" + doc.ID.String() + ".mov"
	if doc.ObjectKey != wantKey || doc.ContentType != "video/quicktime" || doc.Size != 4 || doc.Title != "lobby" {
		t.Errorf("unexpected document %+v", doc)
	}
	if !objects.has(wantKey) {
		t.Error("object not uploaded")
	}

	path := "/collections/videos/documents/" + doc.ID.String()
	w = doJSON(t, r, http.MethodPut, path, dto.UpdateDocumentRequest{Title: "entrance"})
	if got := decode[dto.DocumentResponse](t, w); w.Code != http.StatusOK || got.Title != "entrance" {
		t.Errorf("update: %d %+v", w.Code, got)
	}

	if w := doJSON(t, r, http.MethodGet, "/collections/images/documents/"+doc.ID.String(), nil); w.Code != http.StatusNotFound {
		t.Errorf("cross-collection get: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, path+"/content", nil)
	if w.Code != http.StatusOK || w.Body.String() != "moov" {
		t.Errorf("content: %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "video/quicktime" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, doc.ID.String()+".mov") {
		t.Errorf("content disposition = %q", cd)
	}

	w = doJSON(t, r, http.MethodGet, "/collections/videos/documents", nil)
	if list := decode[dto.DocumentListResponse](t, w); list.Total != 1 {
		t.Errorf("unexpected list %+v", list)
	}

	if w := doJSON(t, r, http.MethodDelete, path, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if objects.has(wantKey) {
		t.Error("object not deleted")
	}
	if w := doJSON(t, r, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", w.Code)
	}
}

func TestDocumentErrors(t *testing.T) {
	db, objects := newMemStore(), newMemObjects()
	r := documentRouter(db, objects)

	if w := doJSON(t, r, http.MethodGet, "/collections/suspects/documents", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown collection: status %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/collections/images/documents/xyz", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status %d", w.Code)
	}

	// Record whose object is gone from the bucket.
	orphan := &models.Document{ID: uuid.New(), Collection: models.CollectionImages, ObjectKey: "images/missing.jpg", ContentType: "image/jpeg"}
	if err := db.CreateDocument(context.Background(), orphan); err != nil {
		t.Fatal(err)
	}
	if w := doJSON(t, r, http.MethodGet, "/collections/images/documents/"+orphan.ID.String()+"/content", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing object: status %d", w.Code)
	}

	objects.putErr = models.WrapError(models.KindImageFetch, "minio", errBoom)
	w := doMultipart(t, r, "/collections/images/documents", "file", "a.jpg", []byte{0xff}, nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("upload failure: status %d", w.Code)
	}
}

func poseRouter() *gin.Engine {
	cfg := config.PoseConfig{MaxSavedPoses: 2, DistanceWeight: 0.5, HeatmapSize: 4}
	h := NewPoseHandler(pose.NewRegistry(cfg.MaxSavedPoses, cfg.DistanceWeight), cfg)
	r := gin.New()
	r.POST("/poses/compare", h.Compare)
	r.POST("/poses/joints", h.Joints)
	r.GET("/poses/:session", h.Get)
	r.DELETE("/poses/:session", h.Reset)
	r.POST("/poses/:session/capture", h.Capture)
	r.POST("/poses/:session/match", h.Match)
	return r
}

func TestPoseSession(t *testing.T) {
	r := poseRouter()
	standing := []dto.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}}
	bent := []dto.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}

	if w := doJSON(t, r, http.MethodPost, "/poses/s1/match", dto.PoseRequest{Joints: standing}); w.Code != http.StatusNotFound {
		t.Errorf("match unknown session: %d", w.Code)
	}

	for i, p := range [][]dto.Point{standing, bent} {
		w := doJSON(t, r, http.MethodPost, "/poses/s1/capture", dto.PoseRequest{Joints: p})
		if w.Code != http.StatusCreated {
			t.Fatalf("capture %d: %d", i, w.Code)
		}
		if got := decode[dto.CapturePoseResponse](t, w); got.Index != i || got.Max != 2 {
			t.Errorf("unexpected capture response %+v", got)
		}
	}
	if w := doJSON(t, r, http.MethodPost, "/poses/s1/capture", dto.PoseRequest{Joints: standing}); w.Code != http.StatusConflict {
		t.Errorf("capture past limit: %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/poses/s1/match", dto.PoseRequest{Joints: standing})
	resp := decode[dto.PoseMatchResponse](t, w)
	if len(resp.Scores) != 2 || resp.BestIndex != 0 || resp.BestScore < 0.999 {
		t.Errorf("unexpected match %+v", resp)
	}

	w = doJSON(t, r, http.MethodGet, "/poses/s1", nil)
	if got := decode[dto.SessionResponse](t, w); len(got.Poses) != 2 || got.Poses[1][2].X != 1 {
		t.Errorf("unexpected session %+v", got)
	}

	doJSON(t, r, http.MethodDelete, "/poses/s1", nil)
	if w := doJSON(t, r, http.MethodGet, "/poses/s1", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after reset: %d", w.Code)
	}
}

func TestPoseCompareAndJoints(t *testing.T) {
	r := poseRouter()
	p := []dto.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}

	w := doJSON(t, r, http.MethodPost, "/poses/compare", dto.ComparePosesRequest{Current: p, Saved: p})
	if got := decode[dto.ComparePosesResponse](t, w); got.Score < 0.999 {
		t.Errorf("identical poses scored %v", got.Score)
	}

	// Two 4x4 channels with peaks at (1,2) and (3,0).
	heatmap := make([]float64, 2*16)
	heatmap[2*4+1] = 1
	heatmap[16+3] = 1
	w = doJSON(t, r, http.MethodPost, "/poses/joints", dto.JointsRequest{Heatmap: heatmap, Joints: 2, Width: 40, Height: 80})
	if w.Code != http.StatusOK {
		t.Fatalf("joints: %d %s", w.Code, w.Body.String())
	}
	got := decode[dto.JointsResponse](t, w)
	if len(got.Joints) != 2 || got.Joints[0].X != 10 || got.Joints[0].Y != 40 || got.Joints[1].X != 30 || got.Joints[1].Y != 0 {
		t.Errorf("unexpected joints %+v", got.Joints)
	}
	if got.Joints[0].Name != pose.Top.String() || len(got.Connections) != len(pose.Connections) {
		t.Errorf("unexpected labels or connections %+v", got)
	}

	badShapes := []struct {
		name string
		req  dto.JointsRequest
		want int
	}{
		{"wrong heatmap length", dto.JointsRequest{Heatmap: []float64{1, 2}, Width: 1, Height: 1}, http.StatusUnprocessableEntity},
		{"empty heatmap", dto.JointsRequest{Heatmap: []float64{}, Joints: 64, Size: 1024, Width: 1, Height: 1}, http.StatusUnprocessableEntity},
		{"shape product overflows", dto.JointsRequest{Heatmap: []float64{}, Joints: 1 << 16, Size: 1 << 24, Width: 1, Height: 1}, http.StatusBadRequest},
		{"negative size", dto.JointsRequest{Heatmap: []float64{1}, Joints: 1, Size: -1, Width: 1, Height: 1}, http.StatusBadRequest},
	}
	for _, tt := range badShapes {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/poses/joints", tt.req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestReadyz(t *testing.T) {
	db := newMemStore()
	pub := &memPublisher{}
	h := NewSystemHandler(db, newMemObjects(), pub)
	r := gin.New()
	r.GET("/readyz", h.Readyz)
	r.GET("/healthz", h.Healthz)

	if w := doJSON(t, r, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/readyz", nil); w.Code != http.StatusOK {
		t.Errorf("readyz: %d", w.Code)
	}

	db.pingErr = errBoom
	w := doJSON(t, r, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), `"postgres":"boom"`) {
		t.Errorf("readyz with db down: %d %s", w.Code, w.Body.String())
	}
}
