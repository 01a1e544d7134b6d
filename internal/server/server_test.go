package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/voxloop/voxd/internal/catalog"
	"github.com/voxloop/voxd/internal/engine"
	"github.com/voxloop/voxd/internal/session"
	"github.com/voxloop/voxd/internal/vad"
	"github.com/voxloop/voxd/internal/voice"
)

func testRouter(t *testing.T, maxSessions int) (chi.Router, *session.Registry) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := session.NewRegistry(maxSessions, 20, func() *vad.Detector {
		return vad.NewDetector(vad.NewEnergyClassifier(2), vad.Options{
			SampleRate:          16000,
			FrameMs:             20,
			SilenceThresholdSec: 1.5,
			MinSpeechSec:        0.5,
		})
	})

	h := &Handlers{Registry: registry, Catalog: store, Greeting: "Hello, thank you for calling."}
	r := NewRouter(h, voice.Deps{
		Registry: registry,
		Engines: engine.Engines{
			Transcriber: engine.NullTranscriber{},
			Synthesizer: engine.NullSynthesizer{},
			Responder:   engine.EchoResponder{},
		},
	})
	return r, registry
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t, 10)
	rec, body := doJSON(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "healthy" || body["version"] != Version {
		t.Fatalf("body = %v", body)
	}
}

func TestCallStartAndEnd(t *testing.T) {
	r, registry := testRouter(t, 10)

	rec, body := doJSON(t, r, http.MethodPost, "/api/call/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}
	id, _ := body["sessionId"].(string)
	if id == "" || body["status"] != "initialized" {
		t.Fatalf("start body = %v", body)
	}
	if body["greeting"] != "Hello, thank you for calling." {
		t.Fatalf("greeting = %v", body["greeting"])
	}
	if registry.Len() != 1 {
		t.Fatalf("registry length = %d", registry.Len())
	}

	rec, body = doJSON(t, r, http.MethodPost, "/api/call/end?session_id="+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d, body = %v", rec.Code, body)
	}
	if body["status"] != "ended" || body["sessionId"] != id {
		t.Fatalf("end body = %v", body)
	}
	if registry.Len() != 0 {
		t.Fatalf("registry length after end = %d", registry.Len())
	}
}

func TestCallEndUnknownSession(t *testing.T) {
	r, _ := testRouter(t, 10)
	rec, _ := doJSON(t, r, http.MethodPost, "/api/call/end?session_id=nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCallEndMissingID(t *testing.T) {
	r, _ := testRouter(t, 10)
	rec, _ := doJSON(t, r, http.MethodPost, "/api/call/end", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCallStartCapacity(t *testing.T) {
	r, registry := testRouter(t, 1)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/call/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first start status = %d", rec.Code)
	}
	rec, _ = doJSON(t, r, http.MethodPost, "/api/call/start", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second start status = %d, want 429", rec.Code)
	}
	if registry.Len() != 1 {
		t.Fatalf("registry length = %d", registry.Len())
	}
}

func TestListServices(t *testing.T) {
	r, _ := testRouter(t, 10)
	rec, body := doJSON(t, r, http.MethodGet, "/api/services", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	services, ok := body["services"].([]any)
	if !ok || len(services) == 0 {
		t.Fatalf("services = %v", body["services"])
	}
}

func TestReservationLifecycle(t *testing.T) {
	r, _ := testRouter(t, 10)

	rec, body := doJSON(t, r, http.MethodGet, "/api/reservations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if got, ok := body["reservations"].([]any); !ok || len(got) != 0 {
		t.Fatalf("initial reservations = %v", body["reservations"])
	}

	rec, created := doJSON(t, r, http.MethodPost, "/api/reservations", map[string]any{
		"serviceId":   "general-checkup",
		"date":        "2026-09-15",
		"time":        "10:30",
		"patientName": "Ana Souza",
		"patientDOB":  "1985-03-22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", rec.Code, created)
	}
	if created["status"] != "confirmed" {
		t.Fatalf("created = %v", created)
	}

	rec, body = doJSON(t, r, http.MethodGet, "/api/reservations", nil)
	if got, _ := body["reservations"].([]any); len(got) != 1 {
		t.Fatalf("reservations after create = %v", body["reservations"])
	}
}

func TestCreateReservationValidation(t *testing.T) {
	r, _ := testRouter(t, 10)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/reservations", map[string]any{
		"serviceId": "general-checkup",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, r, http.MethodPost, "/api/reservations", map[string]any{
		"serviceId":   "not-a-service",
		"date":        "2026-09-15",
		"time":        "10:30",
		"patientName": "Ana Souza",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown service status = %d, want 404", rec.Code)
	}
}
