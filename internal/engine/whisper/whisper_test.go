package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"audio-transcription-service/internal/decode"
)

// fakeServer mimics the whisper-server REST surface: GET /health and
// POST /inference with a multipart WAV upload.
func fakeServer(t *testing.T, reply inferenceResponse, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/inference", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("inference request is not multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Close()
		if hdr.Filename != "audio.wav" {
			t.Errorf("unexpected upload filename %q", hdr.Filename)
		}
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("unexpected response_format %q", got)
		}
		if got := r.FormValue("language"); got == "" {
			t.Error("language field missing")
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	})
	return httptest.NewServer(mux)
}

func testPCM() decode.PCM {
	return decode.FromInt16s(make([]int16, 480), decode.CanonicalRate)
}

func TestNew_HealthCheck(t *testing.T) {
	srv := fakeServer(t, inferenceResponse{}, http.StatusOK)
	defer srv.Close()

	if _, err := New(srv.URL); err != nil {
		t.Fatalf("New failed against a healthy server: %v", err)
	}
}

func TestNew_ServerUnreachable(t *testing.T) {
	if _, err := New("http://127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestNew_ServerNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(srv.URL); err == nil {
		t.Fatal("expected error for a not-ready server")
	}
}

func TestTranscribe(t *testing.T) {
	srv := fakeServer(t, inferenceResponse{Text: "  hello from whisper \n"}, http.StatusOK)
	defer srv.Close()

	eng, err := New(srv.URL, WithLanguage("de"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if eng.Name() != "whisper" {
		t.Errorf("unexpected provider name %q", eng.Name())
	}

	text, err := eng.Transcribe(context.Background(), testPCM())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello from whisper" {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := fakeServer(t, inferenceResponse{}, http.StatusInternalServerError)
	defer srv.Close()

	eng, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := eng.Transcribe(context.Background(), testPCM()); err == nil {
		t.Fatal("expected error for a 500 response")
	}
}

func TestTranscribe_InferenceError(t *testing.T) {
	srv := fakeServer(t, inferenceResponse{Error: "failed to decode audio"}, http.StatusOK)
	defer srv.Close()

	eng, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = eng.Transcribe(context.Background(), testPCM())
	if err == nil || !strings.Contains(err.Error(), "failed to decode audio") {
		t.Fatalf("expected the server error to surface, got %v", err)
	}
}
