// wsclient streams an audio file to the transcription service over the
// WebSocket protocol and prints every message it gets back. Useful for
// exercising the streaming path without a browser.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	var (
		addr      = flag.String("addr", "ws://localhost:8000/ws/transcribe", "websocket endpoint")
		file      = flag.String("file", "", "audio file to stream (wav/webm)")
		format    = flag.String("format", "wav", "declared container format")
		rate      = flag.Int("rate", 48000, "declared sample rate")
		chunkSize = flag.Int("chunk", 64*1024, "chunk size in bytes")
		interval  = flag.Duration("interval", 200*time.Millisecond, "delay between chunks")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("missing -file")
	}
	audio, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *file, err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s, streaming %d bytes", *addr, len(audio))

	// Print server messages as they arrive.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("<- unparseable frame: %s", raw)
				continue
			}
			log.Printf("<- %s", raw)
			if msg["status"] == "transcription" && msg["is_final"] == true {
				return
			}
			if msg["status"] == "error" {
				return
			}
		}
	}()

	for off := 0; off < len(audio); off += *chunkSize {
		end := off + *chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		frame := map[string]any{
			"type":        "audio_chunk",
			"data":        base64.StdEncoding.EncodeToString(audio[off:end]),
			"format":      *format,
			"sample_rate": *rate,
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Fatalf("failed to send chunk: %v", err)
		}
		time.Sleep(*interval)
	}

	if err := conn.WriteJSON(map[string]string{"type": "end"}); err != nil {
		log.Fatalf("failed to send end: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Minute):
		log.Println("timed out waiting for final transcription")
	}
}
