package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OmChillure/modern-chat/internal/services"
	"github.com/rs/zerolog"
)

func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var chunks []string
	for chunk, err := range seq {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func TestDifyStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["query"] != "where is A123?" || req["user"] != "user-1" || req["response_mode"] != "streaming" {
			t.Errorf("request = %v", req)
		}
		if inputs, ok := req["inputs"].(map[string]any); !ok || len(inputs) != 0 {
			t.Errorf("inputs = %v", req["inputs"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: ping\n\n")
		fmt.Fprint(w, `data: {"event": "agent_message", "answer": "ignored"}`+"\n\n")
		fmt.Fprint(w, `data: {"event": "agent_thought", "thought": "Order A123 "}`+"\n\n")
		fmt.Fprint(w, `data: {"event": "agent_thought", "thought": "has shipped."}`+"\n\n")
		fmt.Fprint(w, `data: {"event": "message_end"}`+"\n\n")
		fmt.Fprint(w, `data: {"event": "agent_thought", "thought": "after the end"}`+"\n\n")
	}))
	defer srv.Close()

	dify := services.NewDify(srv.URL, "secret", 0, zerolog.Nop())
	chunks, err := collect(dify.Stream(context.Background(), "where is A123?", "user-1"))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got := strings.Join(chunks, "|"); got != "Order A123 |has shipped." {
		t.Errorf("chunks = %q", got)
	}
}

func TestDifyStreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		check   func(t *testing.T, err error)
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			check: func(t *testing.T, err error) {
				var se *services.StatusError
				if !errors.As(err, &se) || se.Code != http.StatusUnauthorized || se.Provider != "Dify" {
					t.Errorf("error = %v, want Dify status 401", err)
				}
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			timeout: 50 * time.Millisecond,
			check: func(t *testing.T, err error) {
				var re *services.RequestError
				if !errors.As(err, &re) || !services.IsTimeout(err) {
					t.Errorf("error = %v, want timeout", err)
				}
			},
		},
		{
			name: "malformed event",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "data: not json\n\n")
			},
			check: func(t *testing.T, err error) {
				var re *services.RequestError
				var se *services.StatusError
				if err == nil || errors.As(err, &re) || errors.As(err, &se) {
					t.Errorf("error = %v, want a decode error", err)
				}
			},
		},
		{
			name: "agent error event",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `data: {"event": "error", "status": 400, "message": "quota"}`+"\n\n")
			},
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "quota") {
					t.Errorf("error = %v, want agent error", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dify := services.NewDify(srv.URL, "key", tt.timeout, zerolog.Nop())
			_, err := collect(dify.Stream(context.Background(), "hi", "u"))
			tt.check(t, err)
		})
	}
}

func TestDifyStreamOutlivesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := range 5 {
			fmt.Fprintf(w, "data: {\"event\": \"agent_thought\", \"thought\": \"%d\"}\n\n", i)
			w.(http.Flusher).Flush()
			time.Sleep(60 * time.Millisecond)
		}
	}))
	defer srv.Close()

	// Every gap is well inside the timeout while the whole stream takes longer than it.
	dify := services.NewDify(srv.URL, "key", 200*time.Millisecond, zerolog.Nop())
	chunks, err := collect(dify.Stream(context.Background(), "hi", "u"))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got := strings.Join(chunks, ""); got != "01234" {
		t.Errorf("chunks = %q, want all five thoughts", got)
	}
}

func TestDifyStreamIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"event": "agent_thought", "thought": "first"}`+"\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	dify := services.NewDify(srv.URL, "key", 100*time.Millisecond, zerolog.Nop())
	chunks, err := collect(dify.Stream(context.Background(), "hi", "u"))
	if len(chunks) != 1 || chunks[0] != "first" {
		t.Errorf("chunks = %q, want the thought sent before the stall", chunks)
	}
	var re *services.RequestError
	if !errors.As(err, &re) || !services.IsTimeout(err) {
		t.Errorf("error = %v, want a timeout request error", err)
	}
}

func TestDifyStreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dify := services.NewDify(url, "key", time.Second, zerolog.Nop())
	_, err := collect(dify.Stream(context.Background(), "hi", "u"))
	var re *services.RequestError
	if !errors.As(err, &re) || services.IsTimeout(err) {
		t.Errorf("error = %v, want a request error", err)
	}
}

func TestOllamaStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3" || len(req.Messages) != 2 || req.Messages[0].Role != "system" ||
			req.Messages[1].Content != "hi" {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	ollama, err := services.NewOllama(srv.URL, "llama3", "be brief", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOllama() error = %v", err)
	}
	chunks, err := collect(ollama.Stream(context.Background(), "hi", "u"))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got := strings.Join(chunks, "|"); got != "Hel|lo" {
		t.Errorf("chunks = %q", got)
	}
}

func TestOllamaStreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, `{}`)
	}))
	defer srv.Close()

	ollama, err := services.NewOllama(srv.URL, "llama3", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOllama() error = %v", err)
	}
	_, err = collect(ollama.Stream(context.Background(), "hi", "u"))
	var se *services.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Errorf("error = %v, want status 503", err)
	}
}

func TestOpenAIStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	openai := services.NewOpenAI("sk-test", srv.URL+"/v1", "gpt-4o-mini", "be brief", zerolog.Nop())
	chunks, err := collect(openai.Stream(context.Background(), "hi", "u"))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got := strings.Join(chunks, "|"); got != "Hel|lo" {
		t.Errorf("chunks = %q", got)
	}
}

func TestOpenAIStreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	openai := services.NewOpenAI("sk-test", srv.URL, "gpt-4o-mini", "", zerolog.Nop())
	_, err := collect(openai.Stream(context.Background(), "hi", "u"))
	var se *services.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || se.Provider != "OpenAI" {
		t.Errorf("error = %v, want OpenAI status 429", err)
	}
}
