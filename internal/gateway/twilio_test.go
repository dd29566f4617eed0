package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTwilioSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("To"); got != "whatsapp:+15550001111" {
			t.Errorf("To = %q", got)
		}
		if got := r.FormValue("From"); got != "whatsapp:+14155238886" {
			t.Errorf("From = %q", got)
		}
		if got := r.FormValue("Body"); got != "hola" {
			t.Errorf("Body = %q", got)
		}
		if user, _, ok := r.BasicAuth(); !ok || user != "AC123" {
			t.Errorf("missing basic auth")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sid": "SM999"})
	}))
	defer server.Close()

	client, err := NewTwilioClient(nil, "AC123", "token", "+14155238886", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	client.SetBaseURL(server.URL)

	sid, err := client.Send("+15550001111", "hola")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sid != "SM999" {
		t.Fatalf("sid = %q", sid)
	}
}

func TestTwilioSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_message":"unreachable"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewTwilioClient(nil, "AC123", "token", "+14155238886", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	client.SetBaseURL(server.URL)

	if _, err := client.Send("+15550001111", "hola"); err == nil {
		t.Fatal("expected error on 4xx response")
	}
}
