// Package testutil provides testing utilities for the tracking scanner.
package testutil

import (
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Entry is one TrackInfo element of a mock response.
type Entry struct {
	// EchoID is written to the ID attribute; the client ignores it.
	EchoID    string
	Summary   string
	NoSummary bool
	Details   []string
}

// Responder builds the mock answer for one request.
type Responder func(ids []string) (status int, body string)

// MockUSPS is a configurable mock TrackV2 endpoint for testing.
type MockUSPS struct {
	server    *httptest.Server
	mu        sync.RWMutex
	responder Responder
	delay     time.Duration

	// Tracking
	RequestCount int
	LastUserID   string
	LastIDs      []string
	Requests     [][]string
}

type mockRequest struct {
	XMLName  xml.Name `xml:"TrackRequest"`
	UserID   string   `xml:"USERID,attr"`
	TrackIDs []struct {
		ID string `xml:"ID,attr"`
	} `xml:"TrackID"`
}

// NewMockUSPS creates a mock server that answers every identifier with
// DefaultEntry.
func NewMockUSPS() *MockUSPS {
	mock := &MockUSPS{responder: EveryID(DefaultEntry)}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

func (m *MockUSPS) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("API") != "TrackV2" {
		http.Error(w, "unknown API", http.StatusBadRequest)
		return
	}

	var req mockRequest
	if err := xml.Unmarshal([]byte(r.URL.Query().Get("XML")), &req); err != nil {
		http.Error(w, "bad XML", http.StatusBadRequest)
		return
	}
	ids := make([]string, len(req.TrackIDs))
	for i, t := range req.TrackIDs {
		ids[i] = t.ID
	}

	m.mu.Lock()
	m.RequestCount++
	m.LastUserID = req.UserID
	m.LastIDs = ids
	m.Requests = append(m.Requests, ids)
	responder := m.responder
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	status, body := responder(ids)
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// URL returns the mock ShippingAPI endpoint.
func (m *MockUSPS) URL() string {
	return m.server.URL + "/ShippingAPI.dll"
}

// Close shuts down the mock server.
func (m *MockUSPS) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUSPS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastUserID = ""
	m.LastIDs = nil
	m.Requests = nil
}

// SetResponder replaces how requests are answered.
func (m *MockUSPS) SetResponder(r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = r
}

// SetDelay makes every response wait d before being written.
func (m *MockUSPS) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUSPS) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastUserID returns the USERID of the most recent request.
func (m *MockUSPS) GetLastUserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastUserID
}

// GetRequests returns a copy of the identifier lists received so far.
func (m *MockUSPS) GetRequests() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]string, len(m.Requests))
	copy(out, m.Requests)
	return out
}

// DefaultEntry answers id with a summary and two detail lines.
func DefaultEntry(id string) Entry {
	return Entry{
		EchoID:  id,
		Summary: "Your item was delivered " + id,
		Details: []string{
			"Departed PHILADELPHIA PA INTERNATIONAL DISTRIBUTION CENTER",
			"Arrived FRANCE",
		},
	}
}

// EveryID answers each requested identifier with entry(id).
func EveryID(entry func(id string) Entry) Responder {
	return func(ids []string) (int, string) {
		entries := make([]Entry, len(ids))
		for i, id := range ids {
			entries[i] = entry(id)
		}
		return http.StatusOK, TrackResponse(entries...)
	}
}

// MissingSummary answers like EveryID(DefaultEntry) but leaves out the
// summary for the listed identifiers.
func MissingSummary(ids ...string) Responder {
	missing := make(map[string]bool, len(ids))
	for _, id := range ids {
		missing[id] = true
	}
	return EveryID(func(id string) Entry {
		e := DefaultEntry(id)
		e.NoSummary = missing[id]
		return e
	})
}

// Status answers every request with a fixed status and body.
func Status(code int, body string) Responder {
	return func([]string) (int, string) {
		return code, body
	}
}

// Malformed answers with a truncated document.
func Malformed() Responder {
	return Status(http.StatusOK, `<TrackResponse><TrackInfo ID="x"><TrackSummary>`)
}

// ServiceError answers with a root <Error> document, as the service does
// for authorization failures.
func ServiceError(number, description string) Responder {
	return Status(http.StatusOK, fmt.Sprintf(
		"<Error><Number>%s</Number><Description>%s</Description></Error>",
		html.EscapeString(number), html.EscapeString(description)))
}

// TrackResponse renders a TrackResponse document from entries.
func TrackResponse(entries ...Entry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<TrackResponse>")
	for _, e := range entries {
		fmt.Fprintf(&b, `<TrackInfo ID="%s">`, html.EscapeString(e.EchoID))
		if e.NoSummary {
			b.WriteString("<Error><Number>-2147219302</Number>" +
				"<Description>The Postal Service could not locate the tracking information for your request.</Description></Error>")
		} else {
			fmt.Fprintf(&b, "<TrackSummary>%s</TrackSummary>", html.EscapeString(e.Summary))
			for _, d := range e.Details {
				fmt.Fprintf(&b, "<TrackDetail>%s</TrackDetail>", html.EscapeString(d))
			}
		}
		b.WriteString("</TrackInfo>")
	}
	b.WriteString("</TrackResponse>")
	return b.String()
}
