package client

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeRequest(t *testing.T) {
	got, err := encodeRequest("USER1", []string{"EW005251410US", "EW005251411US"})
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	want := `<TrackRequest USERID="USER1">` +
		`<TrackID ID="EW005251410US"></TrackID>` +
		`<TrackID ID="EW005251411US"></TrackID>` +
		`</TrackRequest>`
	if got != want {
		t.Errorf("encodeRequest() =\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeRequest_Escapes(t *testing.T) {
	got, err := encodeRequest(`a"b`, []string{"<x>"})
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	if strings.Contains(got, `<x>`) || strings.Contains(got, `a"b`) {
		t.Errorf("encodeRequest() did not escape input: %s", got)
	}
}

func TestDecodeResponse(t *testing.T) {
	ids := []string{"A1", "A2", "A3"}

	t.Run("positional matching", func(t *testing.T) {
		body := `<?xml version="1.0" encoding="UTF-8"?>
<TrackResponse>
  <TrackInfo ID="ECHO-IGNORED"><TrackSummary>first</TrackSummary><TrackDetail>d1</TrackDetail><TrackDetail>d2</TrackDetail></TrackInfo>
  <TrackInfo ID="A2"><TrackSummary>second</TrackSummary></TrackInfo>
  <TrackInfo ID="A3"><TrackSummary>third</TrackSummary><TrackDetail>  padded  </TrackDetail></TrackInfo>
</TrackResponse>`

		batch, err := decodeResponse([]byte(body), ids)
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if len(batch) != 3 {
			t.Fatalf("len = %d, want 3", len(batch))
		}
		if batch[0].ID != "A1" || batch[0].Summary != "first" || batch[0].Details != "d1\nd2" {
			t.Errorf("batch[0] = %+v", batch[0])
		}
		if batch[1].ID != "A2" || batch[1].Details != "" {
			t.Errorf("batch[1] = %+v", batch[1])
		}
		if batch[2].Details != "  padded  " {
			t.Errorf("details should be verbatim, got %q", batch[2].Details)
		}
	})

	t.Run("missing summary skipped", func(t *testing.T) {
		body := `<TrackResponse>
  <TrackInfo ID="A1"><TrackSummary>one</TrackSummary></TrackInfo>
  <TrackInfo ID="A2"><Error><Number>-2147219302</Number><Description>No record</Description></Error></TrackInfo>
  <TrackInfo ID="A3"><TrackSummary>three</TrackSummary></TrackInfo>
</TrackResponse>`

		batch, err := decodeResponse([]byte(body), ids)
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if got := batch.IDs(); len(got) != 2 || got[0] != "A1" || got[1] != "A3" {
			t.Errorf("IDs = %v, want [A1 A3]", got)
		}
	})

	t.Run("empty summary kept", func(t *testing.T) {
		body := `<TrackResponse><TrackInfo><TrackSummary/></TrackInfo></TrackResponse>`
		batch, err := decodeResponse([]byte(body), ids)
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if len(batch) != 1 || batch[0].ID != "A1" {
			t.Errorf("batch = %+v", batch)
		}
	})

	t.Run("fewer entries than ids", func(t *testing.T) {
		body := `<TrackResponse><TrackInfo><TrackSummary>x</TrackSummary></TrackInfo></TrackResponse>`
		batch, err := decodeResponse([]byte(body), ids)
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if len(batch) != 1 {
			t.Errorf("len = %d, want 1", len(batch))
		}
	})
}

func TestDecodeResponse_Errors(t *testing.T) {
	ids := []string{"A1"}

	tests := []struct {
		name      string
		body      string
		wantClass ErrorClass
	}{
		{
			name:      "malformed xml",
			body:      `<TrackResponse><TrackInfo>`,
			wantClass: ErrorClassParse,
		},
		{
			name:      "not xml",
			body:      `{"status": "ok"}`,
			wantClass: ErrorClassParse,
		},
		{
			name:      "unexpected root",
			body:      `<Something/>`,
			wantClass: ErrorClassParse,
		},
		{
			name: "too many entries",
			body: `<TrackResponse>
  <TrackInfo><TrackSummary>1</TrackSummary></TrackInfo>
  <TrackInfo><TrackSummary>2</TrackSummary></TrackInfo>
</TrackResponse>`,
			wantClass: ErrorClassParse,
		},
		{
			name:      "service error",
			body:      `<Error><Number>80040B1A</Number><Description>Authorization failure.</Description></Error>`,
			wantClass: ErrorClassService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResponse([]byte(tt.body), ids)
			if err == nil {
				t.Fatal("decodeResponse() expected error")
			}
			var rerr *RemoteResponseError
			if !errors.As(err, &rerr) {
				t.Fatalf("error type = %T, want *RemoteResponseError", err)
			}
			if rerr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %s, want %s", rerr.ErrorClass, tt.wantClass)
			}
		})
	}
}
