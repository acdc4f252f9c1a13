package client

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/Sternrassler/tracking-scanner/pkg/tracking"
)

// trackRequest is the TrackV2 request document.
type trackRequest struct {
	XMLName  xml.Name  `xml:"TrackRequest"`
	UserID   string    `xml:"USERID,attr"`
	TrackIDs []trackID `xml:"TrackID"`
}

type trackID struct {
	ID string `xml:"ID,attr"`
}

// trackResponse decodes either a TrackResponse document or a root Error
// document; XMLName tells them apart.
type trackResponse struct {
	XMLName     xml.Name
	Infos       []trackInfo `xml:"TrackInfo"`
	Number      string      `xml:"Number"`
	Description string      `xml:"Description"`
}

type trackInfo struct {
	ID      string   `xml:"ID,attr"`
	Summary *string  `xml:"TrackSummary"`
	Details []string `xml:"TrackDetail"`
}

// encodeRequest renders the request document for ids.
func encodeRequest(userID string, ids []string) (string, error) {
	req := trackRequest{UserID: userID, TrackIDs: make([]trackID, len(ids))}
	for i, id := range ids {
		req.TrackIDs[i] = trackID{ID: id}
	}

	data, err := xml.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode track request: %w", err)
	}
	return string(data), nil
}

// decodeResponse matches response entries to ids by position. Entries
// without a summary are skipped.
func decodeResponse(data []byte, ids []string) (tracking.Batch, error) {
	var resp trackResponse
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&resp); err != nil {
		return nil, &RemoteResponseError{
			StatusCode: 200,
			ErrorClass: ErrorClassParse,
			Message:    "decode track response",
			Err:        err,
		}
	}

	switch resp.XMLName.Local {
	case "TrackResponse":
	case "Error":
		return nil, &RemoteResponseError{
			StatusCode: 200,
			ErrorClass: ErrorClassService,
			Message:    strings.TrimSpace(resp.Number + " " + resp.Description),
		}
	default:
		return nil, &RemoteResponseError{
			StatusCode: 200,
			ErrorClass: ErrorClassParse,
			Message:    fmt.Sprintf("unexpected root element <%s>", resp.XMLName.Local),
		}
	}

	if len(resp.Infos) > len(ids) {
		return nil, &RemoteResponseError{
			StatusCode: 200,
			ErrorClass: ErrorClassParse,
			Message:    fmt.Sprintf("%d entries for %d identifiers", len(resp.Infos), len(ids)),
		}
	}

	batch := make(tracking.Batch, 0, len(resp.Infos))
	for i, info := range resp.Infos {
		if info.Summary == nil {
			continue
		}
		batch = append(batch, tracking.Record{
			ID:      ids[i],
			Summary: *info.Summary,
			Details: strings.Join(info.Details, "\n"),
		})
	}
	return batch, nil
}
