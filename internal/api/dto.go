package api

import "github.com/jacksnnn/fabublox-process-selector/internal/proxy"

// TokenResponse carries the caller's resolved credential.
type TokenResponse struct {
	Token string `json:"token"`
}

// ProxyRequest is the body of the authenticated-request endpoint.
type ProxyRequest struct {
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
}

// ProcessListResponse wraps the caller's processes, most recent first.
type ProcessListResponse struct {
	Processes []proxy.ProcessMetadata `json:"processes"`
}

// SVGResponse carries a rendered preview.
type SVGResponse struct {
	SVGContent string `json:"svg_content"`
}

// TopicFieldsResponse is a topic's committed custom-field state.
// EditorURL is derived when the stored value normalizes to a canonical
// identifier; legacy opaque URL values are passed through as-is.
//
// Valid and RawInput are the soft validation cue on commit responses:
// Valid reports the normalize outcome of submitted reference input, and
// RawInput echoes the rejected text so the editing surface can redisplay
// it. Both are absent on reads and on commits that never touched the
// reference track.
type TopicFieldsResponse struct {
	DocID     string `json:"doc_id"`
	Reference string `json:"reference,omitempty"`
	EditorURL string `json:"editor_url,omitempty"`
	Preview   string `json:"preview,omitempty"`
	Valid     *bool  `json:"valid,omitempty"`
	RawInput  string `json:"raw_input,omitempty"`
}

// CommitFieldsRequest is the body of the topic fields commit endpoint.
// RawInput and Preview are optional: absent means that track was never
// touched in the editing session.
type CommitFieldsRequest struct {
	Surface  string  `json:"surface"`
	ParentID string  `json:"parent_id,omitempty"`
	RawInput *string `json:"raw_input,omitempty"`
	Preview  *string `json:"preview,omitempty"`
}
