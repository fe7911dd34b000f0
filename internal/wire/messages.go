package wire

import (
	"encoding/json"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
)

// MsgType is the GeneralMessage.msg_type discriminant (spec §3).
type MsgType string

const (
	MsgStatusUpdate   MsgType = "StatusUpdate"
	MsgAcknowledgment MsgType = "Acknowledgment"
	MsgQuery          MsgType = "Query"
)

// GeneralMessage is the outer envelope every frame on the aggregator socket
// carries.
type GeneralMessage struct {
	Version string          `json:"version"`
	MsgType MsgType         `json:"msg_type"`
	Payload json.RawMessage `json:"payload"`
	Error   *string         `json:"error,omitempty"`
}

// QueryType discriminates a QueryMessage.
type QueryType string

const (
	QueryStatus       QueryType = "Status"
	QueryAllStatuses  QueryType = "AllStatuses"
)

// QueryMessage is the payload of an inbound Query GeneralMessage.
type QueryMessage struct {
	QueryType QueryType          `json:"query_type"`
	AppName   *statusmodel.AppName `json:"app_name,omitempty"`
}

// QueryResponse is the payload of the Query-typed response GeneralMessage.
type QueryResponse struct {
	Version      string                                    `json:"version"`
	AppStatus    *statusmodel.StatusRecord                  `json:"app_status,omitempty"`
	AllStatuses  map[statusmodel.AppName]statusmodel.StatusRecord `json:"all_statuses,omitempty"`
}

// AcknowledgmentPayload is the payload sent back for a StatusUpdate.
type AcknowledgmentPayload struct {
	MessageReceived bool `json:"message_received"`
}

// NewGeneralMessage marshals payload and wraps it in a GeneralMessage.
func NewGeneralMessage(version string, msgType MsgType, payload any) (GeneralMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return GeneralMessage{}, err
	}
	return GeneralMessage{Version: version, MsgType: msgType, Payload: raw}, nil
}

// NewErrorMessage wraps an error string into a GeneralMessage of the given type.
func NewErrorMessage(version string, msgType MsgType, errMsg string) GeneralMessage {
	return GeneralMessage{Version: version, MsgType: msgType, Error: &errMsg}
}
