package livestatus

import "encoding/json"

// Server message types. campaign_update carries a status payload in
// Data; the rest are protocol chatter or informational.
const (
	TypeConnection     = "connection"
	TypePong           = "pong"
	TypeKeepalive      = "keepalive"
	TypeSubscribed     = "subscribed"
	TypeEcho           = "echo"
	TypeError          = "error"
	TypeCampaignUpdate = "campaign_update"
)

// Client message types.
const (
	typePing      = "ping"
	typeSubscribe = "subscribe_campaign"
)

// Message is the wire envelope for everything the server pushes. Only
// Type is always present; the rest depends on the message kind.
type Message struct {
	Type       string          `json:"type"`
	CampaignID string          `json:"campaign_id,omitempty"`
	Status     string          `json:"status,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Original   json.RawMessage `json:"original,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

type clientMessage struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaign_id,omitempty"`
}
