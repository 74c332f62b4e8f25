package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// InboundMessage is the provider-agnostic shape of one received message.
// MessageID is the gateway's id and is used downstream as the dedup key.
type InboundMessage struct {
	Instance   string    `json:"instance"`
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	Text       string    `json:"text"`
	FromMe     bool      `json:"from_me"`
	ReceivedAt time.Time `json:"received_at"`
}

// webhookEnvelope captures the subset of the Evolution "messages.upsert"
// webhook we care about. Routing decisions are not made here; this file is
// provider-adapter-only.
type webhookEnvelope struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		Message struct {
			Conversation    string `json:"conversation"`
			ExtendedTextMsg struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
		MessageTimestamp int64 `json:"messageTimestamp"`
	} `json:"data"`
}

var (
	ErrNotAMessageEvent = errors.New("gateway: not a message event")
	ErrMalformedWebhook = errors.New("gateway: malformed webhook payload")
)

// ParseInboundWebhook decodes a gateway webhook request into an
// InboundMessage. Non-message events return ErrNotAMessageEvent so callers
// can acknowledge and drop them.
func ParseInboundWebhook(r *http.Request) (InboundMessage, error) {
	return ParseInboundPayload(r.Body)
}

// ParseInboundPayload decodes a webhook body. It is split out so the queue
// worker can reuse it for AMQP-delivered events.
func ParseInboundPayload(body io.Reader) (InboundMessage, error) {
	var env webhookEnvelope
	if err := json.NewDecoder(io.LimitReader(body, 256<<10)).Decode(&env); err != nil {
		return InboundMessage{}, ErrMalformedWebhook
	}
	if env.Event != "messages.upsert" {
		return InboundMessage{}, ErrNotAMessageEvent
	}
	if env.Instance == "" || env.Data.Key.ID == "" {
		return InboundMessage{}, ErrMalformedWebhook
	}

	text := env.Data.Message.Conversation
	if text == "" {
		text = env.Data.Message.ExtendedTextMsg.Text
	}

	received := time.Now().UTC()
	if env.Data.MessageTimestamp > 0 {
		received = time.Unix(env.Data.MessageTimestamp, 0).UTC()
	}

	return InboundMessage{
		Instance:   env.Instance,
		MessageID:  env.Data.Key.ID,
		From:       normalizeJid(env.Data.Key.RemoteJid),
		Text:       text,
		FromMe:     env.Data.Key.FromMe,
		ReceivedAt: received,
	}, nil
}

// normalizeJid strips the WhatsApp JID suffix, leaving the bare phone number.
func normalizeJid(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		jid = jid[:i]
	}
	return strings.TrimSpace(jid)
}
