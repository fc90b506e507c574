// README: Messaging-transport boundary; inbound event types and the outbound notifier.
package notify

import (
	"context"

	"carpool/internal/types"
)

// TextEvent is an inbound, already-verified text message. The core never sees
// transport headers or signatures.
type TextEvent struct {
	RequesterID types.ID `json:"requester_id"`
	Text        string   `json:"text"`
	ReplyToken  string   `json:"reply_token"`
}

// LocationEvent is an inbound, already-verified location message.
type LocationEvent struct {
	RequesterID types.ID `json:"requester_id"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Label       string   `json:"label"`
	ReplyToken  string   `json:"reply_token"`
}

// Notifier delivers outbound messages: exactly one reply per inbound event,
// and zero or one unsolicited push to a matched counterpart.
type Notifier interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, to types.ID, text string) error
}
