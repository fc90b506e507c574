// README: Log-only notifier for local runs without a messaging provider.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"carpool/internal/types"
)

// LogNotifier writes outbound messages to the log instead of a provider. Used
// when no reply/push endpoints are configured.
type LogNotifier struct{}

func (LogNotifier) Reply(_ context.Context, replyToken, text string) error {
	log.Info().Str("reply_token", replyToken).Str("text", text).Msg("outbound reply")
	return nil
}

func (LogNotifier) Push(_ context.Context, to types.ID, text string) error {
	log.Info().Str("to", string(to)).Str("text", text).Msg("outbound push")
	return nil
}
