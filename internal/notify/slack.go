package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// Notifier posts run summaries to a Slack channel. A zero Notifier (no
// token or channel configured) is valid and does nothing.
type Notifier struct {
	api     *slack.Client
	channel string
}

func New(botToken, channelID string) *Notifier {
	if botToken == "" || channelID == "" {
		return &Notifier{}
	}
	return &Notifier{api: slack.New(botToken), channel: channelID}
}

func (n *Notifier) Enabled() bool {
	return n.api != nil
}

// StageComplete posts a one-line summary for a finished stage. Posting is
// best-effort: failures are logged, never propagated into the run.
func (n *Notifier) StageComplete(stage string, records int, artifact, budgetLine string) {
	if n.api == nil {
		return
	}
	msg := fmt.Sprintf("shopforge %s complete: records=%d artifact=%s %s", stage, records, artifact, budgetLine)
	if _, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(msg, false)); err != nil {
		log.Printf("notify slack error: %v", err)
	}
}
