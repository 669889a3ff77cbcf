package listener

import "github.com/bwmarrin/discordgo"

// Message is one inbound chat message as seen by the listener.
type Message struct {
	ID        string
	ChannelID string
	Embeds    []*discordgo.MessageEmbed
}

// Outcome is the terminal state a message reached in Handle.
type Outcome string

// Outcomes of Handle
const (
	OutcomeNoEmbeds       Outcome = "no_embeds"
	OutcomeChannelIgnored Outcome = "channel_ignored"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeForwarded      Outcome = "forwarded"
	OutcomeForwardFailed  Outcome = "forward_failed"
)
