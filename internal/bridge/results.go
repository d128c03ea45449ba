package bridge

import (
	"time"

	"github.com/rbright/socialbridge/internal/events"
	"github.com/rbright/socialbridge/internal/sdk"
)

type statusResult struct {
	Status string `json:"status"`
}

type sessionStatusResult struct {
	State     string `json:"state"`
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

type pongResult struct {
	Pong bool `json:"pong"`
}

type guildJSON struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

type guildsResult struct {
	Guilds []guildJSON `json:"guilds"`
}

type channelJSON struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
	Type int       `json:"type"`
}

type channelsResult struct {
	Channels []channelJSON `json:"channels"`
}

type friendJSON struct {
	ID       Snowflake `json:"id"`
	Username string    `json:"username"`
}

type friendsResult struct {
	Friends []friendJSON `json:"friends"`
}

type messageJSON struct {
	ID        Snowflake `json:"id"`
	AuthorID  Snowflake `json:"author_id"`
	ChannelID Snowflake `json:"channel_id"`
	Content   string    `json:"content"`
	// Timestamp is Unix milliseconds as reported by the vendor.
	Timestamp uint64 `json:"timestamp"`
}

type messagesResult struct {
	Messages []messageJSON `json:"messages"`
}

type sentResult struct {
	Sent bool `json:"sent"`
}

type messageIDResult struct {
	MessageID Snowflake `json:"message_id"`
}

type messageEventJSON struct {
	MessageID Snowflake `json:"message_id"`
	Timestamp string    `json:"timestamp"`
}

type messageEventsResult struct {
	Messages []messageEventJSON `json:"messages"`
}

type lobbyIDResult struct {
	LobbyID Snowflake `json:"lobby_id"`
}

type lobbyIDsResult struct {
	LobbyIDs []Snowflake `json:"lobby_ids"`
}

type lobbyResult struct {
	LobbyID  Snowflake         `json:"lobby_id"`
	Metadata map[string]string `json:"metadata"`
}

type leftResult struct {
	Left bool `json:"left"`
}

type mutedResult struct {
	Muted bool `json:"muted"`
}

type deafenedResult struct {
	Deafened bool `json:"deafened"`
}

type connectedResult struct {
	Connected  bool   `json:"connected"`
	CallStatus string `json:"call_status"`
}

type disconnectedResult struct {
	Disconnected bool `json:"disconnected"`
}

type updatedResult struct {
	Updated bool `json:"updated"`
}

func toMessages(in []sdk.Message) messagesResult {
	out := make([]messageJSON, 0, len(in))
	for _, m := range in {
		out = append(out, toMessage(m))
	}
	return messagesResult{Messages: out}
}

func toMessage(m sdk.Message) messageJSON {
	return messageJSON{
		ID:        Snowflake(m.ID),
		AuthorID:  Snowflake(m.AuthorID),
		ChannelID: Snowflake(m.ChannelID),
		Content:   m.Content,
		Timestamp: m.SentAt,
	}
}

func toMessageEvents(in []events.Event) messageEventsResult {
	out := make([]messageEventJSON, 0, len(in))
	for _, ev := range in {
		out = append(out, messageEventJSON{
			MessageID: Snowflake(ev.MessageID),
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return messageEventsResult{Messages: out}
}
