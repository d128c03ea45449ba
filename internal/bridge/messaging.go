package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/sdk"
)

type channelMessageArgs struct {
	ChannelID *Snowflake `json:"channel_id"`
	Content   *string    `json:"content"`
}

func (d *Dispatcher) sendMessage(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[channelMessageArgs](raw)
	if err != nil {
		return nil, err
	}
	channelID, err := requireID("channel_id", args.ChannelID)
	if err != nil {
		return nil, err
	}
	content, err := requireContent(args.Content)
	if err != nil {
		return nil, err
	}

	if _, err := d.send(ctx, "send message", channelID, content, client.SendLobbyMessage); err != nil {
		return nil, err
	}
	return sentResult{Sent: true}, nil
}

type lobbyMessageArgs struct {
	LobbyID *Snowflake `json:"lobby_id"`
	Content *string    `json:"content"`
}

func (d *Dispatcher) sendLobbyMessage(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyMessageArgs](raw)
	if err != nil {
		return nil, err
	}
	lobbyID, err := requireID("lobby_id", args.LobbyID)
	if err != nil {
		return nil, err
	}
	content, err := requireContent(args.Content)
	if err != nil {
		return nil, err
	}

	if _, err := d.send(ctx, "send lobby message", lobbyID, content, client.SendLobbyMessage); err != nil {
		return nil, err
	}
	return sentResult{Sent: true}, nil
}

type directMessageArgs struct {
	RecipientID *Snowflake `json:"recipient_id"`
	Content     *string    `json:"content"`
}

func (d *Dispatcher) sendDM(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[directMessageArgs](raw)
	if err != nil {
		return nil, err
	}
	recipientID, err := requireID("recipient_id", args.RecipientID)
	if err != nil {
		return nil, err
	}
	content, err := requireContent(args.Content)
	if err != nil {
		return nil, err
	}

	messageID, err := d.send(ctx, "send dm", recipientID, content, client.SendUserMessage)
	if err != nil {
		return nil, err
	}
	return messageIDResult{MessageID: Snowflake(messageID)}, nil
}

type sendFunc func(target uint64, content string, cb sdk.Callback[uint64])

func (d *Dispatcher) send(ctx context.Context, op string, target uint64, content string, fn sendFunc) (uint64, error) {
	return await.Do(ctx, d.session, d.timeouts.Messaging, op, func(tok *await.Token[uint64]) error {
		fn(target, content, sdk.Into(tok))
		return nil
	})
}

type lobbyHistoryArgs struct {
	LobbyID *Snowflake `json:"lobby_id"`
	Limit   *int       `json:"limit"`
}

func (d *Dispatcher) getLobbyMessages(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyHistoryArgs](raw)
	if err != nil {
		return nil, err
	}
	lobbyID, err := requireID("lobby_id", args.LobbyID)
	if err != nil {
		return nil, err
	}
	limit, err := messageLimit(args.Limit)
	if err != nil {
		return nil, err
	}

	return d.history(ctx, "get lobby messages", lobbyID, limit, client.GetLobbyMessages)
}

type userHistoryArgs struct {
	RecipientID *Snowflake `json:"recipient_id"`
	Limit       *int       `json:"limit"`
}

func (d *Dispatcher) getUserMessages(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[userHistoryArgs](raw)
	if err != nil {
		return nil, err
	}
	recipientID, err := requireID("recipient_id", args.RecipientID)
	if err != nil {
		return nil, err
	}
	limit, err := messageLimit(args.Limit)
	if err != nil {
		return nil, err
	}

	return d.history(ctx, "get user messages", recipientID, limit, client.GetUserMessages)
}

type historyFunc func(id uint64, limit int, cb sdk.Callback[[]sdk.Message])

func (d *Dispatcher) history(ctx context.Context, op string, id uint64, limit int, fn historyFunc) (any, error) {
	messages, err := await.Do(ctx, d.session, d.timeouts.Query, op, func(tok *await.Token[[]sdk.Message]) error {
		fn(id, limit, sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toMessages(messages), nil
}

type messageArgs struct {
	MessageID *Snowflake `json:"message_id"`
}

func (d *Dispatcher) getMessage(_ context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[messageArgs](raw)
	if err != nil {
		return nil, err
	}
	messageID, err := requireID("message_id", args.MessageID)
	if err != nil {
		return nil, err
	}

	msg, ok := client.GetMessage(messageID)
	if !ok {
		return nil, fmt.Errorf("message %d not found", messageID)
	}
	return toMessage(msg), nil
}
