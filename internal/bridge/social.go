package bridge

import (
	"context"
	"encoding/json"

	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/sdk"
)

func (d *Dispatcher) getGuilds(ctx context.Context, client sdk.Client, _ json.RawMessage) (any, error) {
	guilds, err := await.Do(ctx, d.session, d.timeouts.Query, "get guilds", func(tok *await.Token[[]sdk.Guild]) error {
		client.GetUserGuilds(sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]guildJSON, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, guildJSON{ID: Snowflake(g.ID), Name: g.Name})
	}
	return guildsResult{Guilds: out}, nil
}

type guildArgs struct {
	GuildID *Snowflake `json:"guild_id"`
}

func (d *Dispatcher) getGuildChannels(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[guildArgs](raw)
	if err != nil {
		return nil, err
	}
	guildID, err := requireID("guild_id", args.GuildID)
	if err != nil {
		return nil, err
	}

	channels, err := await.Do(ctx, d.session, d.timeouts.Query, "get guild channels", func(tok *await.Token[[]sdk.GuildChannel]) error {
		client.GetGuildChannels(guildID, sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]channelJSON, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelJSON{ID: Snowflake(ch.ID), Name: ch.Name, Type: ch.Type})
	}
	return channelsResult{Channels: out}, nil
}

func (d *Dispatcher) getRelationships(_ context.Context, client sdk.Client, _ json.RawMessage) (any, error) {
	relationships := client.GetRelationships()

	out := make([]friendJSON, 0, len(relationships))
	for _, r := range relationships {
		out = append(out, friendJSON{ID: Snowflake(r.ID), Username: r.Username})
	}
	return friendsResult{Friends: out}, nil
}

type activityArgs struct {
	State   string `json:"state"`
	Details string `json:"details"`
}

func (d *Dispatcher) setActivity(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[activityArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.State == "" && args.Details == "" {
		return nil, &ValidationError{Field: "state", Reason: "or details is required"}
	}

	activity := sdk.Activity{State: args.State, Details: args.Details}
	_, err = await.Do(ctx, d.session, d.timeouts.Presence, "update rich presence", func(tok *await.Token[struct{}]) error {
		client.UpdateRichPresence(activity, sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updatedResult{Updated: true}, nil
}
