package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/sdk"
)

type lobbyCreateArgs struct {
	Secret      *string `json:"secret"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

func (d *Dispatcher) createOrJoinLobby(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyCreateArgs](raw)
	if err != nil {
		return nil, err
	}
	secret, err := requireString("secret", args.Secret)
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, 2)
	if args.Title != "" {
		metadata["title"] = args.Title
	}
	if args.Description != "" {
		metadata["description"] = args.Description
	}

	lobbyID, err := await.Do(ctx, d.session, d.timeouts.Lobby, "create or join lobby", func(tok *await.Token[uint64]) error {
		client.CreateOrJoinLobby(secret, metadata, sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lobbyIDResult{LobbyID: Snowflake(lobbyID)}, nil
}

func (d *Dispatcher) getLobbyIDs(_ context.Context, client sdk.Client, _ json.RawMessage) (any, error) {
	// Lobby membership updates arrive through callbacks.
	d.session.RunCallbacks()

	ids := client.GetLobbyIDs()
	slices.Sort(ids)

	out := make([]Snowflake, 0, len(ids))
	for _, id := range ids {
		out = append(out, Snowflake(id))
	}
	return lobbyIDsResult{LobbyIDs: out}, nil
}

type lobbyArgs struct {
	LobbyID *Snowflake `json:"lobby_id"`
}

func (d *Dispatcher) getLobby(_ context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyArgs](raw)
	if err != nil {
		return nil, err
	}
	lobbyID, err := requireID("lobby_id", args.LobbyID)
	if err != nil {
		return nil, err
	}

	d.session.RunCallbacks()

	metadata, ok := client.GetLobbyMetadata(lobbyID)
	if !ok {
		return nil, fmt.Errorf("lobby %d not found", lobbyID)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return lobbyResult{LobbyID: Snowflake(lobbyID), Metadata: metadata}, nil
}

func (d *Dispatcher) leaveLobby(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyArgs](raw)
	if err != nil {
		return nil, err
	}
	lobbyID, err := requireID("lobby_id", args.LobbyID)
	if err != nil {
		return nil, err
	}

	_, err = await.Do(ctx, d.session, d.timeouts.Lobby, "leave lobby", func(tok *await.Token[struct{}]) error {
		client.LeaveLobby(lobbyID, sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return leftResult{Left: true}, nil
}
