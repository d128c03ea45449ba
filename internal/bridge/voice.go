package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rbright/socialbridge/internal/await"
	"github.com/rbright/socialbridge/internal/sdk"
)

var errStartCall = errors.New("vendor refused to start call")

func (d *Dispatcher) connectLobbyVoice(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyArgs](raw)
	if err != nil {
		return nil, err
	}
	lobbyID, err := requireID("lobby_id", args.LobbyID)
	if err != nil {
		return nil, err
	}

	// Call progress is only observable by polling, so the pump completes the
	// token once the call reports connected.
	var pending *await.Token[sdk.CallStatus]
	pump := await.PumpFunc(func() {
		d.session.RunCallbacks()
		if status, ok := client.CallStatus(lobbyID); ok && status == sdk.CallConnected {
			pending.Complete(status, nil)
		}
	})

	status, err := await.Do(ctx, pump, d.timeouts.Voice, "connect lobby voice", func(tok *await.Token[sdk.CallStatus]) error {
		pending = tok
		if !client.StartCall(lobbyID) {
			return errStartCall
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, await.ErrTimeout) {
			last, _ := client.CallStatus(lobbyID)
			return nil, fmt.Errorf("%w (call status %s)", err, last)
		}
		return nil, err
	}
	return connectedResult{Connected: true, CallStatus: status.String()}, nil
}

func (d *Dispatcher) disconnectLobbyVoice(ctx context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[lobbyArgs](raw)
	if err != nil {
		return nil, err
	}
	lobbyID, err := requireID("lobby_id", args.LobbyID)
	if err != nil {
		return nil, err
	}

	_, err = await.Do(ctx, d.session, d.timeouts.Voice, "end call", func(tok *await.Token[struct{}]) error {
		client.EndCall(lobbyID, sdk.Into(tok))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return disconnectedResult{Disconnected: true}, nil
}

type muteArgs struct {
	Mute *bool `json:"mute"`
}

func (d *Dispatcher) setMute(_ context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[muteArgs](raw)
	if err != nil {
		return nil, err
	}
	mute, err := requireBool("mute", args.Mute)
	if err != nil {
		return nil, err
	}

	client.SetSelfMute(mute)
	return mutedResult{Muted: mute}, nil
}

type deafArgs struct {
	Deaf *bool `json:"deaf"`
}

func (d *Dispatcher) setDeaf(_ context.Context, client sdk.Client, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[deafArgs](raw)
	if err != nil {
		return nil, err
	}
	deaf, err := requireBool("deaf", args.Deaf)
	if err != nil {
		return nil, err
	}

	client.SetSelfDeaf(deaf)
	return deafenedResult{Deafened: deaf}, nil
}

func (d *Dispatcher) getMuteStatus(_ context.Context, client sdk.Client, _ json.RawMessage) (any, error) {
	return mutedResult{Muted: client.SelfMute()}, nil
}

func (d *Dispatcher) getDeafStatus(_ context.Context, client sdk.Client, _ json.RawMessage) (any, error) {
	return deafenedResult{Deafened: client.SelfDeaf()}, nil
}
