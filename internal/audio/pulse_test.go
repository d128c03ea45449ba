package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func headset() []Device {
	return []Device{
		{ID: "alsa_input.usb-blue_yeti", Description: "Blue Yeti", Available: true, Default: true},
		{ID: "bluez_input.headset", Description: "WH-1000XM5 Headset", Available: true},
	}
}

func TestResolveDefault(t *testing.T) {
	selection, err := Resolve(headset(), "default", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-blue_yeti", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)

	selection, err = Resolve(headset(), "", "")
	require.NoError(t, err)
	require.True(t, selection.Device.Default)
}

func TestResolveMatchesDescriptionCaseInsensitively(t *testing.T) {
	selection, err := Resolve(headset(), "wh-1000", "default")
	require.NoError(t, err)
	require.Equal(t, "bluez_input.headset", selection.Device.ID)
}

func TestResolveMutedPrimaryFallsBack(t *testing.T) {
	devices := headset()
	devices[1].Muted = true

	selection, err := Resolve(devices, "headset", "yeti")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-blue_yeti", selection.Device.ID)
	require.True(t, selection.Fallback)
	require.Contains(t, selection.Warning, "muted")
}

func TestResolveFailures(t *testing.T) {
	_, err := Resolve(nil, "default", "default")
	require.EqualError(t, err, "no audio input devices found")

	_, err = Resolve(headset(), "missing", "default")
	require.ErrorContains(t, err, "did not match")

	muted := headset()[:1]
	muted[0].Muted = true
	_, err = Resolve(muted, "default", "default")
	require.ErrorContains(t, err, "is muted")

	unavailable := headset()
	unavailable[0].Available = false
	_, err = Resolve(unavailable, "yeti", "nowhere")
	require.ErrorContains(t, err, "audio.fallback")
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)
}

func TestListDevicesHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	_, err := ListDevices(ctx)
	require.Error(t, err)
}

func TestToDevices(t *testing.T) {
	active := &pulseproto.GetSourceInfoReply{SourceName: "mic", Device: "USB Mic", ActivePortName: "analog", State: 1}
	setSourcePorts(t, active, []sourcePort{{name: "analog", available: 2}})

	unplugged := &pulseproto.GetSourceInfoReply{SourceName: "jack", ActivePortName: "analog", Mute: true, State: 2}
	setSourcePorts(t, unplugged, []sourcePort{{name: "analog", available: 1}})

	devices := toDevices(pulseproto.GetSourceInfoListReply{active, nil, unplugged}, "mic")
	require.Equal(t, []Device{
		{ID: "mic", Description: "USB Mic", State: "idle", Available: true, Default: true},
		{ID: "jack", State: "suspended", Available: false, Muted: true},
	}, devices)
}

func TestSourceState(t *testing.T) {
	require.Equal(t, "running", sourceState(0))
	require.Equal(t, "unknown(99)", sourceState(99))
}

type sourcePort struct {
	name      string
	available uint32
}

// setSourcePorts fills the anonymous port struct slice pulse declares inline.
func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceValue := reflect.MakeSlice(reflect.TypeOf(reply.Ports), len(ports), len(ports))
	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
