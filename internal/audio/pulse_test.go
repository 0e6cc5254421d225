package audio

import (
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSourceStateString(t *testing.T) {
	for state, want := range map[uint32]string{0: "running", 1: "idle", 2: "suspended", 3: "unknown(3)", 99: "unknown(99)"} {
		require.Equal(t, want, sourceStateString(state))
	}
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	tests := []struct {
		name   string
		active string
		ports  []sourcePort
		want   bool
	}{
		{name: "active port yes", active: "mic", ports: []sourcePort{{name: "mic", available: 2}}, want: true},
		{name: "active port unknown", active: "mic", ports: []sourcePort{{name: "mic", available: 0}}, want: true},
		{name: "active port unplugged", active: "mic", ports: []sourcePort{{name: "line", available: 2}, {name: "mic", available: 1}}, want: false},
		{name: "inactive port unplugged", active: "line", ports: []sourcePort{{name: "mic", available: 1}}, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reply := &pulseproto.GetSourceInfoReply{ActivePortName: tc.active}
			setSourcePorts(t, reply, tc.ports)
			require.Equal(t, tc.want, sourceAvailable(reply))
		})
	}
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	var got []byte
	writer := writerFunc(func(b []byte) (int, error) {
		got = b
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, got)
}

type sourcePort struct {
	name      string
	available uint32
}

// setSourcePorts fills the unexported port element type through reflection.
func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
