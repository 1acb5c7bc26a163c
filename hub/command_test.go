package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

func TestCommandRelay_MissingDeviceID(t *testing.T) {
	reg, router := newTestRouter()
	relay := NewCommandRelay(reg, router, nil)

	issuer := newTestConn(t, types.RoleOperatorClient, "alice")
	err := relay.Relay(issuer.connection, types.Command{Verb: "patrol"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingDeviceID)
	assert.Equal(t, "missing_device_id", errors.Code(err))
	assertNoEnvelope(t, issuer.connection)
}

func TestCommandRelay_OfflineDeviceRejected(t *testing.T) {
	reg, router := newTestRouter()
	relay := NewCommandRelay(reg, router, nil)

	issuer := newTestConn(t, types.RoleOperatorClient, "alice")
	_, err := reg.Register(issuer.connection)
	require.NoError(t, err)

	err = relay.Relay(issuer.connection, types.Command{DeviceID: "robot-1", Verb: "patrol"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDeviceOffline)
	// Nothing delivered anywhere, no ack
	assertNoEnvelope(t, issuer.connection)
}

func TestCommandRelay_DeliversAndAcks(t *testing.T) {
	reg, router := newTestRouter()
	relay := NewCommandRelay(reg, router, nil)

	dev := newTestConn(t, types.RoleDevice, "robot-1")
	issuer := newTestConn(t, types.RoleOperatorClient, "alice")
	bystander := newTestConn(t, types.RoleOperatorClient, "bob")
	for _, c := range []*testConn{dev, issuer, bystander} {
		_, err := reg.Register(c.connection)
		require.NoError(t, err)
	}

	err := relay.Relay(issuer.connection, types.Command{
		DeviceID: "robot-1", Verb: "patrol",
		Params: map[string]any{"zone": "garden"},
	})
	require.NoError(t, err)

	// Device receives the command
	env := recvEnvelope(t, dev.connection)
	assert.Equal(t, EventRobotCommand, env.Type)
	var cmd types.Command
	require.NoError(t, json.Unmarshal(env.Data, &cmd))
	assert.Equal(t, "patrol", cmd.Verb)
	assert.Equal(t, "garden", cmd.Params["zone"])
	assert.Equal(t, issuer.id, cmd.IssuerID)
	assert.Positive(t, cmd.IssuedAt)

	// Issuer receives the ack, and only the issuer
	env = recvEnvelope(t, issuer.connection)
	assert.Equal(t, EventCommandAck, env.Type)
	var ack types.CommandAck
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, "robot-1", ack.DeviceID)
	assert.Equal(t, "patrol", ack.Verb)

	assertNoEnvelope(t, bystander.connection)
}

func TestCommandRelay_EvictedDeviceStillReachable(t *testing.T) {
	reg, router := newTestRouter()
	relay := NewCommandRelay(reg, router, nil)

	old := newTestConn(t, types.RoleDevice, "robot-1")
	_, err := reg.Register(old.connection)
	require.NoError(t, err)

	replacement := newTestConn(t, types.RoleDevice, "robot-1")
	evicted, err := reg.Register(replacement.connection)
	require.NoError(t, err)
	require.NotNil(t, evicted)

	err = relay.Relay(nil, types.Command{DeviceID: "robot-1", Verb: "stop"})
	require.NoError(t, err)

	// Only the replacement receives the command
	assert.Equal(t, EventRobotCommand, recvEnvelope(t, replacement.connection).Type)
	assertNoEnvelope(t, old.connection)
}
