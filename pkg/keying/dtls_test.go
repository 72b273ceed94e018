package keying

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityProviderContextNotReadyWhenClosuresUnset(t *testing.T) {
	p := &SecurityProvider{}
	ctx := p.Context()
	assert.False(t, ctx.Ready())
}

func TestSecurityProviderContextReadyWithAllFourClosures(t *testing.T) {
	noop := func(buf []byte) (int, error) { return len(buf), nil }
	p := &SecurityProvider{
		ProtectRTP:    noop,
		UnprotectRTP:  noop,
		ProtectRTCP:   noop,
		UnprotectRTCP: noop,
	}
	ctx := p.Context()
	assert.True(t, ctx.Ready())

	n, err := ctx.ProtectRTP([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSecurityProviderCloseWithNilConnIsNoop(t *testing.T) {
	p := &SecurityProvider{}
	assert.NoError(t, p.Close())
}

func TestHandshakeConfigZeroValueHasNoFingerprintCallback(t *testing.T) {
	cfg := HandshakeConfig{Role: RoleClient}
	assert.Nil(t, cfg.VerifyFingerprint)
	assert.Equal(t, RoleClient, cfg.Role)
}
