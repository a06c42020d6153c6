package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Throwaway test key, never used anywhere real.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestAttestationRoundTrip(t *testing.T) {
	a, err := NewAttestor(testKeyHex)
	require.NoError(t, err)

	sig, err := a.SignPrice(1_000_000, 1_700_000_000)
	require.NoError(t, err)

	assert.NoError(t, VerifyAttestation(1_000_000, 1_700_000_000, sig, a.Address()))
}

func TestAttestationRejectsTampering(t *testing.T) {
	a, err := NewAttestor("0x" + testKeyHex)
	require.NoError(t, err)

	sig, err := a.SignPrice(1_000_000, 1_700_000_000)
	require.NoError(t, err)

	assert.Error(t, VerifyAttestation(1_000_001, 1_700_000_000, sig, a.Address()), "price changed")
	assert.Error(t, VerifyAttestation(1_000_000, 1_700_000_001, sig, a.Address()), "timestamp changed")

	other := common.HexToAddress("0x1111111111111111111111111111111111111111")
	assert.Error(t, VerifyAttestation(1_000_000, 1_700_000_000, sig, other), "wrong oracle")
}

func TestAttestationRejectsMalformedSignature(t *testing.T) {
	a, err := NewAttestor(testKeyHex)
	require.NoError(t, err)

	assert.Error(t, VerifyAttestation(1, 1, "0xdeadbeef", a.Address()))
	assert.Error(t, VerifyAttestation(1, 1, "not hex", a.Address()))
}

func TestNewAttestorRejectsBadKey(t *testing.T) {
	_, err := NewAttestor("zz")
	assert.Error(t, err)
}

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct horse")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = DecryptKey(blob, "wrong password")
	assert.Error(t, err)
}

func TestLoadKeyPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
}
