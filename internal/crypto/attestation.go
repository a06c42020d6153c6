package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// attestationPrefix domain-separates price attestations from any other
// message the oracle key might ever sign.
const attestationPrefix = "\x19wagerhouse price attestation:\n"

// Attestor signs price observations with the oracle's secp256k1 key so the
// settlement daemon can verify that a submitted price really came from the
// configured oracle.
type Attestor struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewAttestor creates an Attestor from a hex-encoded secp256k1 private key.
func NewAttestor(privateKeyHex string) (*Attestor, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}

	return &Attestor{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the oracle address derived from the signing key.
func (a *Attestor) Address() common.Address {
	return a.address
}

// SignPrice signs a price observation and returns the hex-encoded 65-byte
// signature (r || s || v, v in {27,28}).
func (a *Attestor) SignPrice(price, timestamp uint64) (string, error) {
	sig, err := ethcrypto.Sign(attestationDigest(price, timestamp), a.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: signing attestation: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// VerifyAttestation checks that sigHex is a valid signature over the price
// observation by the key behind expected. It returns an error for malformed
// signatures or a signer mismatch.
func VerifyAttestation(price, timestamp uint64, sigHex string, expected common.Address) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return fmt.Errorf("crypto: decoding attestation signature: %w", err)
	}
	if len(sig) != 65 {
		return fmt.Errorf("crypto: attestation signature must be 65 bytes, got %d", len(sig))
	}

	// Normalise v back to {0,1} for recovery.
	recoverSig := make([]byte, 65)
	copy(recoverSig, sig)
	if recoverSig[64] >= 27 {
		recoverSig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(attestationDigest(price, timestamp), recoverSig)
	if err != nil {
		return fmt.Errorf("crypto: recovering attestation signer: %w", err)
	}
	if ethcrypto.PubkeyToAddress(*pub) != expected {
		return fmt.Errorf("crypto: attestation signed by wrong key")
	}
	return nil
}

// attestationDigest computes keccak256(prefix || price || timestamp) with
// both integers big-endian encoded.
func attestationDigest(price, timestamp uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString(attestationPrefix)
	var u [8]byte
	binary.BigEndian.PutUint64(u[:], price)
	buf.Write(u[:])
	binary.BigEndian.PutUint64(u[:], timestamp)
	buf.Write(u[:])
	return ethcrypto.Keccak256(buf.Bytes())
}
