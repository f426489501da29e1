// Package auth signs and verifies heartbeat tokens so a stale or forged
// heartbeat from a reused port/id can't resurrect a terminal instance.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

const privateKeyFileName = "heartbeat_ed25519"

// Signer mints and verifies per-instance heartbeat tokens from a single
// orchestrator-wide ed25519 keypair.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// LoadOrCreate reads the keypair at <dir>/heartbeat_ed25519, generating and
// persisting one (PEM-encoded, the same way an SSH host key is generated
// and persisted on first use) if absent.
func LoadOrCreate(dir string) (*Signer, error) {
	path := dir + string(os.PathSeparator) + privateKeyFileName
	if data, err := os.ReadFile(path); err == nil {
		return signerFromPEM(data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read heartbeat key %s: %w", path, err)
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate heartbeat keypair: %w", err)
	}
	sshKey, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("wrap heartbeat key: %w", err)
	}
	_ = sshKey // validates the key is well-formed per the ssh package's own checks

	block, err := pemBlockFor(priv)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("persist heartbeat key %s: %w", path, err)
	}
	return &Signer{priv: priv, pub: pub}, nil
}

func pemBlockFor(priv ed25519.PrivateKey) (*pem.Block, error) {
	return &pem.Block{Type: "ED25519 PRIVATE KEY", Bytes: priv}, nil
}

func signerFromPEM(data []byte) (*Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in heartbeat key file")
	}
	priv := ed25519.PrivateKey(block.Bytes)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("malformed ed25519 private key")
	}
	return &Signer{priv: priv, pub: pub}, nil
}

// Token signs serverId, producing an opaque base64 token suitable for
// NUMDRASSL_HEARTBEAT_TOKEN.
func (s *Signer) Token(serverID string) string {
	sig := ed25519.Sign(s.priv, []byte(serverID))
	return base64.RawURLEncoding.EncodeToString(sig)
}

// Verify reports whether token is a valid signature over serverId.
func (s *Signer) Verify(serverID, token string) bool {
	sig, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.pub, []byte(serverID), sig)
}
