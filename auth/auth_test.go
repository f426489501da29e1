package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	s, err := LoadOrCreate(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	tok := s.Token("bedwars-1")
	if !s.Verify("bedwars-1", tok) {
		t.Fatalf("expected token to verify against its own server id")
	}
	if s.Verify("bedwars-2", tok) {
		t.Fatalf("token must not verify against a different server id")
	}
	if s.Verify("bedwars-1", "not-a-real-token") {
		t.Fatalf("garbage token must not verify")
	}
}

func TestLoadOrCreatePersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	s1, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("first LoadOrCreate: %v", err)
	}
	s2, err := LoadOrCreate(dir)
	if err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}
	tok := s1.Token("s1")
	if !s2.Verify("s1", tok) {
		t.Fatalf("a token minted by the first signer must verify against the reloaded key")
	}
}
