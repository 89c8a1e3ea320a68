package checksum

import "testing"

func TestSum_KnownVector(t *testing.T) {
	got := SumString("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum(abc) = %q, want %q", got, want)
	}
}

func TestShort_PrefixOfSum(t *testing.T) {
	full := SumString("hello")
	if got := ShortString("hello", 8); got != full[:8] {
		t.Errorf("Short = %q, want %q", got, full[:8])
	}
	if got := ShortString("hello", 500); got != full {
		t.Errorf("Short with n > len should return the full digest, got %q", got)
	}
	if got := ShortString("hello", 0); len(got) != 1 {
		t.Errorf("Short with n = 0 should clamp to 1 char, got %q", got)
	}
}

func TestHasher_Algorithms(t *testing.T) {
	sha, err := NewHasher("")
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	if sha.Algorithm() != AlgorithmSHA256 {
		t.Errorf("default algorithm = %q", sha.Algorithm())
	}
	if sha.Sum([]byte("x")) != Sum([]byte("x")) {
		t.Error("sha256 hasher should match Sum")
	}

	b3, err := NewHasher(AlgorithmBLAKE3)
	if err != nil {
		t.Fatalf("NewHasher blake3: %v", err)
	}
	d := b3.Sum([]byte("x"))
	if len(d) != 64 {
		t.Errorf("blake3 digest length = %d, want 64", len(d))
	}
	if d == Sum([]byte("x")) {
		t.Error("blake3 digest should differ from sha256")
	}
	if b3.Sum([]byte("x")) != d {
		t.Error("blake3 digest should be deterministic")
	}
}

func TestHasher_Unknown(t *testing.T) {
	if _, err := NewHasher("md5"); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}
