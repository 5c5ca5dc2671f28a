package consensus

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/holiman/uint256"
)

func TestSHA256HasherImplementsHasher(t *testing.T) {
	var _ Hasher = (*SHA256Hasher)(nil)
	var _ Hasher = (*X11Hasher)(nil)
}

func TestSHA256HasherDeterministic(t *testing.T) {
	h := NewSHA256Hasher()
	defer h.Close()

	input := []byte("anchord test input")
	hash1, err := h.Hash(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hash2, err := h.Hash(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash1 != hash2 {
		t.Fatalf("same input produced different hashes: %s vs %s", hash1, hash2)
	}
	if hash1 != types.DoubleSHA256(input) {
		t.Fatal("SHA256Hasher must be double-SHA256")
	}
}

// Dash mainnet genesis header, a published X11 vector.
func TestX11HasherKnownVector(t *testing.T) {
	header := types.BlockHeader{
		Version:    1,
		MerkleRoot: types.MustHash("e0028eb9648db56b1ac77cf090b99048a8007e2bb64b68f092c03c7f56a662c7"),
		Bits:       0x1e0ffff0,
		Timestamp:  time.Unix(1390095618, 0),
		Nonce:      28917698,
	}

	h := NewX11Hasher()
	defer h.Close()

	got, err := h.Hash(header.Serialize())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "00000ffd590b1485b3caadc19b22e6379c733355108f107a430458cdf3407ab6"
	if got.String() != want {
		t.Fatalf("X11(dash genesis) = %s, want %s", got, want)
	}
}

func TestCompactRoundTrip(t *testing.T) {
	tests := []struct {
		bits uint32
		want string
	}{
		{0x1d00ffff, "00000000ffff0000000000000000000000000000000000000000000000000000"},
		{0x1f00ffff, "0000ffff00000000000000000000000000000000000000000000000000000000"},
		{0x1e0ffff0, "00000ffff0000000000000000000000000000000000000000000000000000000"},
		{0x03123456, "0000000000000000000000000000000000000000000000000000000000123456"},
	}
	for _, tt := range tests {
		target, err := CompactToTarget(tt.bits)
		if err != nil {
			t.Fatalf("CompactToTarget(%08x): %v", tt.bits, err)
		}
		b := target.Bytes32()
		if got := hex.EncodeToString(b[:]); got != tt.want {
			t.Errorf("CompactToTarget(%08x) = %s, want %s", tt.bits, got, tt.want)
		}
		if got := TargetToCompact(target); got != tt.bits {
			t.Errorf("TargetToCompact(CompactToTarget(%08x)) = %08x", tt.bits, got)
		}
	}
}

func TestCompactRejectsBadEncodings(t *testing.T) {
	if _, err := CompactToTarget(0x01803456); !errors.Is(err, ErrTargetNegative) {
		t.Errorf("negative bits: got %v, want ErrTargetNegative", err)
	}
	if _, err := CompactToTarget(0xff123456); !errors.Is(err, ErrTargetOverflow) {
		t.Errorf("overflowing bits: got %v, want ErrTargetOverflow", err)
	}
}

func TestCheckProofOfWork(t *testing.T) {
	limit := PowLimitFromShift(16)
	good := types.MustHash("000032661a7011e49ee28d45efce8208a9820a96ba9daf74d9a36451a740043d")
	bad := types.MustHash("000132661a7011e49ee28d45efce8208a9820a96ba9daf74d9a36451a740043d")

	tests := []struct {
		name    string
		hash    types.Hash
		bits    uint32
		limit   *uint256.Int
		wantErr error
	}{
		{"genesis meets its target", good, 0x1f00ffff, limit, nil},
		{"hash above target", bad, 0x1f00ffff, limit, ErrHashAboveTarget},
		{"target above limit", good, 0x2000ffff, limit, ErrTargetAboveLimit},
		{"zero target", good, 0x1f000000, limit, ErrTargetZero},
		{"no limit configured", good, 0x1f00ffff, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckProofOfWork(tt.hash, tt.bits, tt.limit)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
