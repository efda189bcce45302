// pkg/epoch/cid_test.go
package epoch

import "testing"

func TestCIDRoundTrip(t *testing.T) {
	cid := EncodeCID(0x12345678, 0xDEADBEEF)

	if got := cid.Epoch(); got != 0x12345678 {
		t.Errorf("expected epoch 0x12345678, got %#x", got)
	}
	if got := cid.Sequence(); got != 0xDEADBEEF {
		t.Errorf("expected sequence 0xDEADBEEF, got %#x", got)
	}
}

func TestCIDUniquenessWithinAnEpoch(t *testing.T) {
	seen := make(map[uint32]struct{})
	const epoch = uint64(7)

	for s := uint32(0); s < 10_000; s++ {
		cid := EncodeCID(epoch, s)
		if cid.Epoch() != epoch {
			t.Fatalf("epoch mismatch for sequence %d", s)
		}
		if _, dup := seen[cid.Sequence()]; dup {
			t.Fatalf("duplicate sequence %d", cid.Sequence())
		}
		seen[cid.Sequence()] = struct{}{}
	}
}
