// pkg/epoch/cid.go
package epoch

// CID is a composite transaction id: the high 32 bits carry the low 32 bits
// of the epoch at transaction start, the low 32 bits carry the issued
// sequence. This encoding is a public contract with whatever version
// visibility check consumes it and must never change bit-for-bit, even if
// the sequence counter is later widened.
type CID uint64

// EncodeCID packs an epoch id and a sequence number into a CID.
func EncodeCID(epochID uint64, sequence uint32) CID {
	return CID((epochID << 32) | uint64(sequence))
}

// Epoch extracts the epoch the CID was issued in.
func (c CID) Epoch() uint64 {
	return uint64(c) >> 32
}

// Sequence extracts the per-epoch issuance sequence.
func (c CID) Sequence() uint32 {
	return uint32(c)
}

// Before reports whether c was issued strictly earlier than other. Because
// the epoch occupies the high bits and the sequence the low bits, ordinary
// integer ordering on the packed value already matches issuance order; this
// method exists so callers compare CIDs by name instead of relying on that
// bit layout holding by coincidence.
func (c CID) Before(other CID) bool {
	return c < other
}
