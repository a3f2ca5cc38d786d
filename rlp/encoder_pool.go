package rlp

// EncodeBytes32 encodes a fixed 32-byte value (a node or account hash)
// without going through the reflection-based encoder. The result is
// always a 33-byte RLP string header followed by the 32 data bytes:
// [0xa0, data[32]]. trie.hasher uses this on its hot path, where every
// hashNode value is exactly 32 bytes by construction.
func EncodeBytes32(data [32]byte) []byte {
	buf := make([]byte, 33)
	buf[0] = 0x80 + 32
	copy(buf[1:], data[:])
	return buf
}
