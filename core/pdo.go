package core

import "encoding/binary"

// RxPDOSize and TxPDOSize are the per-slave byte counts for CSP mode: one
// u16 controlword/statusword plus one i32 target/actual position.
const (
	RxPDOSize = 6
	TxPDOSize = 6
)

// EncodeRxPDO packs a controlword and target position into the 6-byte
// little-endian layout the CSP RxPDO mapping (0x1600) expects:
// [cw_lo, cw_hi, tgt_b0, tgt_b1, tgt_b2, tgt_b3].
func EncodeRxPDO(controlword uint16, target int32) [RxPDOSize]byte {
	var buf [RxPDOSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], controlword)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(target))
	return buf
}

// DecodeTxPDO unpacks a statusword and actual position from the 6-byte
// little-endian TxPDO layout (0x1A00): [sw_lo, sw_hi, pos_b0..pos_b3].
func DecodeTxPDO(buf []byte) (statusword uint16, actual int32) {
	statusword = binary.LittleEndian.Uint16(buf[0:2])
	actual = int32(binary.LittleEndian.Uint32(buf[2:6]))
	return statusword, actual
}

// EncodeTxPDO packs a statusword and actual position into the 6-byte
// little-endian TxPDO layout. The core itself only ever decodes TxPDOs
// (it reads them from the slave); EncodeTxPDO exists for the other side
// of the wire — a simulated or test slave building the buffer the core
// will decode.
func EncodeTxPDO(statusword uint16, actual int32) [TxPDOSize]byte {
	var buf [TxPDOSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], statusword)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(actual))
	return buf
}

// DecodeRxPDO unpacks a controlword and target position from the 6-byte
// little-endian RxPDO layout (0x1600). It is the inverse of EncodeRxPDO
// and, being bit-for-bit identical in shape to DecodeTxPDO, exists mainly
// so callers reading back an RxPDO buffer (e.g. a simulated master) don't
// have to borrow the TxPDO decoder's field names.
func DecodeRxPDO(buf []byte) (controlword uint16, target int32) {
	controlword = binary.LittleEndian.Uint16(buf[0:2])
	target = int32(binary.LittleEndian.Uint32(buf[2:6]))
	return controlword, target
}

// clampToInt32 saturates a driver-scale pulse value to the range PDO
// targets can carry. The Trajectory Generator and Cross-Coupling Stage are
// expected to keep values well within range in normal operation; this is
// the last-resort guard the codec's caller is responsible for per
// spec.md §4.1.
func clampToInt32(v int64) int32 {
	const maxI32 = int64(1<<31 - 1)
	const minI32 = -int64(1 << 31)
	if v > maxI32 {
		return int32(maxI32)
	}
	if v < minI32 {
		return int32(minI32)
	}
	return int32(v)
}
