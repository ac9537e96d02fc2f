// Package ringbuf provides ring buffers for variable-length payloads
// in three disciplines:
//
//   - NoSplit: framed items that never wrap; a receive always yields
//     one contiguous view.
//   - Split: framed items that may wrap around the end of the buffer;
//     a receive yields a head and a tail view whose concatenation is
//     the sent payload.
//   - ByteBuffer: a raw byte stream with no framing; a receive yields
//     up to a caller-chosen number of contiguous bytes.
//
// Receives are zero-copy: the returned Item views the buffer's own
// storage, and the caller must hand it back with Return once done so
// the space can be reused. Returns may be out of order for framed
// buffers; the freed space becomes reusable once every older item has
// been returned as well.
//
// The framed disciplines spend align4(len)+8 bytes per item (an
// 8-byte header plus padding to a 4-byte boundary). RequiredSize
// encodes that rule for sizing static and external buffers; skipping
// it undersizes the buffer and sends start failing well before the
// nominal capacity. The byte-buffer discipline has no per-item
// overhead.
//
// A ring buffer is a wait-set member, but its token match is not
// plain identity: a token matches only while the buffer holds at
// least one fully committed readable item.
package ringbuf
