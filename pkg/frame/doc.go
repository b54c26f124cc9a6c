// Package frame defines the contract shared by every link protocol decoder.
//
// A Decoder is fed raw bytes in whatever chunks the link delivers them,
// extracts complete frames that pass the protocol's integrity checks and
// reports how many more bytes it needs before the next frame can possibly
// be extracted. Frames that straddle two chunks are carried over inside the
// decoder, bounded by the protocol's maximum frame size.
//
// Decoders never fail: framing errors resynchronize on the next frame start,
// integrity errors drop exactly one frame. Both are counted in Stats.
package frame
