package checksum

// Fletcher8 computes the two-byte running sum used by satellite-receiver
// binary frames: every byte is added to A, then A is added to B.
func Fletcher8(data []byte) (a, b byte) {
	for _, v := range data {
		a += v
		b += a
	}
	return
}

// XOR8 computes the exclusive-or of all bytes, as used by NMEA sentences.
func XOR8(data []byte) byte {
	var x byte
	for _, v := range data {
		x ^= v
	}
	return x
}
