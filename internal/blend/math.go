// Package blend implements the premultiplied RGBA8 compositing operators
// used by the paint pipeline.
//
// The div255 family of functions avoid integer division by using bit shifts
// and addition. mulDiv255 runs for every channel of every texel touched by a
// brush stroke or a composite pass.
//
// References:
//   - Alpha blending without division: https://arxiv.org/abs/2202.02864
//   - Alvy Ray Smith's technical memos: http://alvyray.com/Memos/
package blend

// div255 divides x by 255 using fast shift approximation.
//
// Formula: (x + 255) >> 8
//
// The maximum error is +1 for some input values. For inputs up to 255*255
// the result stays within [0, 255].
func div255(x uint16) uint16 {
	return (x + 255) >> 8
}

// mulDiv255 multiplies two bytes and divides by 255 using fast approximation.
//
// mulDiv255(d, 255) == d for every d, so compositing a fully transparent
// source leaves the destination bit-identical.
func mulDiv255(a, b byte) byte {
	return byte(div255(uint16(a) * uint16(b)))
}

// addDiv255 adds two bytes, saturating at 255.
func addDiv255(a, b byte) byte {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}
