package blend

import "fmt"

// Op is a Porter-Duff compositing operator on premultiplied RGBA8.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
type Op uint8

const (
	SourceOver     Op = iota // Result: S + D*(1-Sa)
	DestinationOut           // Result: D*(1-Sa)
)

// String returns the operator name.
func (op Op) String() string {
	switch op {
	case SourceOver:
		return "SourceOver"
	case DestinationOut:
		return "DestinationOut"
	default:
		return fmt.Sprintf("Op(%d)", op)
	}
}

// Pixel composites one source texel onto one destination texel.
func Pixel(op Op, d, s [4]byte) [4]byte {
	inv := 255 - s[3]
	switch op {
	case DestinationOut:
		return [4]byte{
			mulDiv255(d[0], inv),
			mulDiv255(d[1], inv),
			mulDiv255(d[2], inv),
			mulDiv255(d[3], inv),
		}
	default:
		return [4]byte{
			addDiv255(s[0], mulDiv255(d[0], inv)),
			addDiv255(s[1], mulDiv255(d[1], inv)),
			addDiv255(s[2], mulDiv255(d[2], inv)),
			addDiv255(s[3], mulDiv255(d[3], inv)),
		}
	}
}

// Row composites src into dst in place. Both slices hold packed RGBA8 texels
// and must have the same length. Source texels are scaled by opacity first;
// 255 leaves them unchanged.
func Row(op Op, dst, src []byte, opacity byte) {
	if len(dst) != len(src) {
		panic(fmt.Sprintf("blend: row length mismatch %d != %d", len(dst), len(src)))
	}
	for i := 0; i+3 < len(dst); i += 4 {
		s := [4]byte{src[i], src[i+1], src[i+2], src[i+3]}
		if opacity != 255 {
			s[0] = mulDiv255(s[0], opacity)
			s[1] = mulDiv255(s[1], opacity)
			s[2] = mulDiv255(s[2], opacity)
			s[3] = mulDiv255(s[3], opacity)
		}
		if s == [4]byte{} {
			continue
		}
		d := Pixel(op, [4]byte{dst[i], dst[i+1], dst[i+2], dst[i+3]}, s)
		dst[i], dst[i+1], dst[i+2], dst[i+3] = d[0], d[1], d[2], d[3]
	}
}

// Opacity converts a [0, 1] opacity to the byte scale used by Row.
func Opacity(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
