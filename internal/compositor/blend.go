package compositor

// div255 divides x by 255 exactly for x in [0, 65535] without a division.
func div255(x uint32) uint32 {
	t := x + 1
	return (t + (t >> 8)) >> 8
}

// Opaque forces a pixel's alpha to 255.
func Opaque(p uint32) uint32 {
	return p | 0xFF000000
}

// Over composites straight-alpha src over straight-alpha dst.
func Over(dst, src uint32) uint32 {
	sa := src >> 24
	switch sa {
	case 0:
		return dst
	case 0xFF:
		return src
	}

	da := dst >> 24
	// dst contribution weighted by its alpha and the source's coverage gap.
	dw := div255(da * (255 - sa))
	oa := sa + dw
	if oa == 0 {
		return 0
	}

	ch := func(shift uint) uint32 {
		sc := (src >> shift) & 0xFF
		dc := (dst >> shift) & 0xFF
		return ((sc*sa + dc*dw) + oa/2) / oa
	}
	return oa<<24 | ch(16)<<16 | ch(8)<<8 | ch(0)
}
