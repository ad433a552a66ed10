// Package tex decodes guest texture formats into RGBA8 images and
// builds mip chains for the renderer, grounded on original_source's
// hemisphere/src/gx/tex.rs texture cache.
package tex

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Format names a guest texture's on-the-wire pixel encoding (spec
// §4.7's "texture formats" referenced by SetTextureSlot).
type Format int

const (
	FormatI4 Format = iota
	FormatI8
	FormatIA4
	FormatIA8
	FormatRGB565
	FormatRGB5A3
	FormatRGBA8
	FormatCMPR
)

// Decode converts raw guest texture data of the given format and
// dimensions into a standard RGBA image.
func Decode(format Format, width, height int, data []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	switch format {
	case FormatI4:
		decodeI4(img, data, width, height)
	case FormatI8:
		decodeI8(img, data, width, height)
	case FormatIA4:
		decodeIA4(img, data, width, height)
	case FormatIA8:
		decodeIA8(img, data, width, height)
	case FormatRGB565:
		decodeRGB565(img, data, width, height)
	case FormatRGB5A3:
		decodeRGB5A3(img, data, width, height)
	case FormatRGBA8:
		decodeRGBA8(img, data, width, height)
	case FormatCMPR:
		decodeCMPR(img, data, width, height)
	}
	return img
}

func decodeI4(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 8, 8, func(x, y, idx int) {
		byteIdx := idx / 2
		if byteIdx >= len(data) {
			return
		}
		var nibble uint8
		if idx%2 == 0 {
			nibble = data[byteIdx] >> 4
		} else {
			nibble = data[byteIdx] & 0xF
		}
		v := nibble * 0x11
		img.Set(x, y, color.Gray{Y: v})
	})
}

func decodeI8(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 8, 4, func(x, y, idx int) {
		if idx >= len(data) {
			return
		}
		img.Set(x, y, color.Gray{Y: data[idx]})
	})
}

func decodeIA4(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 8, 4, func(x, y, idx int) {
		if idx >= len(data) {
			return
		}
		b := data[idx]
		a := (b >> 4) * 0x11
		i := (b & 0xF) * 0x11
		img.Set(x, y, color.NRGBA{R: i, G: i, B: i, A: a})
	})
}

func decodeIA8(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 4, 4, func(x, y, idx int) {
		if idx*2+1 >= len(data) {
			return
		}
		a := data[idx*2]
		i := data[idx*2+1]
		img.Set(x, y, color.NRGBA{R: i, G: i, B: i, A: a})
	})
}

func decodeRGB565(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 4, 4, func(x, y, idx int) {
		if idx*2+1 >= len(data) {
			return
		}
		v := uint16(data[idx*2])<<8 | uint16(data[idx*2+1])
		r := uint8(v>>11) & 0x1F
		g := uint8(v>>5) & 0x3F
		b := uint8(v) & 0x1F
		img.Set(x, y, color.NRGBA{
			R: r<<3 | r>>2, G: g<<2 | g>>4, B: b<<3 | b>>2, A: 0xFF,
		})
	})
}

func decodeRGB5A3(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 4, 4, func(x, y, idx int) {
		if idx*2+1 >= len(data) {
			return
		}
		v := uint16(data[idx*2])<<8 | uint16(data[idx*2+1])
		if v&0x8000 != 0 {
			r := uint8(v>>10) & 0x1F
			g := uint8(v>>5) & 0x1F
			b := uint8(v) & 0x1F
			img.Set(x, y, color.NRGBA{R: r<<3 | r>>2, G: g<<3 | g>>2, B: b<<3 | b>>2, A: 0xFF})
		} else {
			a := uint8(v>>12) & 0x7
			r := uint8(v>>8) & 0xF
			g := uint8(v>>4) & 0xF
			b := uint8(v) & 0xF
			img.Set(x, y, color.NRGBA{R: r * 0x11, G: g * 0x11, B: b * 0x11, A: a * 0x24})
		}
	})
}

func decodeRGBA8(img *image.RGBA, data []byte, w, h int) {
	blockTiles(w, h, 4, 4, func(x, y, idx int) {
		off := idx * 2
		if off+1 >= len(data) {
			return
		}
		img.Set(x, y, color.NRGBA{A: data[off], R: data[off+1]})
	})
}

// decodeCMPR decodes the DXT1-derived 4x4 block compressed format.
// Each 8-byte block covers a 4x4 texel region with two RGB565 anchor
// colors and a 2-bit-per-texel interpolation index.
func decodeCMPR(img *image.RGBA, data []byte, w, h int) {
	blocksX := (w + 3) / 4
	blocksY := (h + 3) / 4
	blockSize := 8
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			off := (by*blocksX + bx) * blockSize
			if off+blockSize > len(data) {
				continue
			}
			decodeCMPRBlock(img, data[off:off+blockSize], bx*4, by*4, w, h)
		}
	}
}

func decodeCMPRBlock(img *image.RGBA, block []byte, ox, oy, w, h int) {
	c0 := uint16(block[0])<<8 | uint16(block[1])
	c1 := uint16(block[2])<<8 | uint16(block[3])
	palette := cmprPalette(c0, c1)
	bits := uint32(block[4])<<24 | uint32(block[5])<<16 | uint32(block[6])<<8 | uint32(block[7])
	for i := 0; i < 16; i++ {
		x := ox + i%4
		y := oy + i/4
		if x >= w || y >= h {
			continue
		}
		idx := (bits >> uint(30-2*i)) & 0x3
		img.Set(x, y, palette[idx])
	}
}

func cmprPalette(c0, c1 uint16) [4]color.NRGBA {
	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)
	var p [4]color.NRGBA
	p[0] = color.NRGBA{R: r0, G: g0, B: b0, A: 0xFF}
	p[1] = color.NRGBA{R: r1, G: g1, B: b1, A: 0xFF}
	if c0 > c1 {
		p[2] = lerpColor(p[0], p[1], 1, 3)
		p[3] = lerpColor(p[0], p[1], 2, 3)
	} else {
		p[2] = lerpColor(p[0], p[1], 1, 2)
		p[3] = color.NRGBA{A: 0}
	}
	return p
}

func rgb565(v uint16) (r, g, b uint8) {
	r5 := uint8(v>>11) & 0x1F
	g6 := uint8(v>>5) & 0x3F
	b5 := uint8(v) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

func lerpColor(a, b color.NRGBA, num, den int) color.NRGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8((int(x)*(den-num) + int(y)*num) / den)
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xFF}
}

// blockTiles walks a texture in tile-major order: tiles of tileW x
// tileH texels, texels raster-order within each tile. This is how
// every non-CMPR guest texture format above is actually laid out in
// memory.
func blockTiles(w, h, tileW, tileH int, set func(x, y, idx int)) {
	idx := 0
	for ty := 0; ty < h; ty += tileH {
		for tx := 0; tx < w; tx += tileW {
			for y := ty; y < ty+tileH && y < h; y++ {
				for x := tx; x < tx+tileW && x < w; x++ {
					set(x, y, idx)
					idx++
				}
			}
		}
	}
}

// BuildMips returns base followed by successively half-sized mip
// levels down to 1x1, each produced by bilinear scaling (spec §4.7's
// "mip chain generation" supplementing the distilled spec, which names
// only base-level upload).
func BuildMips(base *image.RGBA) []*image.RGBA {
	levels := []*image.RGBA{base}
	src := base
	for src.Bounds().Dx() > 1 || src.Bounds().Dy() > 1 {
		w := max(1, src.Bounds().Dx()/2)
		h := max(1, src.Bounds().Dy()/2)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		levels = append(levels, dst)
		src = dst
	}
	return levels
}
