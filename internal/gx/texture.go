package gx

import (
	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/gx/tex"
)

// texFormatBytes approximates the guest byte length of a texture's raw
// encoding, enough to read it out of RAM before decoding.
func texFormatBytes(format tex.Format, width, height int) int {
	switch format {
	case tex.FormatI4, tex.FormatCMPR:
		return width * height / 2
	case tex.FormatI8, tex.FormatIA4:
		return width * height
	case tex.FormatRGBA8:
		return width * height * 4
	default:
		return width * height * 2
	}
}

// LoadTexture decodes a guest texture out of RAM at addr, builds its
// mip chain, and emits it as a LoadTexture Action for the renderer
// (spec §4.7's texture cache, ported from tex.rs). slot binds it to a
// sampler stage via a following SetTextureSlot.
func (p *Processor) LoadTexture(id uint32, format tex.Format, addr gekko.Address, width, height int) {
	n := texFormatBytes(format, width, height)
	raw := make([]byte, n)
	for i := range raw {
		raw[i] = p.ram.Read8(addr + gekko.Address(i))
	}
	decoded := tex.Decode(format, width, height, raw)
	mips := tex.BuildMips(decoded)
	out := make([][]byte, len(mips))
	for i, m := range mips {
		out[i] = m.Pix
	}
	p.emit(LoadTexture{ID: id, Width: width, Height: height, Mipmaps: out})
}
