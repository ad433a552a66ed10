package gx

import (
	"math"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/gx/tex"
)

// CP register addresses. Reconstructed layout matching the spec's "the
// vertex descriptor and indexed-array base/stride registers live in
// the command processor's register file" (§4.7) — not pack-sourced,
// same status as the FIFO command tags in gx.go.
const (
	cpVCDLo      = 0x50 // presence for attrs [0,8), 2 bits each
	cpVCDHi      = 0x51 // presence for attrs [8,attrCount), 2 bits each
	cpArrayBase  = 0x80 // + Attr: base address of attr's indexed array
	cpArrayStride = 0x90 // + Attr: stride of attr's indexed array
)

// BP (pixel-engine/TEV) register addresses.
const (
	bpClearColor     = 0x40
	bpClearDepth     = 0x41
	bpAlphaFunc      = 0x42
	bpDepthMode      = 0x43
	bpBlendMode      = 0x44
	bpConstantAlpha  = 0x45
	bpFramebufferFmt = 0x46
	bpStageCount     = 0xE0
	bpTevBase        = 0xC0 // + stage*2 (+1 for alpha half)
	bpViewportBase   = 0xF0 // +0..3: x,y,w,h as float bits
	bpTexGenCount    = 0xD0
	bpTexGenBase     = 0xD1 // + index, low nibble source, next nibble kind
	bpEfbCopyX       = 0x58
	bpEfbCopyY       = 0x59
	bpEfbCopyW       = 0x5A
	bpEfbCopyH       = 0x5B
	bpEfbDestAddr    = 0x5C
	bpEfbDestStride  = 0x5D
	bpEfbCopyFlags   = 0x5E // bit0 half, bit1 clear, bits[3:2] format
	bpEfbCopyTrigger = 0x5F // bits[1:0]: 0=none,1=color,2=depth,3=xfb

	bpTexImageBase = 0x90 // + slot (0..7): width-1[9:0] | height-1[19:10] | format[23:20]
	bpTexAddrBase  = 0x98 // + slot (0..7): texture base address in RAM
	bpTexLoadBase  = 0xA8 // + slot (0..7): write of any value triggers the decode/upload
)

// applyCPRegister updates vertex-descriptor presence and indexed-array
// base/stride state from a command-processor register write.
func (p *Processor) applyCPRegister(addr uint8, value uint32) {
	switch addr {
	case cpVCDLo:
		decodeVCD(&p.VCD, value, 0, 8)
	case cpVCDHi:
		decodeVCD(&p.VCD, value, 8, int(attrCount)-8)
	default:
		switch {
		case addr >= cpArrayBase && int(addr) < int(cpArrayBase)+int(attrCount):
			p.Arrays[addr-cpArrayBase].Base = gekko.Address(value)
		case addr >= cpArrayStride && int(addr) < int(cpArrayStride)+int(attrCount):
			p.Arrays[addr-cpArrayStride].Stride = value
		}
	}
}

func decodeVCD(vcd *VCD, value uint32, start, count int) {
	for i := 0; i < count; i++ {
		vcd.Presence[start+i] = Presence((value >> uint(2*i)) & 0x3)
	}
}

// applyBPRegister updates pixel-engine/TEV state and emits the
// corresponding renderer Action (spec §4.7, §6).
func (p *Processor) applyBPRegister(addr uint8, value uint32) {
	switch {
	case addr == bpClearColor:
		// value is already masked to the low 24 bits by opLoadBPReg (the
		// top byte selected the register), so alpha has no room here and
		// defaults to opaque; a guest wanting a translucent clear uses
		// SetConstantAlpha separately.
		p.emit(SetClearColor{
			R: uint8(value >> 16), G: uint8(value >> 8), B: uint8(value), A: 0xFF,
		})
	case addr == bpClearDepth:
		p.emit(SetClearDepth{Depth: float32(value&0xFF_FFFF) / float32(0xFF_FFFF)})
	case addr == bpAlphaFunc:
		p.emit(SetAlphaFunction{
			Refs:       [2]uint8{uint8(value), uint8(value >> 8)},
			Comparison: [2]CompareOp{CompareOp((value >> 16) & 0x7), CompareOp((value >> 19) & 0x7)},
			Logic:      AlphaLogic((value >> 22) & 0x3),
		})
	case addr == bpDepthMode:
		p.emit(SetDepthMode{
			Enabled: value&0x1 != 0,
			Write:   value&0x2 != 0,
			Compare: CompareOp((value >> 2) & 0x7),
		})
	case addr == bpBlendMode:
		p.emit(SetBlendMode{
			Enabled:    value&0x1 != 0,
			ColorWrite: value&0x2 != 0,
			AlphaWrite: value&0x4 != 0,
			Op:         BlendOp((value >> 3) & 0x3),
			Src:        BlendFactor((value >> 5) & 0x7),
			Dst:        BlendFactor((value >> 8) & 0x7),
		})
	case addr == bpConstantAlpha:
		p.emit(SetConstantAlpha{Enabled: value&0x100 != 0, Alpha: uint8(value)})
	case addr == bpFramebufferFmt:
		p.emit(SetFramebufferFormat{Format: PixelFormat(value & 0x3)})
	case addr == bpStageCount:
		n := int(value) + 1
		if n > len(p.Tev.Stages) {
			n = len(p.Tev.Stages)
		}
		p.Tev.StageCount = n
		p.emit(SetTexEnvConfig{Stages: p.Tev.Canonical()})
	case addr >= bpTevBase && addr < bpTevBase+32:
		stage := int(addr-bpTevBase) / 2
		alphaHalf := (addr-bpTevBase)%2 == 1
		applyTevStageWord(&p.Tev.Stages[stage], value, alphaHalf)
		p.emit(SetTexEnvConfig{Stages: p.Tev.Canonical()})
	case addr >= bpViewportBase && addr < bpViewportBase+4:
		p.pixel.viewport[addr-bpViewportBase] = math.Float32frombits(value)
		p.emit(SetViewport{
			X: p.pixel.viewport[0], Y: p.pixel.viewport[1],
			W: p.pixel.viewport[2], H: p.pixel.viewport[3],
		})
	case addr == bpTexGenCount:
		p.pixel.texGens = make([]TexGenConfig, value)
	case addr >= bpTexGenBase && int(addr) < int(bpTexGenBase)+len(p.pixel.texGens):
		i := int(addr - bpTexGenBase)
		p.pixel.texGens[i] = TexGenConfig{Source: int(value & 0xF), Kind: int((value >> 4) & 0xF)}
		p.emit(SetTexGens{Configs: append([]TexGenConfig(nil), p.pixel.texGens...)})
	case addr == bpEfbCopyX:
		p.pixel.copyX = int(value)
	case addr == bpEfbCopyY:
		p.pixel.copyY = int(value)
	case addr == bpEfbCopyW:
		p.pixel.copyW = int(value)
	case addr == bpEfbCopyH:
		p.pixel.copyH = int(value)
	case addr == bpEfbDestAddr:
		p.pixel.copyDestAddr = value
	case addr == bpEfbDestStride:
		p.pixel.copyDestStride = int(value)
	case addr == bpEfbCopyFlags:
		p.pixel.copyHalf = value&0x1 != 0
		p.pixel.copyClear = value&0x2 != 0
		p.pixel.copyFormat = PixelFormat((value >> 2) & 0x3)
	case addr == bpEfbCopyTrigger:
		p.triggerEfbCopy(value & 0x3)
	case addr >= bpTexImageBase && addr < bpTexImageBase+8:
		slot := int(addr - bpTexImageBase)
		p.pixel.texWidth[slot] = int(value&0x3FF) + 1
		p.pixel.texHeight[slot] = int((value>>10)&0x3FF) + 1
		p.pixel.texFormat[slot] = tex.Format((value >> 20) & 0xF)
	case addr >= bpTexAddrBase && addr < bpTexAddrBase+8:
		p.pixel.texAddr[addr-bpTexAddrBase] = gekko.Address(value)
	case addr >= bpTexLoadBase && addr < bpTexLoadBase+8:
		slot := int(addr - bpTexLoadBase)
		p.LoadTexture(uint32(slot), p.pixel.texFormat[slot], p.pixel.texAddr[slot],
			p.pixel.texWidth[slot], p.pixel.texHeight[slot])
		p.emit(SetTextureSlot{Slot: slot, ID: uint32(slot)})
	}
}

// applyTevStageWord decodes one half (color or alpha) of a TEV stage
// configuration register (spec §4.7's "per-stage affine/comparative
// color+alpha operations").
func applyTevStageWord(stage *TevStage, value uint32, alphaHalf bool) {
	op := TevStageOp{
		Kind:   TevCombineOp((value >> 0) & 0x1),
		A:      TevInput((value >> 1) & 0xF),
		B:      TevInput((value >> 5) & 0xF),
		C:      TevInput((value >> 9) & 0xF),
		D:      TevInput((value >> 13) & 0xF),
		Scale:  1,
		OutReg: TevInput((value >> 17) & 0x3),
	}
	if value&0x20_0000 != 0 {
		op.Sign = -1
	} else {
		op.Sign = 1
	}
	if op.Kind == TevOpCompare {
		op.Compare = TevCompareTarget((value >> 19) & 0x3)
	}
	if alphaHalf {
		stage.Alpha = op
	} else {
		stage.Color = op
	}
}

// triggerEfbCopy builds and emits the EFB-copy Action named by kind
// (1=color, 2=depth, 3=XFB), then blocks on its Response channel (spec
// §5's "the core blocks until the renderer acknowledges").
func (p *Processor) triggerEfbCopy(kind uint32) {
	resp := make(chan []byte, 1)
	rect := struct{ X, Y, W, H int }{p.pixel.copyX, p.pixel.copyY, p.pixel.copyW, p.pixel.copyH}
	switch kind {
	case 1:
		p.emit(ColorCopy{
			X: rect.X, Y: rect.Y, W: rect.W, H: rect.H,
			Half: p.pixel.copyHalf, Clear: p.pixel.copyClear,
			DestAddr: p.pixel.copyDestAddr, DestStride: p.pixel.copyDestStride,
			Format: p.pixel.copyFormat, Response: resp,
		})
	case 2:
		p.emit(DepthCopy{
			X: rect.X, Y: rect.Y, W: rect.W, H: rect.H,
			DestAddr: p.pixel.copyDestAddr, DestStride: p.pixel.copyDestStride,
			Response: resp,
		})
	case 3:
		p.emit(XfbCopy{Clear: p.pixel.copyClear, Response: resp})
	default:
		return
	}
	<-resp
}
