package gx

import (
	"testing"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// fakeRAM is a flat byte-addressed memory backing indexed attribute
// reads and display-list inlining, mirroring internal/jit's
// test-fixture style rather than pulling in internal/mem.
type fakeRAM struct {
	mem map[uint32]byte
}

func newFakeRAM() *fakeRAM { return &fakeRAM{mem: make(map[uint32]byte)} }

func (r *fakeRAM) put32(addr uint32, v uint32) {
	r.mem[addr] = byte(v >> 24)
	r.mem[addr+1] = byte(v >> 16)
	r.mem[addr+2] = byte(v >> 8)
	r.mem[addr+3] = byte(v)
}

func (r *fakeRAM) Read8(addr gekko.Address) uint8 { return r.mem[uint32(addr)] }
func (r *fakeRAM) Read16(addr gekko.Address) uint16 {
	return uint16(r.mem[uint32(addr)])<<8 | uint16(r.mem[uint32(addr)+1])
}
func (r *fakeRAM) Read32(addr gekko.Address) uint32 {
	return uint32(r.mem[uint32(addr)])<<24 | uint32(r.mem[uint32(addr)+1])<<16 |
		uint32(r.mem[uint32(addr)+2])<<8 | uint32(r.mem[uint32(addr)+3])
}

func newProcessor(ram RAM) (*Processor, chan Action) {
	actions := make(chan Action, 64)
	return New(ram, actions, nil), actions
}

func TestLoadCPRegisterSetsVertexPresence(t *testing.T) {
	p, _ := newProcessor(newFakeRAM())
	data := []byte{
		cmdLoadCPReg, cpVCDLo, 0x00, 0x00, 0x00, 0x05, // attr0=direct(1), attr1=direct(1)
	}
	p.Push(data)
	if p.VCD.Presence[AttrPosMtxIdx] != PresenceDirect {
		t.Fatalf("attr0 presence = %v, want PresenceDirect", p.VCD.Presence[AttrPosMtxIdx])
	}
	if p.VCD.Presence[AttrTex0MtxIdx] != PresenceDirect {
		t.Fatalf("attr1 presence = %v, want PresenceDirect", p.VCD.Presence[AttrTex0MtxIdx])
	}
}

func TestLoadBPRegisterEmitsClearColor(t *testing.T) {
	p, actions := newProcessor(newFakeRAM())
	value := uint32(bpClearColor)<<24 | 0x11<<16 | 0x22<<8 | 0x33
	p.Push([]byte{
		cmdLoadBPReg,
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
	})
	select {
	case a := <-actions:
		cc, ok := a.(SetClearColor)
		if !ok {
			t.Fatalf("action = %T, want SetClearColor", a)
		}
		if cc.R != 0x11 || cc.G != 0x22 || cc.B != 0x33 {
			t.Fatalf("clear color = %+v", cc)
		}
	default:
		t.Fatal("no action emitted")
	}
}

func TestDrawEmitsVerticesInFIFOOrder(t *testing.T) {
	ram := newFakeRAM()
	p, actions := newProcessor(ram)

	// direct positions only: presence=direct for AttrPosition, format float32x3
	presence := uint32(uint32(PresenceDirect) << uint(2*int(AttrPosition)))
	var data []byte
	data = append(data, cmdLoadCPReg, cpVCDLo, byte(presence>>24), byte(presence>>16), byte(presence>>8), byte(presence))
	data = append(data, cmdDrawPoints)
	data = append(data, 0x00, 0x02) // 2 vertices
	putF32 := func(v uint32) {
		data = append(data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	// vertex 0: (1,2,3); vertex 1: (4,5,6), encoded as raw bit patterns for simplicity
	putF32(0x3F800000) // 1.0
	putF32(0x40000000) // 2.0
	putF32(0x40400000) // 3.0
	putF32(0x40800000) // 4.0
	putF32(0x40A00000) // 5.0
	putF32(0x40C00000) // 6.0

	p.Push(data)

	var draw Draw
	found := false
	for len(actions) > 0 {
		if d, ok := (<-actions).(Draw); ok {
			draw = d
			found = true
		}
	}
	if !found {
		t.Fatal("no Draw action emitted")
	}
	if len(draw.Vertices) != 2 {
		t.Fatalf("vertex count = %d, want 2", len(draw.Vertices))
	}
	if draw.Vertices[0].Position != [3]float32{1, 2, 3} {
		t.Fatalf("vertex 0 position = %v", draw.Vertices[0].Position)
	}
	if draw.Vertices[1].Position != [3]float32{4, 5, 6} {
		t.Fatalf("vertex 1 position = %v", draw.Vertices[1].Position)
	}
}

func TestEfbColorCopyBlocksForResponse(t *testing.T) {
	p, actions := newProcessor(newFakeRAM())
	done := make(chan struct{})
	go func() {
		value := uint32(bpEfbCopyTrigger)<<24 | 0x1
		p.Push([]byte{cmdLoadBPReg, byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)})
		close(done)
	}()

	a := <-actions
	cc, ok := a.(ColorCopy)
	if !ok {
		t.Fatalf("action = %T, want ColorCopy", a)
	}
	select {
	case <-done:
		t.Fatal("Push returned before the renderer acknowledged the copy")
	default:
	}
	cc.Response <- []byte{1, 2, 3}
	<-done
}

func TestTevSpecializationSameForIdenticalConfigs(t *testing.T) {
	var a, b TevConfig
	a.StageCount = 1
	a.Stages[0].Color = TevStageOp{A: TevInputR0, B: TevInputR1, C: TevInputTexture, D: TevInputZero}
	b.StageCount = 1
	b.Stages[0].Color = TevStageOp{A: TevInputR0, B: TevInputR1, C: TevInputTexture, D: TevInputZero}

	sa, sb := a.Canonical(), b.Canonical()
	if len(sa.Stages) != len(sb.Stages) || sa.Stages[0] != sb.Stages[0] {
		t.Fatalf("canonical specializations differ: %+v vs %+v", sa, sb)
	}
}
