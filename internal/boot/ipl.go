package boot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
	"github.com/hemisphere-go/hemisphere/internal/mem"
)

// Apploader load/parse constants (spec §6): discs place the apploader
// at a fixed disc offset, the engine copies at most apploaderMaxSize
// bytes of it into RAM at apploaderLoadAddr, and the apploader's own
// header names its entry point at apploaderEntryOff.
const (
	apploaderDiscOffset = 0x2440
	apploaderMaxSize    = 0x20000
	apploaderLoadAddr   = 0x0120_0000
	apploaderEntryOff   = 0x10
	apploaderHeaderSize = 0x20
)

var (
	yaz0Magic = []byte("Yaz0")
	yay0Magic = []byte("Yay0")
)

// LoadIPLApploader performs the HLE apploader shim: seek to the disc's
// apploader offset, copy up to apploaderMaxSize bytes into RAM at
// apploaderLoadAddr, and return its entry point for the caller to place
// in GPR[3] and PC (System owns register writes; this function only
// touches memory).
func LoadIPLApploader(disk io.ReadSeeker, m *mem.Memory) (gekko.Address, error) {
	if _, err := disk.Seek(apploaderDiscOffset, io.SeekStart); err != nil {
		return 0, &LoadError{Kind: KindIo, Source: err}
	}

	buf := make([]byte, apploaderMaxSize)
	n, err := io.ReadFull(disk, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, &LoadError{Kind: KindIo, Source: err}
	}
	buf = buf[:n]

	if len(buf) < apploaderHeaderSize {
		return 0, &LoadError{Kind: KindParsingHeader, Source: fmt.Errorf("apploader: header too short (%d bytes, want %d)", len(buf), apploaderHeaderSize)}
	}
	if bytes.HasPrefix(buf, yaz0Magic) || bytes.HasPrefix(buf, yay0Magic) {
		return 0, &LoadError{Kind: KindUnsupportedCompression, Source: fmt.Errorf("apploader: compressed image (magic %q) not supported", buf[:4])}
	}

	writeBytes(m, gekko.Address(apploaderLoadAddr), buf)

	entry := binary.BigEndian.Uint32(buf[apploaderEntryOff:])
	return gekko.Address(entry), nil
}
