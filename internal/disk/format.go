package disk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnknownFormat is returned when an image is neither qcow2 nor a
// bootable raw disk.
var ErrUnknownFormat = errors.New("unrecognized image format")

// Magic bytes and signatures for disk image format detection
var (
	// qcow2Magic is the magic bytes at the start of QCOW2 files: "QFI" + 0xfb
	// Reference: https://www.qemu.org/docs/master/interop/qcow2.html
	qcow2Magic = []byte{0x51, 0x46, 0x49, 0xfb}

	// mbrSignature is the boot sector signature at offset 510 in bootable
	// disks (MBR and the protective MBR of GPT disks).
	mbrSignature = []byte{0x55, 0xaa}
)

// DetectImageFormat detects the disk image format by reading magic bytes.
// Returns "qcow2" for QCOW2 images, "raw" for bootable raw images and
// ErrUnknownFormat otherwise.
func DetectImageFormat(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return "", fmt.Errorf("%w: file too small (< 4 bytes)", ErrUnknownFormat)
	}
	if bytes.Equal(magic, qcow2Magic) {
		return "qcow2", nil
	}

	if _, err := f.Seek(510, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek to boot sector signature: %w", err)
	}
	sig := make([]byte, 2)
	if _, err := io.ReadFull(f, sig); err != nil {
		return "", fmt.Errorf("%w: file too small for boot sector (< 512 bytes)", ErrUnknownFormat)
	}
	if bytes.Equal(sig, mbrSignature) {
		return "raw", nil
	}

	return "", ErrUnknownFormat
}
