package backup

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Format version constants. V1 is plain indented JSON; V2 is a JSON header
// line followed by a zstd-compressed payload.
const (
	FormatV1 = 1
	FormatV2 = 2
)

// MaxDecompressedSize is the maximum allowed size of decompressed backup data (64MB).
const MaxDecompressedSize = 64 * 1024 * 1024

// Header is the plain-text first line of a V2 backup file.
type Header struct {
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	Checksum      string            `json:"checksum"`
	ScenarioCount int               `json:"scenario_count"`
	Compression   string            `json:"compression"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DetectFormat reads the first line of a file to tell V1 from V2.
func DetectFormat(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading first line: %w", err)
	}
	first := strings.TrimSpace(string(line))
	if first == "" {
		return 0, fmt.Errorf("file is empty")
	}

	var h Header
	if err := json.Unmarshal([]byte(first), &h); err == nil && h.Version == FormatV2 {
		return FormatV2, nil
	}
	if first[0] == '{' {
		return FormatV1, nil
	}
	return 0, fmt.Errorf("unrecognized backup format")
}

// WriteV2 writes b as a header line plus a zstd-compressed JSON payload.
func WriteV2(path string, b *Archive, metadata map[string]string) (*Header, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := enc.Write(payload); err != nil {
		enc.Close()
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing zstd writer: %w", err)
	}

	header := &Header{
		Version:       FormatV2,
		CreatedAt:     b.CreatedAt,
		Checksum:      checksum(compressed.Bytes()),
		ScenarioCount: len(b.Scenarios),
		Compression:   "zstd",
		Metadata:      metadata,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	return header, nil
}

// ReadV2 reads a V2 backup, verifies the checksum and decompresses it.
func ReadV2(path string) (*Archive, *Header, error) {
	header, compressed, err := readV2Raw(path)
	if err != nil {
		return nil, nil, err
	}
	if got := checksum(compressed); got != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, got)
	}

	dec, err := zstd.NewReader(bytes.NewReader(compressed), zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		return nil, nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()

	decompressed, err := io.ReadAll(io.LimitReader(dec, MaxDecompressedSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(decompressed) > MaxDecompressedSize {
		return nil, nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var a Archive
	if err := json.Unmarshal(decompressed, &a); err != nil {
		return nil, nil, fmt.Errorf("parsing backup data: %w", err)
	}
	return &a, header, nil
}

// ReadHeader reads only the header line of a V2 backup.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return parseHeader(bufio.NewReader(f))
}

// VerifyChecksum checks a V2 backup's integrity without decompressing it.
func VerifyChecksum(path string) error {
	header, compressed, err := readV2Raw(path)
	if err != nil {
		return err
	}
	if got := checksum(compressed); got != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, got)
	}
	return nil
}

func readV2Raw(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := parseHeader(r)
	if err != nil {
		return nil, nil, err
	}
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	return header, compressed, nil
}

func parseHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var h Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if h.Version != FormatV2 {
		return nil, fmt.Errorf("expected V2 format, got version %d", h.Version)
	}
	return &h, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
