// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/cexbridge/lib/codec"
)

// Image is a serialized export of an analysis database: the program
// state a [Session] starts from.
type Image struct {
	// Name identifies the program, for example "tmc_eu".
	Name string `json:"name"`

	Functions []ImageFunction `json:"functions"`

	// Symbols maps labels to addresses. Function names are symbols
	// implicitly and need not be listed.
	Symbols map[string]Address `json:"symbols,omitempty"`

	// DataTypes are the program's registered (non-builtin) types.
	DataTypes []ImageDataType `json:"data_types,omitempty"`

	// Data are the defined globals.
	Data []ImageData `json:"data,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// ImageFunction is one function in an image.
type ImageFunction struct {
	Name  string  `json:"name"`
	Entry Address `json:"entry"`

	// Prototype is the function's C signature. Empty means
	// "undefined name(void)".
	Prototype string `json:"prototype,omitempty"`

	CallingConvention string `json:"calling_convention,omitempty"`

	// Body is the decompiled function body, one line per entry,
	// including the enclosing braces' contents but not the braces.
	Body []string `json:"body,omitempty"`

	// DecompileCostMillis simulates how long decompiling the
	// function takes, for exercising decompile timeouts.
	DecompileCostMillis int `json:"decompile_cost_ms,omitempty"`
}

// ImageDataType is a registered data type.
type ImageDataType struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Size     int    `json:"size"`
}

// ImageData is data defined at an address. Type names a builtin type
// or a registered type; Category disambiguates when the name is
// registered in more than one category.
type ImageData struct {
	Address  Address `json:"address"`
	Type     string  `json:"type"`
	Category string  `json:"category,omitempty"`
}

// Encoding formats, selected by file suffix.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Compression formats, selected by file suffix.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// LoadedImage is an image together with facts about the file it came
// from.
type LoadedImage struct {
	Image       *Image
	Path        string
	Format      string
	Compression string
	// FileSize is the size of the file as stored.
	FileSize int
	// EncodedSize is the size after decompression.
	EncodedSize int
	// Digest is the hex BLAKE3-256 of the stored file.
	Digest string
}

// ImageFormat reports the encoding and compression implied by a file
// name. Recognized names end in .json, .jsonc or .cbor, optionally
// followed by .zst or .lz4.
func ImageFormat(path string) (format, compression string, err error) {
	name := filepath.Base(path)
	compression = CompressionNone
	switch {
	case strings.HasSuffix(name, ".zst"):
		compression = CompressionZstd
		name = strings.TrimSuffix(name, ".zst")
	case strings.HasSuffix(name, ".lz4"):
		compression = CompressionLZ4
		name = strings.TrimSuffix(name, ".lz4")
	}

	switch filepath.Ext(name) {
	case ".json", ".jsonc":
		return FormatJSON, compression, nil
	case ".cbor":
		return FormatCBOR, compression, nil
	default:
		return "", "", fmt.Errorf("%s: unrecognized image format (want .json, .jsonc or .cbor, optionally .zst or .lz4)", path)
	}
}

// LoadImage reads and decodes the image at path.
func LoadImage(path string) (*LoadedImage, error) {
	format, compression, err := ImageFormat(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	digest := blake3.Sum256(raw)

	encoded, err := decompress(raw, compression)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	image, err := DecodeImage(encoded, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &LoadedImage{
		Image:       image,
		Path:        path,
		Format:      format,
		Compression: compression,
		FileSize:    len(raw),
		EncodedSize: len(encoded),
		Digest:      hex.EncodeToString(digest[:]),
	}, nil
}

// DecodeImage decodes an uncompressed image. JSON input may carry
// comments and trailing commas.
func DecodeImage(data []byte, format string) (*Image, error) {
	var image Image
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &image); err != nil {
			return nil, fmt.Errorf("parsing image: %w", err)
		}
	case FormatCBOR:
		if err := codec.Unmarshal(data, &image); err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return &image, nil
}

// WriteImage encodes image in the format implied by path and writes
// it, returning the BLAKE3 digest of the written file.
func WriteImage(path string, image *Image) (string, error) {
	format, compression, err := ImageFormat(path)
	if err != nil {
		return "", err
	}

	var encoded []byte
	switch format {
	case FormatJSON:
		encoded, err = json.MarshalIndent(image, "", "  ")
		if err == nil {
			encoded = append(encoded, '\n')
		}
	case FormatCBOR:
		encoded, err = codec.Marshal(image)
	}
	if err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}

	raw, err := compress(encoded, compression)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	digest := blake3.Sum256(raw)
	return hex.EncodeToString(digest[:]), nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("analysis: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("analysis: zstd decoder initialization failed: " + err.Error())
	}
}

func decompress(data []byte, compression string) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return result, nil
	case CompressionLZ4:
		result, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

func compress(data []byte, compression string) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}
