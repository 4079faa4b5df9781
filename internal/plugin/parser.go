package plugin

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Common errors returned by the parser.
var (
	ErrInvalidPlugin    = errors.New("invalid plugin file")
	ErrNotPlugin        = errors.New("file is not a valid plugin")
	ErrTruncatedFile    = errors.New("plugin file is truncated")
	ErrUnsupportedGame  = errors.New("unsupported game version")
	ErrInvalidSignature = errors.New("invalid record signature")
)

// Parser reads and parses plugin files, both their TES4 header and
// (unless asked to skip bodies) the form IDs carried by the records that
// follow it.
type Parser struct{}

// NewParser creates a new plugin parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens filePath, strips any ".ghost" suffix to determine the
// logical name, and parses it into a Plugin. When headersOnly is true the
// record body is skipped entirely and CRC32/RecordIDs are left zero-valued,
// per spec §4.1 ("computes CRC (except for header-only loads)").
func (p *Parser) ParseFile(ctx context.Context, filePath string, headersOnly bool) (*Plugin, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open plugin file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat plugin file: %w", err)
	}

	physicalName := filepath.Base(filePath)
	logicalName, isGhosted := stripGhost(physicalName)

	if !IsPluginFile(logicalName) {
		return nil, fmt.Errorf("%w: unsupported extension for %s", ErrInvalidPlugin, logicalName)
	}

	var hasher = crc32.NewIEEE()
	var src io.Reader = f
	if !headersOnly {
		src = io.TeeReader(f, hasher)
	}

	plugin, err := p.Parse(ctx, src, logicalName, headersOnly)
	if err != nil {
		return nil, err
	}

	plugin.IsGhosted = isGhosted
	plugin.FileSize = info.Size()
	if !headersOnly {
		// Drain anything the record walker didn't consume (padding,
		// trailing groups it chose not to descend into) so the CRC
		// reflects the whole file.
		if _, err := io.Copy(io.Discard, src); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
		}
		plugin.CRC32 = hasher.Sum32()
	}

	return plugin, nil
}

// Parse reads a plugin's TES4 header and, unless headersOnly is set, its
// record/group body, from r. The filename is used for determining the
// plugin type if flags are ambiguous.
func (p *Parser) Parse(ctx context.Context, r io.Reader, filename string, headersOnly bool) (*Plugin, error) {
	header, err := p.parseHeader(ctx, r, filename)
	if err != nil {
		return nil, err
	}

	plugin := &Plugin{
		Name:       filename,
		Header:     *header,
		HeaderOnly: headersOnly,
		BashTags:   ExtractBashTags(header.Description),
	}

	if headersOnly {
		return plugin, nil
	}

	recordIDs, overrideIDs, err := p.scanRecords(r, len(header.Masters))
	if err != nil {
		return nil, err
	}
	plugin.RecordIDs = recordIDs
	plugin.OverrideRecordIDs = overrideIDs

	return plugin, nil
}

// parseHeader reads and parses the leading TES4 header record.
func (p *Parser) parseHeader(ctx context.Context, r io.Reader, filename string) (*PluginHeader, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	header := &PluginHeader{
		Filename: filename,
		Masters:  []Master{},
	}

	recordHeader, err := p.readRecordHeader(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrTruncatedFile)
		}
		return nil, err
	}

	if recordHeader.signature != SignatureTES4 {
		return nil, fmt.Errorf("%w: expected TES4, got %s", ErrInvalidSignature, recordHeader.signature)
	}

	header.Flags = PluginFlags{
		IsMaster:    recordHeader.flags&FlagMaster != 0,
		IsLight:     recordHeader.flags&FlagLight != 0,
		IsLocalized: recordHeader.flags&FlagLocalized != 0,
	}
	header.FormVersion = recordHeader.formVersion
	header.Type = p.determinePluginType(header.Flags, filename)

	recordData := make([]byte, recordHeader.dataSize)
	if _, err := io.ReadFull(r, recordData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
	}

	if err := p.parseSubrecords(recordData, header); err != nil {
		return nil, err
	}

	return header, nil
}

// recordHeader represents the header portion of a record or a GRUP group.
type recordHeader struct {
	signature   string
	dataSize    uint32
	flags       uint32
	formID      uint32
	timestamp   uint32 // or version control info
	formVersion uint16
	unknown     uint16
}

// readRecordHeader reads the fixed-size record header. A clean end of
// stream (zero bytes read) is returned as io.EOF unwrapped so callers that
// walk a sequence of sibling records can distinguish "no more records" from
// a genuinely truncated one.
func (p *Parser) readRecordHeader(r io.Reader) (*recordHeader, error) {
	// Record header layout (Skyrim+):
	// - 4 bytes: Type (signature)
	// - 4 bytes: Data size
	// - 4 bytes: Flags (or, for GRUP, the group label)
	// - 4 bytes: Form ID (or, for GRUP, the group type)
	// - 4 bytes: Timestamp/VC info
	// - 2 bytes: Form version
	// - 2 bytes: Unknown

	var buf [24]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
		}
		return nil, fmt.Errorf("read record header: %w", err)
	}

	signature := string(buf[0:4])

	for _, c := range signature {
		if c < 32 || c > 126 {
			return nil, fmt.Errorf("%w: invalid characters in signature", ErrNotPlugin)
		}
	}

	return &recordHeader{
		signature:   signature,
		dataSize:    binary.LittleEndian.Uint32(buf[4:8]),
		flags:       binary.LittleEndian.Uint32(buf[8:12]),
		formID:      binary.LittleEndian.Uint32(buf[12:16]),
		timestamp:   binary.LittleEndian.Uint32(buf[16:20]),
		formVersion: binary.LittleEndian.Uint16(buf[20:22]),
		unknown:     binary.LittleEndian.Uint16(buf[22:24]),
	}, nil
}

// scanRecords walks the sequence of top-level records/groups following the
// TES4 header, collecting form IDs without decoding any record contents
// (the record body's meaning is an external black box per spec §1/§6 -
// only the header, which carries the form ID, is ours to read).
//
// A record's override status is determined by the top byte of its form ID:
// Bethesda tools index a record's originating master by the position in
// the file's own Masters list, with masterCount itself (one past the last
// master index) reserved for records the plugin originates. Light-plugin
// (ESL) form ID compaction is not modelled here.
func (p *Parser) scanRecords(r io.Reader, masterCount int) (map[FormID]struct{}, map[FormID]struct{}, error) {
	recordIDs := make(map[FormID]struct{})
	overrideIDs := make(map[FormID]struct{})

	for {
		hdr, err := p.readRecordHeader(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return recordIDs, overrideIDs, nil
			}
			return nil, nil, err
		}

		if hdr.signature == SignatureGRUP {
			if hdr.dataSize < 24 {
				return nil, nil, fmt.Errorf("%w: group size %d smaller than header", ErrInvalidPlugin, hdr.dataSize)
			}
			sub := io.LimitReader(r, int64(hdr.dataSize-24))
			subIDs, subOverrides, err := p.scanRecords(sub, masterCount)
			if err != nil {
				return nil, nil, err
			}
			for id := range subIDs {
				recordIDs[id] = struct{}{}
			}
			for id := range subOverrides {
				overrideIDs[id] = struct{}{}
			}
			continue
		}

		if hdr.dataSize > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(hdr.dataSize)); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
			}
		}

		id := FormID(hdr.formID)
		recordIDs[id] = struct{}{}
		topByte := byte(id >> 24)
		if int(topByte) < masterCount {
			overrideIDs[id] = struct{}{}
		}
	}
}

// parseSubrecords parses the subrecords from the TES4 record data.
func (p *Parser) parseSubrecords(data []byte, header *PluginHeader) error {
	reader := bytes.NewReader(data)

	for reader.Len() > 0 {
		// Subrecord header: 4 bytes type + 2 bytes size
		var subHeader [6]byte
		if _, err := io.ReadFull(reader, subHeader[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read subrecord header: %w", err)
		}

		subType := string(subHeader[0:4])
		subSize := binary.LittleEndian.Uint16(subHeader[4:6])

		subData := make([]byte, subSize)
		if _, err := io.ReadFull(reader, subData); err != nil {
			return fmt.Errorf("read subrecord %s data: %w", subType, err)
		}

		switch subType {
		case SignatureHEDR:
			// HEDR is 12 bytes: float32 version, uint32 numRecords, uint32 nextObjectID
			if len(subData) >= 12 {
				header.HeaderVersion = math.Float32frombits(binary.LittleEndian.Uint32(subData[0:4]))
				header.NumRecords = binary.LittleEndian.Uint32(subData[4:8])
			}

		case SignatureCNAM:
			header.Author = p.readNullString(subData)

		case SignatureSNAM:
			header.Description = p.readNullString(subData)

		case SignatureMAST:
			masterName := p.readNullString(subData)
			if masterName != "" {
				header.Masters = append(header.Masters, Master{Filename: masterName})
			}

		case SignatureDATA:
			if len(subData) >= 8 && len(header.Masters) > 0 {
				size := binary.LittleEndian.Uint64(subData[0:8])
				header.Masters[len(header.Masters)-1].Size = size
			}
		}
	}

	return nil
}

// readNullString reads a null-terminated string from data.
func (p *Parser) readNullString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// determinePluginType determines the plugin type based on flags and file extension.
func (p *Parser) determinePluginType(flags PluginFlags, filename string) PluginType {
	ext := strings.ToLower(filepath.Ext(filename))

	// ESL flag takes precedence
	if flags.IsLight {
		return PluginTypeESL
	}

	if flags.IsMaster {
		return PluginTypeESM
	}

	switch ext {
	case ".esm":
		return PluginTypeESM
	case ".esl":
		return PluginTypeESL
	default:
		return PluginTypeESP
	}
}

// IsPluginFile checks if the given filename has a plugin extension.
func IsPluginFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".esp", ".esm", ".esl":
		return true
	default:
		return false
	}
}

// stripGhost removes a case-insensitive ".ghost" suffix, reporting whether
// one was present.
func stripGhost(filename string) (logical string, wasGhosted bool) {
	const suffix = ".ghost"
	if len(filename) > len(suffix) && strings.EqualFold(filename[len(filename)-len(suffix):], suffix) {
		return filename[:len(filename)-len(suffix)], true
	}
	return filename, false
}
