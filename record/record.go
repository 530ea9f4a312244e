// Package record implements the fixed-layout binary form of chains and
// solve results used across process and language boundaries.
//
// Layout (little-endian):
//
//	header  magic "SCSR" | uint16 version | uint16 kind
//	chain   uint64 count | count × {a, b, c, d float64}
//	result  int64 code | uint64 count | count × {x1, y1, x2, y2 float64}
//
// Records are exactly 32 bytes and keep the field order of
// scissor.Dimension and scissor.Segment.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ByLCY/linkage/scissor"
)

const (
	Magic      = "SCSR"
	Version    = 1
	HeaderSize = 8
	RecordSize = 32
	// MaxRecords caps the count field so a corrupt header cannot force a huge allocation.
	MaxRecords = 1 << 20
)

// Kind identifies the payload following the header.
type Kind uint16

const (
	KindChain  Kind = 1
	KindResult Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindChain:
		return "chain"
	case KindResult:
		return "result"
	default:
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
}

var (
	ErrBadMagic     = errors.New("record: bad magic")
	ErrVersion      = errors.New("record: unsupported version")
	ErrKind         = errors.New("record: unexpected kind")
	ErrTruncated    = errors.New("record: truncated input")
	ErrTooLarge     = errors.New("record: record count exceeds limit")
	ErrTrailing     = errors.New("record: trailing bytes")
	ErrInconsistent = errors.New("record: failed result carries segments")
)

var le = binary.LittleEndian

// MarshalChain encodes a chain.
func MarshalChain(chain scissor.Chain) []byte {
	buf := make([]byte, HeaderSize+8+RecordSize*len(chain))
	putHeader(buf, KindChain)
	le.PutUint64(buf[HeaderSize:], uint64(len(chain)))
	off := HeaderSize + 8
	for _, d := range chain {
		putRecord(buf[off:], d.A, d.B, d.C, d.D)
		off += RecordSize
	}
	return buf
}

// UnmarshalChain decodes a chain. Dimensions are not validated here;
// the solver re-checks every chain it receives.
func UnmarshalChain(b []byte) (scissor.Chain, error) {
	if err := checkHeader(b, KindChain); err != nil {
		return nil, err
	}
	n, body, err := readCount(b[HeaderSize:])
	if err != nil {
		return nil, err
	}
	chain := make(scissor.Chain, n)
	for i := range chain {
		a, bb, c, d := getRecord(body[i*RecordSize:])
		chain[i] = scissor.Dimension{A: a, B: bb, C: c, D: d}
	}
	return chain, nil
}

// MarshalResult encodes a solve result. Segments are dropped when the code is
// not success so the wire form never carries partial geometry.
func MarshalResult(res scissor.Result) []byte {
	segs := res.Segments
	if res.Code != scissor.CodeSuccess {
		segs = nil
	}
	buf := make([]byte, HeaderSize+16+RecordSize*len(segs))
	putHeader(buf, KindResult)
	le.PutUint64(buf[HeaderSize:], uint64(res.Code))
	le.PutUint64(buf[HeaderSize+8:], uint64(len(segs)))
	off := HeaderSize + 16
	for _, s := range segs {
		putRecord(buf[off:], s.X1, s.Y1, s.X2, s.Y2)
		off += RecordSize
	}
	return buf
}

// UnmarshalResult decodes a solve result.
func UnmarshalResult(b []byte) (scissor.Result, error) {
	if err := checkHeader(b, KindResult); err != nil {
		return scissor.Result{}, err
	}
	if len(b) < HeaderSize+8 {
		return scissor.Result{}, ErrTruncated
	}
	code := scissor.Code(int64(le.Uint64(b[HeaderSize:])))
	n, body, err := readCount(b[HeaderSize+8:])
	if err != nil {
		return scissor.Result{}, err
	}
	if code != scissor.CodeSuccess && n > 0 {
		return scissor.Result{}, fmt.Errorf("%w: code %s with %d segments", ErrInconsistent, code, n)
	}
	res := scissor.Result{Code: code}
	if n > 0 {
		res.Segments = make([]scissor.Segment, n)
		for i := range res.Segments {
			x1, y1, x2, y2 := getRecord(body[i*RecordSize:])
			res.Segments[i] = scissor.Segment{X1: x1, Y1: y1, X2: x2, Y2: y2}
		}
	}
	return res, nil
}

// PeekKind reports the kind of an encoded payload without decoding it.
func PeekKind(b []byte) (Kind, error) {
	if err := checkHeader(b, 0); err != nil {
		return 0, err
	}
	return Kind(le.Uint16(b[6:])), nil
}

// ReadChain reads one encoded chain from r, bounded by MaxRecords.
func ReadChain(r io.Reader) (scissor.Chain, error) {
	b, err := readLimited(r)
	if err != nil {
		return nil, err
	}
	return UnmarshalChain(b)
}

// ReadResult reads one encoded result from r.
func ReadResult(r io.Reader) (scissor.Result, error) {
	b, err := readLimited(r)
	if err != nil {
		return scissor.Result{}, err
	}
	return UnmarshalResult(b)
}

// WriteChain writes the encoded chain to w.
func WriteChain(w io.Writer, chain scissor.Chain) error {
	_, err := w.Write(MarshalChain(chain))
	return err
}

// WriteResult writes the encoded result to w.
func WriteResult(w io.Writer, res scissor.Result) error {
	_, err := w.Write(MarshalResult(res))
	return err
}

func readLimited(r io.Reader) ([]byte, error) {
	const limit = HeaderSize + 16 + RecordSize*MaxRecords
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if len(b) > limit {
		return nil, ErrTooLarge
	}
	return b, nil
}

func putHeader(buf []byte, kind Kind) {
	copy(buf, Magic)
	le.PutUint16(buf[4:], Version)
	le.PutUint16(buf[6:], uint16(kind))
}

// checkHeader validates magic and version; want == 0 accepts any known kind.
func checkHeader(b []byte, want Kind) error {
	if len(b) < HeaderSize {
		return ErrTruncated
	}
	if string(b[:4]) != Magic {
		return ErrBadMagic
	}
	if v := le.Uint16(b[4:]); v != Version {
		return fmt.Errorf("%w: %d", ErrVersion, v)
	}
	kind := Kind(le.Uint16(b[6:]))
	switch {
	case want == 0 && (kind == KindChain || kind == KindResult):
		return nil
	case kind != want:
		return fmt.Errorf("%w: got %s", ErrKind, kind)
	}
	return nil
}

// readCount reads the uint64 count and checks the body holds exactly that many records.
func readCount(b []byte) (int, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrTruncated
	}
	n := le.Uint64(b)
	if n > MaxRecords {
		return 0, nil, fmt.Errorf("%w: %d", ErrTooLarge, n)
	}
	body := b[8:]
	want := int(n) * RecordSize
	switch {
	case len(body) < want:
		return 0, nil, ErrTruncated
	case len(body) > want:
		return 0, nil, ErrTrailing
	}
	return int(n), body, nil
}

func putRecord(b []byte, v0, v1, v2, v3 float64) {
	le.PutUint64(b[0:], math.Float64bits(v0))
	le.PutUint64(b[8:], math.Float64bits(v1))
	le.PutUint64(b[16:], math.Float64bits(v2))
	le.PutUint64(b[24:], math.Float64bits(v3))
}

func getRecord(b []byte) (float64, float64, float64, float64) {
	return math.Float64frombits(le.Uint64(b[0:])),
		math.Float64frombits(le.Uint64(b[8:])),
		math.Float64frombits(le.Uint64(b[16:])),
		math.Float64frombits(le.Uint64(b[24:]))
}
