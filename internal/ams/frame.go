package ams

import (
	"errors"
	"fmt"
)

// MaxFrameLength is the largest accepted size of AMS header plus data.
// Frames announcing more than this are treated as a protocol violation.
const MaxFrameLength = 4 << 20 // 4 MiB

// ErrFrameTooLong is returned when a length field announces a frame outside
// the accepted range. The connection must be closed; the decoder discards
// its buffer.
var ErrFrameTooLong = errors.New("ams: frame length out of range")

// Frame represents a complete AMS frame consisting of the AMS header and data.
// On plain TCP the wire form is preceded by the 6-byte AMS/TCP header; inside
// a Secure ADS tunnel the header and data are sent bare.
type Frame struct {
	Header Header
	Data   []byte
}

// NewRequestFrame creates a request frame with the given routing and payload.
func NewRequestFrame(targetNetID NetID, targetPort Port, sourceNetID NetID, sourcePort Port, commandID uint16, invokeID uint32, data []byte) *Frame {
	return &Frame{
		Header: Header{
			TargetNetID: targetNetID,
			TargetPort:  targetPort,
			SourceNetID: sourceNetID,
			SourcePort:  sourcePort,
			CommandID:   commandID,
			StateFlags:  StateFlagsRequest,
			DataLength:  uint32(len(data)),
			ErrorCode:   0,
			InvokeID:    invokeID,
		},
		Data: data,
	}
}

// Codec encodes and decodes AMS frames against a byte stream.
// IncludeTCPHeader selects the plain-TCP framing with the 6-byte AMS/TCP
// preamble; when false the frame is the bare AMS header plus data, as used
// inside the Secure ADS TLS tunnel.
type Codec struct {
	IncludeTCPHeader bool
}

// Encode serializes the frame into its wire form.
func (c Codec) Encode(f *Frame) ([]byte, error) {
	if uint64(HeaderSize)+uint64(len(f.Data)) > MaxFrameLength {
		return nil, ErrFrameTooLong
	}
	f.Header.DataLength = uint32(len(f.Data))

	hdrBuf, err := f.Header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ams: marshal header: %w", err)
	}

	var buf []byte
	if c.IncludeTCPHeader {
		tcpHdr := TCPHeader{Length: uint32(HeaderSize + len(f.Data))}
		tcpBuf, err := tcpHdr.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("ams: marshal TCP header: %w", err)
		}
		buf = make([]byte, 0, len(tcpBuf)+len(hdrBuf)+len(f.Data))
		buf = append(buf, tcpBuf...)
	} else {
		buf = make([]byte, 0, len(hdrBuf)+len(f.Data))
	}
	buf = append(buf, hdrBuf...)
	buf = append(buf, f.Data...)
	return buf, nil
}

// Decoder reassembles frames from a byte stream fed in arbitrary chunks.
// Feed appends raw bytes; Next returns the next complete frame, or (nil, nil)
// while not enough bytes have accumulated. A frame is consumed from the
// buffer only when it is complete; partial frames are never surfaced.
type Decoder struct {
	codec Codec
	buf   []byte
}

// NewDecoder creates a Decoder for the given framing mode.
func NewDecoder(includeTCPHeader bool) *Decoder {
	return &Decoder{codec: Codec{IncludeTCPHeader: includeTCPHeader}}
}

// Feed appends raw stream bytes to the decoder's buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting in the decoder.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next returns the next complete frame, or (nil, nil) when the buffer does
// not yet hold one. On ErrFrameTooLong the buffer is discarded and the
// connection must be closed.
func (d *Decoder) Next() (*Frame, error) {
	if d.codec.IncludeTCPHeader {
		return d.nextTCP()
	}
	return d.nextRaw()
}

func (d *Decoder) nextTCP() (*Frame, error) {
	if len(d.buf) < 6 {
		return nil, nil
	}

	var tcpHdr TCPHeader
	if err := tcpHdr.UnmarshalBinary(d.buf[:6]); err != nil {
		return nil, err
	}
	length := tcpHdr.Length
	if length < HeaderSize || length > MaxFrameLength {
		d.buf = nil
		return nil, fmt.Errorf("%w: announced %d bytes", ErrFrameTooLong, length)
	}
	total := 6 + int(length)
	if len(d.buf) < total {
		return nil, nil
	}

	frame, err := parseFrame(d.buf[6:total])
	if err != nil {
		return nil, err
	}
	d.consume(total)
	return frame, nil
}

func (d *Decoder) nextRaw() (*Frame, error) {
	if len(d.buf) < HeaderSize {
		return nil, nil
	}

	var hdr Header
	if err := hdr.UnmarshalBinary(d.buf[:HeaderSize]); err != nil {
		return nil, err
	}
	total := uint64(HeaderSize) + uint64(hdr.DataLength)
	if total > MaxFrameLength {
		d.buf = nil
		return nil, fmt.Errorf("%w: announced %d bytes", ErrFrameTooLong, total)
	}
	if uint64(len(d.buf)) < total {
		return nil, nil
	}

	frame, err := parseFrame(d.buf[:total])
	if err != nil {
		return nil, err
	}
	d.consume(int(total))
	return frame, nil
}

// parseFrame decodes header plus data from a fully buffered frame image.
func parseFrame(image []byte) (*Frame, error) {
	var frame Frame
	if err := frame.Header.UnmarshalBinary(image[:HeaderSize]); err != nil {
		return nil, err
	}
	if uint64(HeaderSize)+uint64(frame.Header.DataLength) > uint64(len(image)) {
		return nil, fmt.Errorf("ams: data length %d exceeds frame of %d bytes",
			frame.Header.DataLength, len(image))
	}
	if frame.Header.DataLength > 0 {
		frame.Data = make([]byte, frame.Header.DataLength)
		copy(frame.Data, image[HeaderSize:HeaderSize+int(frame.Header.DataLength)])
	}
	return &frame, nil
}

func (d *Decoder) consume(n int) {
	rest := len(d.buf) - n
	if rest == 0 {
		d.buf = d.buf[:0]
		return
	}
	copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}
