package stream

import "bytes"

// LineDecoder converts raw incoming byte chunks into complete
// newline-delimited records. Incomplete trailing data is buffered across
// calls, so a record (or a multi-byte UTF-8 sequence inside one) may be
// split arbitrarily between chunks: bytes are only decoded to text once a
// full line has arrived.
type LineDecoder struct {
	buf []byte
}

// Feed appends a chunk and returns the lines completed by it, in order,
// with the trailing newline (and any preceding \r) stripped. Content after
// the last newline is held until the next Feed. Feed never fails: malformed
// text simply yields unparseable lines for the parser to drop.
func (d *LineDecoder) Feed(p []byte) []string {
	d.buf = append(d.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return lines
		}
		line := d.buf[:i]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		d.buf = d.buf[i+1:]
	}
}

// Reset discards any buffered partial line.
func (d *LineDecoder) Reset() {
	d.buf = nil
}
