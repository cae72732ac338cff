package providers

import (
	"bufio"
	"bytes"
	"io"
)

// SSEScanner scans Server-Sent Events (SSE) streams.
type SSEScanner struct {
	scanner *bufio.Scanner
	data    string
	err     error
}

// NewSSEScanner creates a new SSE scanner.
func NewSSEScanner(r io.Reader) *SSEScanner {
	return &SSEScanner{
		scanner: bufio.NewScanner(r),
	}
}

// dataPrefix starts an SSE data line. The space after the colon is optional
// per the SSE spec, and some emitters omit it.
var dataPrefix = []byte("data:")

// Scan advances to the next SSE data event.
func (s *SSEScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()

		// Skip empty lines (event boundaries)
		if len(line) == 0 {
			continue
		}

		if bytes.HasPrefix(line, dataPrefix) {
			payload := bytes.TrimPrefix(line, dataPrefix)
			if len(payload) > 0 && payload[0] == ' ' {
				payload = payload[1:]
			}
			s.data = string(payload)
			return true
		}
	}

	s.err = s.scanner.Err()
	return false
}

// Data returns the current event data.
func (s *SSEScanner) Data() string {
	return s.data
}

// Err returns any scanning error.
func (s *SSEScanner) Err() error {
	return s.err
}
