// Package sse reads server-sent event payloads from a streaming HTTP
// response body. Only data lines matter for the provider streams we
// consume; event names, ids and comments are skipped.
package sse

import (
	"bufio"
	"io"
	"strings"
)

const doneSentinel = "[DONE]"

// Scanner yields the payload of each "data:" line in order. The
// terminal [DONE] marker is reported as io.EOF.
type Scanner struct {
	r *bufio.Reader
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next returns the next data payload. io.EOF marks the end of the
// stream, either the [DONE] sentinel or the connection closing.
func (s *Scanner) Next() (string, error) {
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && strings.TrimSpace(line) == "" {
				return "", io.EOF
			}
			if err != io.EOF {
				return "", err
			}
		}

		line = strings.TrimRight(line, "\r\n")
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimPrefix(payload, " ")
		if payload == doneSentinel {
			return "", io.EOF
		}
		return payload, nil
	}
}
