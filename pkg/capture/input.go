package capture

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the transport behind an input string.
type Kind int

const (
	KindDevice    Kind = iota // Local camera index
	KindFile                  // Video file
	KindStream                // RTSP or HTTP video stream
	KindWebSocket             // JPEG frames over a websocket
	KindSnapshot              // JPEG snapshot polled over HTTP
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindFile:
		return "file"
	case KindStream:
		return "stream"
	case KindWebSocket:
		return "websocket"
	case KindSnapshot:
		return "snapshot"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Input is a parsed command-line input.
type Input struct {
	Kind   Kind
	Raw    string
	Device int // Set for KindDevice
}

// ParseInput classifies an input string.
func ParseInput(s string) (Input, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Input{}, fmt.Errorf("capture: empty input")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Input{}, fmt.Errorf("capture: invalid device index %d", n)
		}
		return Input{Kind: KindDevice, Raw: s, Device: n}, nil
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "ws://"), strings.HasPrefix(lower, "wss://"):
		return Input{Kind: KindWebSocket, Raw: s}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if isSnapshotURL(lower) {
			return Input{Kind: KindSnapshot, Raw: s}, nil
		}
		return Input{Kind: KindStream, Raw: s}, nil
	case strings.Contains(lower, "://"):
		return Input{Kind: KindStream, Raw: s}, nil
	}
	return Input{Kind: KindFile, Raw: s}, nil
}

func isSnapshotURL(u string) bool {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	switch filepath.Ext(u) {
	case ".jpg", ".jpeg":
		return true
	}
	return strings.Contains(u, "/api/snapshot/")
}

// SplitInputs expands comma-separated entries.
func SplitInputs(args []string) []string {
	var out []string
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
