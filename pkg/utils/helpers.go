package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildFrame combines a topic with marshaled data into a single wire frame.
func BuildFrame(topic string, data interface{}) ([]byte, error) {
	var bytes []byte
	switch v := data.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		marshaled, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("could not marshal frame data: %s", err)
		}
		bytes = marshaled
	}
	return append([]byte(topic+">"), bytes...), nil
}

// ParseFrame reads a received frame and splits topic and payload.
func ParseFrame(frame []byte) (string, []byte, error) {
	split := strings.SplitN(string(frame), ">", 2)
	if len(split) != 2 {
		return "", nil, fmt.Errorf("malformed frame: %q", string(frame))
	}
	return strings.TrimSpace(split[0]), []byte(split[1]), nil
}
