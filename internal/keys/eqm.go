package keys

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// eqmLine matches "<Name><N>=<value>" anywhere in a line.
var eqmLine = regexp.MustCompile(`[A-Za-z]+([0-9]+)=(.*)`)

// ParseEQM reads a legacy EQM key export:
//
//	[KEYS]
//	KeyValue1=000000C2137B42
//	KeyApartment1=0
//	KeyIndex1=0
//
// Lines are grouped by their numeric suffix in order of first appearance.
// The last value of each group (the record index) is dropped and the rest
// are joined with ","; values equal to "off" and "on" become "0" and "1".
// The variant is MIFARE when the first group has more than two values,
// RFID otherwise.
func ParseEQM(r io.Reader) ([]string, Variant, error) {
	var order []string
	groups := make(map[string][]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := eqmLine.FindStringSubmatch(strings.TrimRight(scanner.Text(), "\r"))
		if m == nil {
			continue
		}
		suffix, value := m[1], m[2]
		if _, ok := groups[suffix]; !ok {
			order = append(order, suffix)
		}
		groups[suffix] = append(groups[suffix], value)
	}
	if err := scanner.Err(); err != nil {
		return nil, RFID, fmt.Errorf("read EQM file: %w", err)
	}
	if len(order) == 0 {
		return nil, RFID, ErrNoKeys
	}

	out := make([]string, 0, len(order))
	for _, suffix := range order {
		values := groups[suffix]
		fields := make([]string, 0, len(values)-1)
		for _, v := range values[:len(values)-1] {
			fields = append(fields, eqmFlag(v))
		}
		out = append(out, strings.Join(fields, ","))
	}

	variant := RFID
	if len(groups[order[0]]) > 2 {
		variant = MIFARE
	}
	return out, variant, nil
}

func eqmFlag(v string) string {
	switch v {
	case "off":
		return "0"
	case "on":
		return "1"
	}
	return v
}

// DecodeAll decodes every string, stopping at the first failure.
func DecodeAll(lines []string) ([]*Key, error) {
	out := make([]*Key, 0, len(lines))
	for i, line := range lines {
		k, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i+1, err)
		}
		out = append(out, k)
	}
	return out, nil
}
