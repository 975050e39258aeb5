package refsnp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseRSID parses an rsID such as "rs334" or "334".
func ParseRSID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	num := strings.TrimPrefix(strings.TrimPrefix(s, "rs"), "RS")
	id, err := strconv.ParseUint(num, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid rsID %q", s)
	}
	return id, nil
}

// FormatRSID returns the "rs"-prefixed form of an rsID.
func FormatRSID(id uint64) string {
	return "rs" + strconv.FormatUint(id, 10)
}

// ReadIDs reads rsIDs, one per line. Blank lines and lines starting
// with '#' are skipped. Input order is preserved.
func ReadIDs(r io.Reader) ([]uint64, error) {
	var ids []uint64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, err := ParseRSID(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rsID list: %w", err)
	}
	return ids, nil
}

// ReadIDFile reads an rsID list file. Use "-" for stdin.
func ReadIDFile(path string) ([]uint64, error) {
	if path == "-" {
		return ReadIDs(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rsID list: %w", err)
	}
	defer f.Close()
	return ReadIDs(f)
}
