package memcachedb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// valueLinePattern matches a VALUE reply header: "VALUE <key> <flags> <bytes>".
var valueLinePattern = regexp.MustCompile(`^VALUE (\S+) (\S+) (\S+)$`)

// parseValueLine parses the header line of a VALUE block. It does not read
// the payload; the caller does that once it knows the byte count.
func parseValueLine(line string) (key string, length int, err error) {
	m := valueLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", 0, malformedErr(fmt.Sprintf("malformed VALUE line: %q", line))
	}
	if _, flagsErr := strconv.ParseUint(m[2], 10, 32); flagsErr != nil {
		return "", 0, malformedErr(fmt.Sprintf("malformed VALUE flags: %q", line))
	}
	n, convErr := strconv.Atoi(m[3])
	if convErr != nil || n < 0 {
		return "", 0, malformedErr(fmt.Sprintf("malformed VALUE length: %q", line))
	}
	return m[1], n, nil
}

// parseStoreReply interprets the single-line reply to set/add/replace.
func parseStoreReply(line string) error {
	switch line {
	case replyStored:
		return nil
	case replyNotStored:
		return ErrNotStored
	default:
		if isErrorLine(line) {
			return protoErr(line)
		}
		return malformedErr(fmt.Sprintf("unexpected reply to store command: %q", line))
	}
}

// parseDeleteReply interprets the single-line reply to delete.
func parseDeleteReply(line string) error {
	switch line {
	case replyDeleted:
		return nil
	case replyNotFound:
		return ErrNotFound
	default:
		if isErrorLine(line) {
			return protoErr(line)
		}
		return malformedErr(fmt.Sprintf("unexpected reply to delete command: %q", line))
	}
}

// parseDeltaReply interprets the reply to incr/decr: a bare decimal integer
// line (trailing spaces tolerated), or NOT_FOUND.
func parseDeltaReply(line string) (int64, error) {
	trimmed := strings.TrimRight(line, " ")
	if trimmed == replyNotFound {
		return 0, ErrNotFound
	}
	if isErrorLine(trimmed) {
		return 0, protoErr(trimmed)
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, malformedErr(fmt.Sprintf("unexpected reply to incr/decr command: %q", line))
	}
	return n, nil
}

// parseOKReply interprets the single-line reply to flush_all.
func parseOKReply(line string) error {
	if line == replyOK {
		return nil
	}
	if isErrorLine(line) {
		return protoErr(line)
	}
	return malformedErr(fmt.Sprintf("unexpected reply to flush_all command: %q", line))
}

// parseStatLine interprets a single "STAT <name> <value>" line, decoding
// rusage_user/rusage_system as sec:usec floats, all-digit values as
// integers, and everything else as a string.
func parseStatLine(line string) (name string, value any, err error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 || fields[0] != replyStat {
		return "", nil, malformedErr(fmt.Sprintf("malformed STAT line: %q", line))
	}
	name, raw := fields[1], fields[2]

	switch name {
	case "rusage_user", "rusage_system":
		return name, parseRusage(raw), nil
	}

	if n, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
		return name, n, nil
	}

	return name, raw, nil
}

// parseRusage converts a "<sec>:<usec>" pair into fractional seconds. A
// missing ":<usec>" component implies 0 microseconds.
func parseRusage(raw string) float64 {
	sec, usec, found := strings.Cut(raw, ":")
	secVal, _ := strconv.ParseFloat(sec, 64)
	if !found {
		return secVal
	}
	usecVal, _ := strconv.ParseFloat(usec, 64)
	return secVal + usecVal/1e6
}
