package memcachedb

import (
	"fmt"
	"strconv"
	"strings"
)

// formatGet builds a "get <k1> <k2> …" command line for get/get_multi.
func formatGet(keys []string) string {
	return cmdGet + " " + strings.Join(keys, " ") + "\r\n"
}

// formatRget builds an "rget <k1> <k2> 0 0 <max>" command line.
func formatRget(keys []string, limit int) string {
	return fmt.Sprintf("%s %s 0 0 %d\r\n", cmdRget, strings.Join(keys, " "), limit)
}

// formatStore builds a "<op> <key> 0 <expiry> <bytes>\r\n<data>\r\n" command.
func formatStore(mode StoreMode, key string, expiry int64, data []byte) string {
	var b strings.Builder
	b.WriteString(mode.command())
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString(" 0 ")
	b.WriteString(strconv.FormatInt(expiry, 10))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(len(data)))
	b.WriteString("\r\n")
	b.Write(data) //nolint:errcheck // strings.Builder.Write never errors.
	b.WriteString("\r\n")
	return b.String()
}

// formatDelete builds a "delete <key> <expiry>" command line.
func formatDelete(key string, expiry int64) string {
	return fmt.Sprintf("%s %s %d\r\n", cmdDelete, key, expiry)
}

// formatDelta builds an "<op> <key> <amount>" command line for incr/decr.
func formatDelta(mode DeltaMode, key string, amount uint64) string {
	return fmt.Sprintf("%s %s %d\r\n", mode.command(), key, amount)
}

// formatFlushAll builds the "flush_all" command line.
func formatFlushAll() string {
	return cmdFlushAll + "\r\n"
}

// formatStats builds the "stats" command line.
func formatStats() string {
	return cmdStats + "\r\n"
}
