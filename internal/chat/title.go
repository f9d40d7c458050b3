package chat

import (
	"fmt"
	"regexp"
	"strconv"
)

var titlePattern = regexp.MustCompile(`^Conversation (\d+)$`)

// nextSequentialTitle computes the next "Conversation N" display title from
// the user's existing conversation titles. Titles that don't match the
// pattern are skipped, not errors; with no parseable titles the sequence
// starts at 1.
func nextSequentialTitle(existing []string) string {
	max := 0
	for _, title := range existing {
		match := titlePattern.FindStringSubmatch(title)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("Conversation %d", max+1)
}
