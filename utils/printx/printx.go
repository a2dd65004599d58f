package printx

import (
	"fmt"
	"strings"
)

func PrintStandardHeader(header string) {
	hBar := strings.Repeat("-", 80)
	fmt.Println("\n" + hBar + "\n" + header + "\n" + hBar)
}

// PrintList prints one item per line, indented under the preceding header.
func PrintList(items []string) {
	for _, item := range items {
		fmt.Println("  " + item)
	}
}
