package tools

import "fmt"

// PrintSummary prints a human-readable summary of a synthesized tool set:
// total count plus a per-tag breakdown. Useful for inspecting what a
// specification will turn into before serving it.
//
// Example output:
//
//	Total tools: 12
//	Tags:
//	  pets: 8
//	  store: 3
//	  user: 1
func PrintSummary(descs []Descriptor) {
	tagCount := map[string]int{}
	for _, d := range descs {
		for _, tag := range d.Operation.Tags {
			tagCount[tag]++
		}
	}
	fmt.Printf("Total tools: %d\n", len(descs))
	if len(tagCount) > 0 {
		fmt.Println("Tags:")
		for tag, count := range tagCount {
			fmt.Printf("  %s: %d\n", tag, count)
		}
	}
}
