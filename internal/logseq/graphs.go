package logseq

import "strings"

// Section headers printed by `logseq list`.
const (
	dbGraphsHeader   = "DB Graphs:"
	fileGraphsHeader = "File Graphs:"
)

// ParseGraphList extracts the DB graph names from `logseq list` output.
// File graphs are ignored since they cannot be queried. Output without a
// DB Graphs section yields no names.
func ParseGraphList(output string) []string {
	var (
		graphs    []string
		inSection bool
	)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == dbGraphsHeader:
			inSection = true
		case line == fileGraphsHeader:
			return graphs
		case inSection && line != "":
			graphs = append(graphs, line)
		}
	}
	return graphs
}
