package retriever

import (
	"fmt"
	"strings"

	"github.com/contextlab/codectx/pkg/types"
)

// placeholderNA substitutes for chunk fields that are empty.
const placeholderNA = "N/A"

// FormatResults renders results through the template, one block per result.
// Recognized placeholders are {file}, {kind}, {name}, {score}, {full_text}
// and {separator}; unknown text passes through verbatim.
func FormatResults(results []types.SearchResult, template, separator string) string {
	var sb strings.Builder
	for _, res := range results {
		sb.WriteString(formatResult(res, template, separator))
	}
	return sb.String()
}

func formatResult(res types.SearchResult, template, separator string) string {
	r := strings.NewReplacer(
		"{file}", orNA(res.File),
		"{kind}", orNA(string(res.Kind)),
		"{name}", orNA(res.Name),
		"{score}", fmt.Sprintf("%.4f", res.Score),
		"{full_text}", orNA(res.FullText),
		"{separator}", separator,
	)
	return r.Replace(template)
}

func orNA(s string) string {
	if s == "" {
		return placeholderNA
	}
	return s
}
