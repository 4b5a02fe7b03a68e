package migrate

import (
	"bytes"
	"encoding/json"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders a standard unified line diff between the templatiser's
// expected and received payloads, both pretty-printed first so the diff is
// line-oriented. Returns "" when either side is absent or the sides are
// equal.
func UnifiedDiff(expected, received json.RawMessage) string {
	if len(expected) == 0 || len(received) == 0 {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prettyJSON(expected)),
		B:        difflib.SplitLines(prettyJSON(received)),
		FromFile: "expected",
		ToFile:   "received",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
