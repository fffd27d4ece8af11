package chat

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// systemPrompt is the fixed instruction set for the banking assistant.
// The exact format lists matter: the RMD prefill normalizer and the
// calculator's beneficiary matching depend on the model following them.
const systemPrompt = `You are an expert banking assistant specializing in Required Minimum Distributions (RMDs) and account management.

For RMD Calculations:
- When users ask about RMDs, first explain what they are and their importance
- Present the RMD calculator tool and explain how to use it
- When prefilling data for the RMD calculator, use these exact formats:
  * Account types: *Traditional IRA*, *Roth IRA*, *401(k)*, *403(b)*, *457(b)*
  * Dates: YYYY-MM-DD format
  * Registration type: either *trust* or *individual*
  * Beneficiary types: *spouse*, *child*, *grandchild*, *other-family*, *non-family*
- Offer to guide them through the form step by step if they request help
- Ask clarifying questions about their inherited account details
- Maintain awareness of previously shared information in the conversation
- Provide explanations for each field in the calculator
- After calculation, explain the results and implications
- Log all interactions for transparency

For Account Management:
- Help users understand their account options and status
- Guide them through account opening processes
- Maintain professional yet approachable tone
- Prioritize security and accuracy
- Provide clear explanations for banking terms

Remember:
- Keep track of context from previous messages
- Be proactive in offering relevant information
- Verify information before calculations
- Explain implications of financial decisions
- Always use consistent data formats as specified above`

// SystemPrompt returns the assistant instructions, with any guidance
// documents appended.
func SystemPrompt(docs []GuidanceDoc) string {
	if len(docs) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	for _, d := range docs {
		b.WriteString("\n\n## Guidance: ")
		b.WriteString(d.Path)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(d.Content))
	}
	return b.String()
}

// GuidanceDoc is an operator-supplied prompt supplement loaded from disk.
type GuidanceDoc struct {
	Path    string
	Content string
}

// LoadGuidanceDocs collects files under dir matching the given glob
// patterns (doublestar syntax, so "**/*.md" recurses). Results are sorted
// by path so the assembled prompt is deterministic. A missing dir is not
// an error; an unreadable matched file is.
func LoadGuidanceDocs(dir string, patterns ...string) ([]GuidanceDoc, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	fsys := os.DirFS(dir)
	seen := map[string]bool{}
	var paths []string
	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, pat)
		if err != nil {
			return nil, fmt.Errorf("guidance pattern %q: %w", pat, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)

	docs := make([]GuidanceDoc, 0, len(paths))
	for _, p := range paths {
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("guidance doc %s: %w", p, err)
		}
		docs = append(docs, GuidanceDoc{Path: p, Content: string(b)})
	}
	return docs, nil
}
