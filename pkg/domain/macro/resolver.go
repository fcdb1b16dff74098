// Package macro rewrites placeholder tokens inside a task's instruction text
// into escaped literal values drawn from completed upstream tasks, project
// metadata, or wall-clock time.
package macro

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/taskdeck/taskdeck/pkg/domain/graph"
	"github.com/taskdeck/taskdeck/pkg/domain/task"
)

// tokenPattern matches {{...}} placeholders. The inner text is parsed
// separately so unknown token families pass through verbatim.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"

	defaultSummaryLength = 500
)

// Resolution is the outcome of resolving one instruction text.
//
// Tokens referencing a task that does not exist or has not completed are left
// literal in Text and listed in Unresolved; callers detect "this task is not
// yet runnable" from the list instead of scanning the string.
type Resolution struct {
	Text       string
	Unresolved []string
}

// IsComplete reports whether every recognized token was substituted.
func (r *Resolution) IsComplete() bool {
	return len(r.Unresolved) == 0
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces the wall clock used by {{date}} and {{datetime}}.
func WithClock(c Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// WithQuoting wraps every substituted value in double quotes, for instruction
// text whose surrounding context expects a string literal (script bodies).
func WithQuoting() Option {
	return func(r *Resolver) { r.quote = true }
}

// WithSummaryLength overrides the truncation length of .summary variants.
func WithSummaryLength(n int) Option {
	return func(r *Resolver) { r.summaryLength = n }
}

// Resolver rewrites macro tokens for one project's task graph.
type Resolver struct {
	clock         Clock
	quote         bool
	summaryLength int
}

// NewResolver creates a macro resolver. By default it uses the system clock,
// escapes without quoting, and truncates summaries at 500 runes.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		clock:         SystemClock(),
		summaryLength: defaultSummaryLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve rewrites every recognized placeholder in the task's instruction
// text. Dependency-addressed tokens pull content through the graph resolver
// and the result codec; {{project.*}} reads the project metadata (empty
// string for unset fields); {{date}}/{{datetime}} read the injected clock.
//
// Never substitutes partial or in-progress content: a reference to a task
// that is missing, not done, or content-free stays literal.
func (r *Resolver) Resolve(t *task.Task, all []*task.Task, project *task.Project) *Resolution {
	deps, err := graph.OrderedDependencies(t, all)
	if err != nil {
		// Unresolvable dependency configuration: dependency-addressed tokens
		// stay literal; graph.Validate reports the underlying error.
		deps = nil
	}

	bySequence := make(map[int64]*task.Task, len(all))
	for _, at := range all {
		bySequence[at.ProjectSequence] = at
	}

	res := &Resolution{}
	res.Text = tokenPattern.ReplaceAllStringFunc(t.Instructions, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := r.resolveToken(inner, t, deps, bySequence, project)
		if !ok {
			res.Unresolved = append(res.Unresolved, match)
			return match
		}
		return value
	})
	return res
}

// resolveToken resolves one token body ("prev.2", "project.name", ...).
// Returns ok=false to leave the token literal.
func (r *Resolver) resolveToken(inner string, t *task.Task, deps []*task.Task, bySequence map[int64]*task.Task, project *task.Project) (string, bool) {
	parts := strings.Split(inner, ".")

	switch parts[0] {
	case "prev":
		return r.resolvePrev(parts, deps)
	case "task":
		return r.resolveTask(parts, bySequence)
	case "project":
		return r.resolveProject(parts, project)
	case "date":
		if len(parts) != 1 {
			return "", false
		}
		return r.encode(r.clock.Now().Format(dateLayout)), true
	case "datetime":
		if len(parts) != 1 {
			return "", false
		}
		return r.encode(r.clock.Now().Format(datetimeLayout)), true
	case "all_results":
		return r.resolveAllResults(parts, deps)
	default:
		return "", false
	}
}

// resolvePrev handles {{prev}} and {{prev.N}}: position (count-1-N) in the
// ascending-sequence dependency order, so {{prev}} == {{prev.0}} == the
// highest-sequence dependency.
func (r *Resolver) resolvePrev(parts []string, deps []*task.Task) (string, bool) {
	if len(deps) == 0 || len(parts) > 2 {
		return "", false
	}

	offset := 0
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			return "", false
		}
		offset = n
	}

	idx := len(deps) - 1 - offset
	if idx < 0 {
		return "", false
	}
	return r.contentOf(deps[idx])
}

// resolveTask handles {{task.N}}, {{task.N.summary}} and {{task.N.output}},
// addressing any task in the project by sequence regardless of dependency
// membership.
func (r *Resolver) resolveTask(parts []string, bySequence map[int64]*task.Task) (string, bool) {
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	target, ok := bySequence[seq]
	if !ok || !target.Status.IsDone() {
		return "", false
	}

	if len(parts) == 2 {
		return r.contentOf(target)
	}

	switch parts[2] {
	case "summary":
		content, ok := task.SummarizedContent(target.Result, r.summaryLength)
		if !ok {
			return "", false
		}
		return r.encode(content), true
	case "output":
		content, ok := task.SerializedContent(target.Result)
		if !ok {
			return "", false
		}
		return r.encode(content), true
	default:
		return "", false
	}
}

func (r *Resolver) resolveProject(parts []string, project *task.Project) (string, bool) {
	if project == nil || len(parts) != 2 {
		return "", false
	}
	switch parts[1] {
	case "name":
		return r.encode(project.Name), true
	case "description":
		return r.encode(project.Description), true
	case "baseDevFolder":
		return r.encode(project.BaseDevFolder), true
	default:
		return "", false
	}
}

// resolveAllResults handles {{all_results}} and {{all_results.summary}}:
// concatenation of every completed dependency's content, in ascending
// sequence order.
func (r *Resolver) resolveAllResults(parts []string, deps []*task.Task) (string, bool) {
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "summary") {
		return "", false
	}
	summarize := len(parts) == 2

	var sections []string
	for _, dep := range deps {
		if !dep.Status.IsDone() {
			continue
		}
		var content string
		var ok bool
		if summarize {
			content, ok = task.SummarizedContent(dep.Result, r.summaryLength)
		} else {
			content, ok = task.CanonicalContent(dep.Result)
		}
		if !ok {
			continue
		}
		sections = append(sections, content)
	}
	if len(sections) == 0 {
		return "", false
	}
	return r.encode(strings.Join(sections, "\n\n")), true
}

// contentOf extracts and encodes a dependency's canonical content, requiring
// the task to be done.
func (r *Resolver) contentOf(t *task.Task) (string, bool) {
	if !t.Status.IsDone() {
		return "", false
	}
	content, ok := task.CanonicalContent(t.Result)
	if !ok {
		return "", false
	}
	return r.encode(content), true
}

func (r *Resolver) encode(value string) string {
	if r.quote {
		return task.QuoteLiteral(value)
	}
	return task.EscapeLiteral(value)
}
