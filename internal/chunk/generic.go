package chunk

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// declKind classifies which bucket of declaration prefixes matched,
// before it's turned into a Type.
type declKind int

const (
	declFunction declKind = iota
	declClass
	declStruct
	declEnum
	declInterface
	declOther // trait/impl and similar — class-like but not one of the above
)

// declPattern is one recognized declaration prefix.
type declPattern struct {
	kind   declKind
	prefix string // matched against the line with leading whitespace trimmed
	// nameRE captures the declared symbol's name; group 1 is the name.
	nameRE *regexp.Regexp
}

// LanguageSpec parameterizes the shared heuristic engine for one
// language. Every registered language is an instance of this struct,
// so the engine's line-scan/brace-matching/indentation logic is
// written once and shared (see DESIGN.md).
type LanguageSpec struct {
	Name string

	// Declarations in priority order, matched against every line not
	// already inside an earlier chunk after trimming its leading
	// whitespace (indentation is not checked); the first pattern whose
	// prefix matches a line wins.
	Declarations []declPattern

	// ImportPrefixes are matched at indentation zero to collect imports.
	ImportPrefixes []string

	// IndentScoped languages (Python, Ruby) end a declaration's chunk
	// when indentation returns to the declaration's own level; brace-
	// scoped languages end it at the matching closing brace.
	IndentScoped bool

	// LineCommentPrefix marks a single-line comment, used to pull
	// comment lines immediately preceding a declaration into its chunk.
	LineCommentPrefix string

	// ArrowFunctionAssign additionally recognizes a module-scope
	// `const/let/var NAME = (...) => ...` or `NAME = function` binding
	// as a function-like declaration (JS/TS).
	ArrowFunctionAssign bool

	// FreeFunctionSignature additionally recognizes a bare
	// `RETTYPE name(params) {` definition (C/C++/Objective-C lack a
	// universal function keyword).
	FreeFunctionSignature bool
}

// cFunctionDefRE matches a free function definition: one or more
// leading type tokens, a name, a parenthesized parameter list, and an
// opening brace (same line or none yet) — never a statement (which
// would end in ';') or a control-flow line (which has no type token
// before its name).
var cFunctionDefRE = regexp.MustCompile(`^(?:[A-Za-z_][\w:<>\*&]*\s+)+([A-Za-z_]\w*)\s*\([^;]*\)\s*\{?\s*$`)

var cControlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"return": true, "else": true, "do": true, "typedef": true,
	"case": true, "sizeof": true, "catch": true,
}

func namePattern(words ...string) *regexp.Regexp {
	joined := strings.Join(words, `\s+`)
	return regexp.MustCompile(`^` + joined + `\s+(\*?[A-Za-z_][A-Za-z0-9_]*)`)
}

// methodNameAfter matches a modifier-prefixed method/function signature
// (e.g. "public static void run(") and captures the method name — the
// first identifier immediately followed by "(", skipping the return type.
func methodNameAfter(words ...string) *regexp.Regexp {
	joined := strings.Join(words, `\s+`)
	return regexp.MustCompile(`^` + joined + `\s+.*?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
}

// arrowAssignRE matches `const foo = (...) => {` / `let foo = async () => {` style bindings.
var arrowAssignRE = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[A-Za-z_][A-Za-z0-9_]*)\s*(?::[^=]+)?=>`)

// functionAssignRE matches `const foo = function(...)`.
var functionAssignRE = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:async\s*)?function\b`)

type heuristicParser struct {
	spec LanguageSpec
}

// NewHeuristicParser builds a Parser implementing the line-scan
// algorithm for the given LanguageSpec.
func NewHeuristicParser(spec LanguageSpec) Parser {
	return &heuristicParser{spec: spec}
}

func (p *heuristicParser) Parse(source, path string) ([]Parsed, error) {
	if !utf8.ValidString(source) {
		return nil, fmt.Errorf("invalid UTF-8 content in %s", path)
	}

	lines := strings.Split(source, "\n")
	imports := p.collectImports(lines)

	chunks := []Parsed{}
	consumedUntil := -1 // last 0-indexed line consumed by a chunk so far

	for i, raw := range lines {
		if i <= consumedUntil {
			continue
		}
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" {
			continue
		}

		pattern, name := p.matchDeclaration(trimmed)
		if pattern == nil {
			continue
		}

		start := i
		// Pull in immediately preceding comment lines.
		for start > consumedUntil+1 {
			prevTrimmed := strings.TrimSpace(lines[start-1])
			if prevTrimmed == "" || !p.isCommentLine(prevTrimmed) {
				break
			}
			start--
		}

		end := p.findChunkEnd(lines, i, trimmed)
		// Trim trailing whitespace-only lines from the chunk.
		for end > i && strings.TrimSpace(lines[end]) == "" {
			end--
		}

		content := strings.Join(lines[start:end+1], "\n")
		chunks = append(chunks, Parsed{
			StartLine:  start + 1,
			EndLine:    end + 1,
			Content:    content,
			ChunkType:  typeForKind(pattern.kind),
			Symbol:     name,
			TokenCount: estimateTokens(content),
			Imports:    imports,
		})
		consumedUntil = end
	}

	if len(chunks) == 0 {
		trimmedLines := lines
		end := len(trimmedLines) - 1
		for end >= 0 && strings.TrimSpace(trimmedLines[end]) == "" {
			end--
		}
		if end < 0 {
			return []Parsed{}, nil
		}
		content := strings.Join(lines[:end+1], "\n")
		return []Parsed{{
			StartLine:  1,
			EndLine:    end + 1,
			Content:    content,
			ChunkType:  TypeModule,
			TokenCount: estimateTokens(content),
			Imports:    imports,
		}}, nil
	}

	return chunks, nil
}

// matchDeclaration reports the first pattern (in priority order)
// whose prefix matches trimmed, along with the captured symbol name.
func (p *heuristicParser) matchDeclaration(trimmed string) (*declPattern, string) {
	for i := range p.spec.Declarations {
		pat := &p.spec.Declarations[i]
		if !strings.HasPrefix(trimmed, pat.prefix) {
			continue
		}
		if pat.nameRE == nil {
			return pat, ""
		}
		m := pat.nameRE.FindStringSubmatch(trimmed)
		if m == nil {
			// Prefix matched but the full shape didn't (e.g. "type Foo
			// interface" under a "type "-prefixed struct pattern) — try
			// the next candidate rather than accepting a nameless hit.
			continue
		}
		return pat, strings.TrimPrefix(m[1], "*")
	}
	if p.spec.ArrowFunctionAssign {
		if m := arrowAssignRE.FindStringSubmatch(trimmed); m != nil {
			return &declPattern{kind: declFunction}, m[1]
		}
		if m := functionAssignRE.FindStringSubmatch(trimmed); m != nil {
			return &declPattern{kind: declFunction}, m[1]
		}
	}
	if p.spec.FreeFunctionSignature {
		firstWord := strings.SplitN(trimmed, " ", 2)[0]
		if !cControlKeywords[firstWord] {
			if m := cFunctionDefRE.FindStringSubmatch(trimmed); m != nil {
				return &declPattern{kind: declFunction}, m[1]
			}
		}
	}
	return nil, ""
}

func (p *heuristicParser) isCommentLine(trimmed string) bool {
	if p.spec.LineCommentPrefix == "" {
		return false
	}
	return strings.HasPrefix(trimmed, p.spec.LineCommentPrefix)
}

// findChunkEnd returns the 0-indexed last line of the declaration
// starting at startIdx (whose trimmed text is startTrimmed).
func (p *heuristicParser) findChunkEnd(lines []string, startIdx int, startTrimmed string) int {
	if p.spec.IndentScoped {
		return p.findIndentScopedEnd(lines, startIdx, startTrimmed)
	}
	return p.findBraceScopedEnd(lines, startIdx)
}

func (p *heuristicParser) findIndentScopedEnd(lines []string, startIdx int, startTrimmed string) int {
	baseIndent := len(lines[startIdx]) - len(startTrimmed)
	last := startIdx
	for i := startIdx + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		indent := len(lines[i]) - len(strings.TrimLeft(lines[i], " \t"))
		if indent <= baseIndent {
			break
		}
		last = i
	}
	return last
}

func (p *heuristicParser) findBraceScopedEnd(lines []string, startIdx int) int {
	depth := 0
	seenOpen := false
	last := startIdx
	for i := startIdx; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
			}
		}
		last = i
		if seenOpen && depth <= 0 {
			return i
		}
	}
	// No brace found (e.g. an interface method signature, or a
	// single-line function): the declaration is just its own line.
	if !seenOpen {
		return startIdx
	}
	return last
}

func (p *heuristicParser) collectImports(lines []string) []string {
	var imports []string
	for _, raw := range lines {
		if raw == "" || (raw[0] == ' ' || raw[0] == '\t') {
			continue
		}
		for _, prefix := range p.spec.ImportPrefixes {
			if strings.HasPrefix(raw, prefix) {
				imports = append(imports, strings.TrimSpace(raw))
				break
			}
		}
	}
	return imports
}

func typeForKind(k declKind) Type {
	switch k {
	case declFunction:
		return TypeFunction
	case declClass:
		return TypeClass
	case declStruct:
		return TypeStruct
	case declEnum:
		return TypeEnum
	case declInterface:
		return TypeInterface
	default:
		return TypeOther
	}
}

// estimateTokens is the character-based token-count estimate:
// ceil(len(content) / 4).
func estimateTokens(content string) int {
	return int(math.Ceil(float64(len(content)) / 4))
}
