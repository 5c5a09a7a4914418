// Package lang maps file paths to language tags by extension, using a
// fixed table. Detection is deliberately dumb: no shebang sniffing, no
// content inspection.
package lang

import (
	"path/filepath"
	"strings"
)

// Tag identifies a detected language. Markup/data tags detect but are
// never handed to the chunk package for parsing.
type Tag string

const (
	Swift      Tag = "swift"
	Kotlin     Tag = "kotlin"
	Java       Tag = "java"
	TypeScript Tag = "typescript"
	JavaScript Tag = "javascript"
	Python     Tag = "python"
	Go         Tag = "go"
	Rust       Tag = "rust"
	Cpp        Tag = "cpp"
	C          Tag = "c"
	ObjC       Tag = "objc"
	Ruby       Tag = "ruby"
	PHP        Tag = "php"
	CSharp     Tag = "csharp"

	HTML     Tag = "html"
	CSS      Tag = "css"
	Markdown Tag = "markdown"
	JSON     Tag = "json"
	YAML     Tag = "yaml"
	XML      Tag = "xml"
)

// Chunkable reports whether files of this language are handed to the
// chunk package's registry. Markup/data tags detect but do not chunk.
func (t Tag) Chunkable() bool {
	switch t {
	case HTML, CSS, Markdown, JSON, YAML, XML:
		return false
	default:
		return t != ""
	}
}

var extensionToTag = map[string]Tag{
	".swift": Swift,

	".kt":  Kotlin,
	".kts": Kotlin,

	".java": Java,

	".ts":  TypeScript,
	".tsx": TypeScript,

	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,

	".py": Python,

	".go": Go,

	".rs": Rust,

	".cpp": Cpp,
	".cc":  Cpp,
	".cxx": Cpp,
	".hpp": Cpp,
	".hh":  Cpp,
	".hxx": Cpp,

	".c": C,
	".h": C,

	".m":  ObjC,
	".mm": ObjC,

	".rb": Ruby,

	".php": PHP,

	".cs": CSharp,

	".html": HTML,
	".htm":  HTML,
	".css":  CSS,
	".md":   Markdown,
	".json": JSON,
	".yaml": YAML,
	".yml":  YAML,
	".xml":  XML,
}

// Detect returns the language tag for path based on its extension, or
// "" if the extension is unrecognized. Matching is case-insensitive.
func Detect(path string) Tag {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	tag, ok := extensionToTag[ext]
	if !ok {
		return ""
	}
	return tag
}
