package chunk

import (
	"regexp"

	"github.com/cdeust/ai-prd-codeindex/internal/lang"
)

// goFuncNameRE matches both `func Name(` and `func (r *Receiver) Name(`.
var goFuncNameRE = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

var goTypeStructRE = regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)\s+struct\b`)
var goTypeInterfaceRE = regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)\s+interface\b`)

func goSpec() LanguageSpec {
	return LanguageSpec{
		Name: "go",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "func ", nameRE: goFuncNameRE},
			{kind: declStruct, prefix: "type ", nameRE: goTypeStructRE},
			{kind: declInterface, prefix: "type ", nameRE: goTypeInterfaceRE},
		},
		ImportPrefixes:    []string{"import "},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func init() { registerDefault(lang.Go, goSpec()) }
