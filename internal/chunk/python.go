package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func pythonSpec() LanguageSpec {
	return LanguageSpec{
		Name: "python",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "def ", nameRE: namePattern("def")},
			{kind: declFunction, prefix: "async def ", nameRE: namePattern("async", "def")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
		},
		ImportPrefixes:    []string{"from ", "import "},
		IndentScoped:      true,
		LineCommentPrefix: "#",
	}
}

func init() { registerDefault(lang.Python, pythonSpec()) }
