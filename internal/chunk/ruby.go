package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func rubySpec() LanguageSpec {
	return LanguageSpec{
		Name: "ruby",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "def ", nameRE: namePattern("def")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declOther, prefix: "module ", nameRE: namePattern("module")},
		},
		IndentScoped:      true,
		LineCommentPrefix: "#",
	}
}

func init() { registerDefault(lang.Ruby, rubySpec()) }
