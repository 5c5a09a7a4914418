package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func swiftSpec() LanguageSpec {
	return LanguageSpec{
		Name: "swift",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "func ", nameRE: namePattern("func")},
			{kind: declFunction, prefix: "public func ", nameRE: namePattern("public", "func")},
			{kind: declFunction, prefix: "private func ", nameRE: namePattern("private", "func")},
			{kind: declFunction, prefix: "static func ", nameRE: namePattern("static", "func")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declStruct, prefix: "struct ", nameRE: namePattern("struct")},
			{kind: declEnum, prefix: "enum ", nameRE: namePattern("enum")},
			{kind: declInterface, prefix: "protocol ", nameRE: namePattern("protocol")},
		},
		ImportPrefixes:    []string{"import "},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func init() { registerDefault(lang.Swift, swiftSpec()) }
