package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

// cFamilySpec covers C, C++, and Objective-C: brace-scoped, no
// universal function keyword (a function is a type followed by a name
// and parens), so declarations are recognized via struct/class/enum
// keywords plus a best-effort function-signature match.
func cFamilySpec(name string) LanguageSpec {
	return LanguageSpec{
		Name: name,
		Declarations: []declPattern{
			{kind: declStruct, prefix: "struct ", nameRE: namePattern("struct")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declEnum, prefix: "enum ", nameRE: namePattern("enum")},
			{kind: declInterface, prefix: "@interface ", nameRE: namePattern("@interface")},
			{kind: declOther, prefix: "@implementation ", nameRE: namePattern("@implementation")},
			{kind: declFunction, prefix: "static ", nameRE: methodNameAfter("static")},
		},
		ImportPrefixes:        []string{"import "},
		IndentScoped:          false,
		LineCommentPrefix:     "//",
		FreeFunctionSignature: true,
	}
}

func init() {
	registerDefault(lang.C, cFamilySpec("c"))
	registerDefault(lang.Cpp, cFamilySpec("cpp"))
	registerDefault(lang.ObjC, cFamilySpec("objc"))
}
