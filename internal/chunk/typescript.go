package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func typescriptFamilySpec(name string) LanguageSpec {
	return LanguageSpec{
		Name: name,
		Declarations: []declPattern{
			{kind: declFunction, prefix: "export function ", nameRE: namePattern("export", "function")},
			{kind: declFunction, prefix: "export async function ", nameRE: namePattern("export", "async", "function")},
			{kind: declFunction, prefix: "async function ", nameRE: namePattern("async", "function")},
			{kind: declFunction, prefix: "function ", nameRE: namePattern("function")},
			{kind: declClass, prefix: "export class ", nameRE: namePattern("export", "class")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declInterface, prefix: "export interface ", nameRE: namePattern("export", "interface")},
			{kind: declInterface, prefix: "interface ", nameRE: namePattern("interface")},
			{kind: declEnum, prefix: "export enum ", nameRE: namePattern("export", "enum")},
			{kind: declEnum, prefix: "enum ", nameRE: namePattern("enum")},
		},
		ImportPrefixes:      []string{"from ", "import "},
		IndentScoped:        false,
		LineCommentPrefix:   "//",
		ArrowFunctionAssign: true,
	}
}

func init() {
	registerDefault(lang.TypeScript, typescriptFamilySpec("typescript"))
	registerDefault(lang.JavaScript, typescriptFamilySpec("javascript"))
}
