package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

// kotlinSpec and csharpSpec share Java's general brace-scoped shape
// with their own keyword set (fun vs method modifiers, data class, …).
func kotlinSpec() LanguageSpec {
	return LanguageSpec{
		Name: "kotlin",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "fun ", nameRE: namePattern("fun")},
			{kind: declFunction, prefix: "private fun ", nameRE: namePattern("private", "fun")},
			{kind: declFunction, prefix: "suspend fun ", nameRE: namePattern("suspend", "fun")},
			{kind: declClass, prefix: "data class ", nameRE: namePattern("data", "class")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declInterface, prefix: "interface ", nameRE: namePattern("interface")},
			{kind: declEnum, prefix: "enum class ", nameRE: namePattern("enum", "class")},
		},
		ImportPrefixes:    []string{"import "},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func csharpSpec() LanguageSpec {
	return LanguageSpec{
		Name: "csharp",
		Declarations: []declPattern{
			{kind: declClass, prefix: "public class ", nameRE: namePattern("public", "class")},
			{kind: declInterface, prefix: "public interface ", nameRE: namePattern("public", "interface")},
			{kind: declEnum, prefix: "public enum ", nameRE: namePattern("public", "enum")},
			{kind: declFunction, prefix: "public static ", nameRE: methodNameAfter("public", "static")},
			{kind: declFunction, prefix: "private static ", nameRE: methodNameAfter("private", "static")},
			{kind: declFunction, prefix: "public ", nameRE: methodNameAfter("public")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declInterface, prefix: "interface ", nameRE: namePattern("interface")},
			{kind: declEnum, prefix: "enum ", nameRE: namePattern("enum")},
		},
		ImportPrefixes:    []string{"import "},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func init() {
	registerDefault(lang.Kotlin, kotlinSpec())
	registerDefault(lang.CSharp, csharpSpec())
}
