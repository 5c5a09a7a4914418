package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func javaFamilySpec(name string) LanguageSpec {
	return LanguageSpec{
		Name: name,
		Declarations: []declPattern{
			{kind: declFunction, prefix: "public static ", nameRE: methodNameAfter("public", "static")},
			{kind: declFunction, prefix: "private static ", nameRE: methodNameAfter("private", "static")},
			{kind: declFunction, prefix: "protected static ", nameRE: methodNameAfter("protected", "static")},
			{kind: declClass, prefix: "public class ", nameRE: namePattern("public", "class")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declInterface, prefix: "public interface ", nameRE: namePattern("public", "interface")},
			{kind: declInterface, prefix: "interface ", nameRE: namePattern("interface")},
			{kind: declEnum, prefix: "public enum ", nameRE: namePattern("public", "enum")},
			{kind: declEnum, prefix: "enum ", nameRE: namePattern("enum")},
		},
		ImportPrefixes:    []string{"import "},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func init() { registerDefault(lang.Java, javaFamilySpec("java")) }
