package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func phpSpec() LanguageSpec {
	return LanguageSpec{
		Name: "php",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "function ", nameRE: namePattern("function")},
			{kind: declFunction, prefix: "public function ", nameRE: namePattern("public", "function")},
			{kind: declFunction, prefix: "private function ", nameRE: namePattern("private", "function")},
			{kind: declFunction, prefix: "protected function ", nameRE: namePattern("protected", "function")},
			{kind: declFunction, prefix: "public static function ", nameRE: namePattern("public", "static", "function")},
			{kind: declClass, prefix: "class ", nameRE: namePattern("class")},
			{kind: declInterface, prefix: "interface ", nameRE: namePattern("interface")},
			{kind: declOther, prefix: "trait ", nameRE: namePattern("trait")},
		},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func init() { registerDefault(lang.PHP, phpSpec()) }
