package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

func rustSpec() LanguageSpec {
	return LanguageSpec{
		Name: "rust",
		Declarations: []declPattern{
			{kind: declFunction, prefix: "pub fn ", nameRE: namePattern("pub", "fn")},
			{kind: declFunction, prefix: "async fn ", nameRE: namePattern("async", "fn")},
			{kind: declFunction, prefix: "fn ", nameRE: namePattern("fn")},
			{kind: declStruct, prefix: "pub struct ", nameRE: namePattern("pub", "struct")},
			{kind: declStruct, prefix: "struct ", nameRE: namePattern("struct")},
			{kind: declEnum, prefix: "pub enum ", nameRE: namePattern("pub", "enum")},
			{kind: declEnum, prefix: "enum ", nameRE: namePattern("enum")},
			{kind: declInterface, prefix: "pub trait ", nameRE: namePattern("pub", "trait")},
			{kind: declInterface, prefix: "trait ", nameRE: namePattern("trait")},
			{kind: declOther, prefix: "impl ", nameRE: namePattern("impl")},
		},
		ImportPrefixes:    []string{"use "},
		IndentScoped:      false,
		LineCommentPrefix: "//",
	}
}

func init() { registerDefault(lang.Rust, rustSpec()) }
