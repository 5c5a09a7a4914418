package embed

import (
	"math"
	"math/rand"
)

// rawDimension is the word-vector table's native width, pre-pad/truncate.
// A real deployment would load a trained table (GloVe, fastText, …); here
// a small deterministic table covers common English and source-code
// vocabulary so the local provider is fully self-contained and
// reproducible across runs and platforms.
const rawDimension = 64

// vocabulary is the set of tokens the local word-vector table knows.
// Tokens outside this set are simply absent from the table.
var vocabulary = buildVocabulary(
	// common English
	"the", "a", "an", "is", "are", "was", "were", "to", "of", "in", "on",
	"for", "and", "or", "not", "with", "by", "this", "that", "it", "as",
	"be", "at", "from", "user", "users", "password", "passwords", "login",
	"logout", "authenticate", "authentication", "auth", "session",
	"token", "credential", "credentials", "account", "signin", "signup",
	"verify", "validate", "secure", "security",
	// rendering / data
	"render", "chart", "charts", "graph", "plot", "data", "dataset",
	"visualize", "display", "draw", "canvas", "image",
	// code-ish
	"def", "function", "func", "return", "class", "struct", "enum",
	"interface", "module", "import", "export", "public", "private",
	"static", "const", "let", "var", "self", "this", "void", "int",
	"string", "float", "bool", "error", "nil", "null", "true", "false",
	"if", "else", "for", "while", "switch", "case", "break", "continue",
	"try", "catch", "throw", "async", "await", "query", "search", "index",
	"embed", "embedding", "vector", "similarity", "chunk", "file",
	"project", "repository", "commit", "branch",
)

func buildVocabulary(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// vectorFor returns the raw-dimension vector for a known lowercase
// token, deterministically derived from the token itself so it is
// stable across processes and platforms (no global PRNG state).
func vectorFor(token string) ([]float32, bool) {
	if _, ok := vocabulary[token]; !ok {
		return nil, false
	}
	seed := fnv64a(token)
	rng := rand.New(rand.NewSource(int64(seed)))
	v := make([]float32, rawDimension)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	normalize(v)
	return v, true
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// fnv64a is a minimal inline FNV-1a implementation, avoiding a hash.Hash
// allocation for a one-shot 64-bit digest.
func fnv64a(s string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
