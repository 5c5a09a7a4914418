package indexing

import (
	"sort"
	"strings"

	"github.com/cdeust/ai-prd-codeindex/internal/repository"
)

// detectLanguageBytes sums file size per detected language, feeding the
// tech-stack summary's "primary language" pick.
func detectLanguageBytes(files []repository.File) map[string]int64 {
	out := make(map[string]int64)
	for _, f := range files {
		if f.Language == "" {
			continue
		}
		out[f.Language] += f.Size
	}
	return out
}

// frameworkSignatures maps an import substring to the framework name it
// evidences. Matching is deliberately coarse (substring, not resolved
// module path): this is a supplementary heuristic, not a dependency
// graph.
var frameworkSignatures = []struct {
	needle string
	name   string
}{
	{"gin-gonic/gin", "Gin"},
	{"labstack/echo", "Echo"},
	{"gofiber/fiber", "Fiber"},
	{"django", "Django"},
	{"flask", "Flask"},
	{"fastapi", "FastAPI"},
	{"express", "Express"},
	{"nestjs", "NestJS"},
	{"react", "React"},
	{"vue", "Vue"},
	{"@angular", "Angular"},
	{"svelte", "Svelte"},
	{"rails", "Rails"},
	{"sinatra", "Sinatra"},
	{"springframework", "Spring"},
	{"vapor", "Vapor"},
	{"actix", "Actix"},
	{"rocket", "Rocket"},
}

// detectFrameworks scans chunk imports for known framework signatures,
// returning the distinct matches in first-seen order.
func detectFrameworks(chunks []repository.Chunk) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range chunks {
		for _, imp := range c.Imports {
			lower := strings.ToLower(imp)
			for _, sig := range frameworkSignatures {
				if strings.Contains(lower, sig.needle) && !seen[sig.name] {
					seen[sig.name] = true
					out = append(out, sig.name)
				}
			}
		}
	}
	return out
}

// pathPattern names an architecture pattern by the directory names whose
// joint presence evidences it.
var pathPatterns = []struct {
	name    string
	markers []string
}{
	{"layered", []string{"handler", "service", "repository"}},
	{"mvc", []string{"controller", "model", "view"}},
	{"hexagonal", []string{"port", "adapter"}},
	{"microservices", []string{"cmd"}},
}

// detectArchitecturePatterns flags a pattern when every one of its
// markers equals some path segment (case-insensitively, directory or
// file name) in the file set, with evidence paths being up to the
// first three files observed containing each marker segment.
func detectArchitecturePatterns(files []repository.File) []repository.ArchitecturePattern {
	dirHits := make(map[string][]string) // marker -> example paths (capped)
	for _, f := range files {
		segments := strings.Split(f.Path, "/")
		for _, seg := range segments {
			low := strings.ToLower(seg)
			if len(dirHits[low]) < 3 {
				dirHits[low] = append(dirHits[low], f.Path)
			}
		}
	}

	var out []repository.ArchitecturePattern
	for _, p := range pathPatterns {
		matched := true
		var evidence []string
		for _, marker := range p.markers {
			hits, ok := dirHits[marker]
			if !ok {
				matched = false
				break
			}
			evidence = append(evidence, hits...)
		}
		if !matched {
			continue
		}
		sort.Strings(evidence)
		confidence := float64(len(p.markers)) / float64(len(p.markers)+1)
		out = append(out, repository.ArchitecturePattern{
			Name:          p.name,
			Confidence:    confidence,
			EvidencePaths: evidence,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
