package llm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"triagem/internal/textutil"
)

var (
	headerPattern        = regexp.MustCompile(`(?i)\bresumo\s*:\s*`)
	leadingHeaderPattern = regexp.MustCompile(`(?i)^\s*resumo\s*[-—:]\s*`)
	nonWordPattern       = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

func summaryPrompt(text string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Você é um analista de suporte. Resuma o texto do chamado em português do Brasil,
em apenas uma frase curta e objetiva, na terceira pessoa.
Não escreva cabeçalhos nem explique seus passos.

Texto:
"""%s"""
Saída:
`, text))
}

func classifyPrompt(text string, labels []string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Você é um analista de suporte. Classifique o texto do chamado em cada uma das categorias: %s.
Responda somente com JSON no formato {"scores": {"<categoria>": <número entre 0 e 1>}},
com uma entrada para cada categoria, usando exatamente os nomes informados.

Texto:
"""%s"""
`, strings.Join(labels, "; "), text))
}

// PostprocessSummary cleans generated text: it drops "Resumo:" headers,
// quotes and repeated sentences, and keeps at most maxSentences sentences.
func PostprocessSummary(raw string, maxSentences int) string {
	t := textutil.CollapseSpace(raw)
	if t == "" {
		return ""
	}
	if maxSentences <= 0 {
		maxSentences = 3
	}
	t = headerPattern.ReplaceAllString(t, "")
	sents := textutil.SplitSentences(t)

	seen := make(map[string]bool)
	var out []string
	for _, s := range sents {
		s = strings.Trim(s, ` "«»“”`)
		if s == "" {
			continue
		}
		s = strings.TrimSpace(leadingHeaderPattern.ReplaceAllString(s, ""))
		key := nonWordPattern.ReplaceAllString(strings.ToLower(s), "")
		if utf8.RuneCountInString(s) < 3 || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) >= maxSentences {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	summary := strings.Join(out, " ")
	if len(sents) > maxSentences {
		summary += " " + textutil.Ellipsis
	}
	return summary
}

// finishSummary post-processes and bounds a generated summary. Output that is
// empty or shorter than minLength runes counts as a failed generation.
func finishSummary(raw string, maxSentences, maxLength, minLength int) (string, error) {
	summary := textutil.Clip(PostprocessSummary(raw, maxSentences), maxLength)
	if summary == "" {
		return "", fmt.Errorf("empty summary after post-processing")
	}
	if n := utf8.RuneCountInString(summary); n < minLength {
		return "", fmt.Errorf("summary has %d characters, minimum is %d", n, minLength)
	}
	return summary, nil
}

// maxNewTokens estimates a generation budget for maxLength characters.
func maxNewTokens(maxLength int) int {
	n := maxLength/3 + 1
	if n < 16 {
		return 16
	}
	if n > 256 {
		return 256
	}
	return n
}
