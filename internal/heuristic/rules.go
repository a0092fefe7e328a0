package heuristic

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"triagem/internal/textutil"
)

type Rule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

type Rules struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules covers the built-in label set.
func DefaultRules() Rules {
	return Rules{Rules: []Rule{
		{Label: "Reclamação", Keywords: []string{
			"erro", "não funciona", "demora", "reclama", "reclamação", "péssimo", "absurdo",
			"insatisfeito", "cobrança indevida", "descaso",
		}},
		{Label: "Suporte técnico", Keywords: []string{
			"suporte", "sistema caiu", "caiu", "fora do ar", "bug", "instalar", "acesso", "acessar",
			"senha", "configurar", "técnico", "login", "travando", "travou",
		}},
		{Label: "Dúvida", Keywords: []string{
			"como", "onde", "posso", "dúvida", "qual", "quando",
		}},
		{Label: "Solicitação de serviço", Keywords: []string{
			"pedido", "solicito", "solicitação", "provisionar", "ativar", "criar", "liberar", "cadastrar",
		}},
		{Label: "Feedback", Keywords: []string{
			"sugestão", "gostei", "melhorar", "ideia", "elogio", "parabéns",
		}},
	}}
}

func LoadRules(path string) (Rules, error) {
	var r Rules
	if path == "" {
		return r, errors.New("missing rules path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, rule := range r.Rules {
		if strings.TrimSpace(rule.Label) == "" {
			return r, fmt.Errorf("rule %d: empty label", i)
		}
	}
	return r, nil
}

// Merge returns r with the rules of other appended; keywords for a label that
// already exists are added to it.
func (r Rules) Merge(other Rules) Rules {
	out := Rules{Rules: make([]Rule, 0, len(r.Rules)+len(other.Rules))}
	index := make(map[string]int)
	for _, rule := range append(append([]Rule(nil), r.Rules...), other.Rules...) {
		key := textutil.Fold(strings.TrimSpace(rule.Label))
		if i, ok := index[key]; ok {
			out.Rules[i].Keywords = append(out.Rules[i].Keywords, rule.Keywords...)
			continue
		}
		index[key] = len(out.Rules)
		out.Rules = append(out.Rules, Rule{Label: rule.Label, Keywords: append([]string(nil), rule.Keywords...)})
	}
	return out
}

// compiledRules maps a folded label to its keywords, each split into folded
// words so matches only land on whole words.
type compiledRules map[string][][]string

func compile(r Rules) compiledRules {
	out := make(compiledRules, len(r.Rules))
	for _, rule := range r.Rules {
		key := textutil.Fold(strings.TrimSpace(rule.Label))
		seen := make(map[string]bool, len(out[key]))
		for _, kw := range out[key] {
			seen[strings.Join(kw, " ")] = true
		}
		for _, kw := range rule.Keywords {
			words := wordPattern.FindAllString(textutil.Fold(kw), -1)
			joined := strings.Join(words, " ")
			if joined == "" || seen[joined] {
				continue
			}
			seen[joined] = true
			out[key] = append(out[key], words)
		}
	}
	return out
}
