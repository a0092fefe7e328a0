package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"triagem/internal/textutil"
)

type ModelEndpoint struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Models struct {
		Enabled       bool          `yaml:"enabled"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxInputChars int           `yaml:"max_input_chars"`
		Summarizer    ModelEndpoint `yaml:"summarizer"`
		Classifier    struct {
			ModelEndpoint      `yaml:",inline"`
			HypothesisTemplate string `yaml:"hypothesis_template"`
			EmbedModel         string `yaml:"embed_model"`
		} `yaml:"classifier"`
	} `yaml:"models"`
	Summary struct {
		MaxLength           int `yaml:"max_length"`
		MinLength           int `yaml:"min_length"`
		MaxSentences        int `yaml:"max_sentences"`
		ShortWordsThreshold int `yaml:"short_words_threshold"`
	} `yaml:"summary"`
	Labels struct {
		Defaults     []string `yaml:"defaults"`
		Unclassified string   `yaml:"unclassified"`
	} `yaml:"labels"`
	Rules struct {
		Path string `yaml:"path"`
	} `yaml:"rules"`
	Batch struct {
		TextColumn  string `yaml:"text_column"`
		Separator   string `yaml:"separator"`
		PreviewRows int    `yaml:"preview_rows"`
		OutputDir   string `yaml:"output_dir"`
	} `yaml:"batch"`
	Redis struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"redis"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

var DefaultLabels = []string{
	"Feedback",
	"Reclamação",
	"Suporte técnico",
	"Dúvida",
	"Solicitação de serviço",
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":7860"
	cfg.Models.Enabled = true
	cfg.Models.Timeout = 60 * time.Second
	cfg.Models.MaxInputChars = 4000
	cfg.Models.Summarizer.Provider = "huggingface"
	cfg.Models.Summarizer.BaseURL = "http://localhost:8080"
	cfg.Models.Summarizer.Model = "HuggingFaceTB/SmolLM3-3B"
	cfg.Models.Classifier.Provider = "huggingface"
	cfg.Models.Classifier.BaseURL = "http://localhost:8081"
	cfg.Models.Classifier.Model = "joeddav/xlm-roberta-large-xnli"
	cfg.Models.Classifier.HypothesisTemplate = "This text is about {}."
	cfg.Models.Classifier.EmbedModel = "nomic-embed-text"
	cfg.Summary.MaxLength = 280
	cfg.Summary.MinLength = 10
	cfg.Summary.MaxSentences = 3
	cfg.Summary.ShortWordsThreshold = 6
	cfg.Labels.Defaults = append([]string(nil), DefaultLabels...)
	cfg.Batch.TextColumn = "descricao"
	cfg.Batch.Separator = ";"
	cfg.Batch.PreviewRows = 15
	cfg.Batch.OutputDir = os.TempDir()
	cfg.Redis.Key = "triagem:batch_jobs"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with. Model endpoints are not
// checked here: an unreachable model only degrades to the heuristics.
func (c Config) Validate() error {
	var errs []error
	if c.Summary.MaxLength <= len(textutil.Ellipsis) {
		errs = append(errs, fmt.Errorf("summary.max_length must be > %d", len(textutil.Ellipsis)))
	}
	if c.Summary.MinLength < 0 || c.Summary.MinLength > c.Summary.MaxLength {
		errs = append(errs, errors.New("summary.min_length must be between 0 and summary.max_length"))
	}
	if c.Summary.MaxSentences <= 0 {
		errs = append(errs, errors.New("summary.max_sentences must be > 0"))
	}
	if len(splitCSV(strings.Join(c.Labels.Defaults, ","))) == 0 {
		errs = append(errs, errors.New("labels.defaults must not be empty"))
	}
	if len([]rune(c.Batch.Separator)) != 1 {
		errs = append(errs, fmt.Errorf("batch.separator must be a single character, got %q", c.Batch.Separator))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRIAGEM_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("TRIAGEM_MODELS_ENABLED"); v != "" {
		cfg.Models.Enabled = parseBool(v, cfg.Models.Enabled)
	}
	if v := os.Getenv("TRIAGEM_MODELS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Models.Timeout = d
		}
	}
	if v := os.Getenv("TRIAGEM_MODELS_MAX_INPUT_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Models.MaxInputChars = n
		}
	}
	if v := os.Getenv("TRIAGEM_SUMMARIZER_PROVIDER"); v != "" {
		cfg.Models.Summarizer.Provider = v
	}
	if v := os.Getenv("TRIAGEM_SUMMARIZER_URL"); v != "" {
		cfg.Models.Summarizer.BaseURL = v
	}
	if v := os.Getenv("TRIAGEM_SUMMARIZER_MODEL"); v != "" {
		cfg.Models.Summarizer.Model = v
	}
	if v := os.Getenv("TRIAGEM_SUMMARIZER_API_KEY"); v != "" {
		cfg.Models.Summarizer.APIKey = v
	}
	if v := os.Getenv("TRIAGEM_CLASSIFIER_PROVIDER"); v != "" {
		cfg.Models.Classifier.Provider = v
	}
	if v := os.Getenv("TRIAGEM_CLASSIFIER_URL"); v != "" {
		cfg.Models.Classifier.BaseURL = v
	}
	if v := os.Getenv("TRIAGEM_CLASSIFIER_MODEL"); v != "" {
		cfg.Models.Classifier.Model = v
	}
	if v := os.Getenv("TRIAGEM_CLASSIFIER_API_KEY"); v != "" {
		cfg.Models.Classifier.APIKey = v
	}
	if v := os.Getenv("TRIAGEM_CLASSIFIER_EMBED_MODEL"); v != "" {
		cfg.Models.Classifier.EmbedModel = v
	}
	if v := os.Getenv("TRIAGEM_HYPOTHESIS_TEMPLATE"); v != "" {
		cfg.Models.Classifier.HypothesisTemplate = v
	}
	if v := os.Getenv("TRIAGEM_SUMMARY_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxLength = n
		}
	}
	if v := os.Getenv("TRIAGEM_SUMMARY_MIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MinLength = n
		}
	}
	if v := os.Getenv("TRIAGEM_SUMMARY_MAX_SENTENCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxSentences = n
		}
	}
	if v := os.Getenv("TRIAGEM_LABELS"); v != "" {
		cfg.Labels.Defaults = splitCSV(v)
	}
	if v := os.Getenv("TRIAGEM_UNCLASSIFIED_LABEL"); v != "" {
		cfg.Labels.Unclassified = v
	}
	if v := os.Getenv("TRIAGEM_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("TRIAGEM_TEXT_COLUMN"); v != "" {
		cfg.Batch.TextColumn = v
	}
	if v := os.Getenv("TRIAGEM_CSV_SEPARATOR"); v != "" {
		cfg.Batch.Separator = v
	}
	if v := os.Getenv("TRIAGEM_OUTPUT_DIR"); v != "" {
		cfg.Batch.OutputDir = v
	}
	if v := os.Getenv("TRIAGEM_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("TRIAGEM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRIAGEM_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on", "sim":
		return true
	case "0", "false", "no", "n", "off", "nao", "não":
		return false
	default:
		return fallback
	}
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		out = append(out, val)
	}
	return out
}
