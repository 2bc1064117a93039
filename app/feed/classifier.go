package feed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classifier assigns the category of the first rule whose keywords match.
type Classifier struct {
	rules  []Rule
	folded [][]string
}

func NewClassifier(rules []Rule) *Classifier {
	c := &Classifier{
		rules:  rules,
		folded: make([][]string, len(rules)),
	}
	for i, rule := range rules {
		for _, keyword := range rule.Keywords {
			keyword = strings.TrimSpace(keyword)
			if keyword != "" {
				c.folded[i] = append(c.folded[i], Fold(keyword))
			}
		}
	}
	return c
}

func (c *Classifier) Run(title, summary string) string {
	text := Fold(title + " " + summary)

	for i, rule := range c.rules {
		for _, keyword := range c.folded[i] {
			if strings.Contains(text, keyword) {
				return rule.Category
			}
		}
	}

	return CategoryUnclassified
}

func (c *Classifier) Rules() []Rule {
	return c.rules
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule list from a YAML file. An empty path yields DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var parsed rulesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateRules(parsed.Rules); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}

	return parsed.Rules, nil
}

func validateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("at least one rule is required")
	}
	for i, rule := range rules {
		if strings.TrimSpace(rule.Category) == "" {
			return fmt.Errorf("rule at index %d has no category", i)
		}
		if rule.Category == CategoryUnclassified {
			return fmt.Errorf("rule at index %d uses reserved category %q", i, CategoryUnclassified)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("rule at index %d must have at least one keyword", i)
		}
	}
	return nil
}

// DefaultRules checks the AI tier before the broader technology tier.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: "AI",
			Keywords: []string{
				"artificial intelligence", "machine learning", "deep learning", "neural network",
				"natural language processing", "computer vision", "reinforcement learning",
				"large language model", "LLM", "GPT", "transformer", "diffusion",
				"generative AI", "chatbot", "OpenAI", "Anthropic", "DeepMind",
				"人工智能", "机器学习", "深度学习", "神经网络", "自然语言处理", "计算机视觉",
				"语音识别", "强化学习", "大语言模型", "生成式AI", "生成式人工智能",
			},
		},
		{
			Category: "general-tech",
			Keywords: []string{
				"quantum", "semiconductor", "chip", "robot", "autonomous driving", "self-driving",
				"cloud computing", "edge computing", "blockchain", "metaverse", "internet of things", "5G", "6G",
				"virtual reality", "augmented reality", "brain-computer interface",
				"科技", "技术", "创新", "数字化", "量子计算", "区块链", "元宇宙", "机器人",
				"自动驾驶", "物联网", "半导体", "芯片", "云计算", "边缘计算",
			},
		},
	}
}
