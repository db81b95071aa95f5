package recipe

import (
	"regexp"
	"strings"

	"recipe-catalog/internal/core/text"
	"recipe-catalog/internal/pkg/common"
)

var numberedItem = regexp.MustCompile(`^\d+\.\s+`)

type mdSection int

const (
	sectionNone mdSection = iota
	sectionIngredients
	sectionSteps
	sectionTips
	sectionPairing
)

// ParseMarkdown 解析單一食譜的 Markdown 文件：
// "# " 為標題，"## " 開啟區段（ingredientes、preparo/instruções、dicas、harmonização），
// "- " / "* " 為項目，"N. " 僅在準備步驟區段中視為步驟。
func ParseMarkdown(content string) (*Recipe, error) {
	var (
		title       string
		ingredients []string
		steps       []string
		tips        []string
		pairing     string
		section     = sectionNone
	)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(line[2:])
			continue
		}

		if strings.HasPrefix(line, "## ") {
			section = classifySection(line[3:])
			continue
		}

		if section == sectionNone {
			continue
		}

		switch {
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			item := strings.TrimSpace(line[2:])
			switch section {
			case sectionIngredients:
				ingredients = append(ingredients, item)
			case sectionSteps:
				steps = append(steps, item)
			case sectionTips:
				tips = append(tips, item)
			}
		case numberedItem.MatchString(line):
			if section == sectionSteps {
				steps = append(steps, numberedItem.ReplaceAllString(line, ""))
			}
		default:
			if section == sectionPairing {
				pairing = line
			}
		}
	}

	if strings.TrimSpace(title) == "" {
		return nil, common.NewFieldValidationError(FieldTitle, "markdown document has no '# ' heading")
	}

	r, _ := FromRecord(StorageRecord{
		FieldTitle:       title,
		FieldIngredients: ingredients,
		FieldSteps:       steps,
		FieldTips:        tips,
		FieldPairing:     pairing,
		FieldDifficulty:  "Médio",
		FieldNutrition:   ZeroNutrition(),
	})
	return r, nil
}

func classifySection(heading string) mdSection {
	h := text.Normalize(heading)
	switch {
	case strings.Contains(h, "ingredientes"):
		return sectionIngredients
	case strings.Contains(h, "preparo") || strings.Contains(h, "instrucoes"):
		return sectionSteps
	case strings.Contains(h, "dicas"):
		return sectionTips
	case strings.Contains(h, "harmonizacao"):
		return sectionPairing
	default:
		return sectionNone
	}
}
