package style

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Elegant = "elegant"
	Cute    = "cute"

	DefaultID = Elegant
)

const elegantPrompt = `Transform this photo into a traditional Chinese ink wash painting style portrait.

Style requirements:
- Traditional Chinese ink painting (水墨画) aesthetic with delicate watercolor washes
- Elegant flowing lines with visible brush stroke texture
- Color palette: soft pinks, vermillion red, ink black, rice paper white, subtle jade green
- Character wearing traditional Chinese Hanfu clothing with flowing sleeves and elegant draping
- Background: minimalist with scattered plum blossoms or cherry blossoms petals falling
- Add subtle ink wash mountains or mist in the far background
- Include a small red seal stamp (印章) in the corner
- Maintain the person's facial features and likeness while stylizing them
- Year of the Horse elements: subtle horse motifs in clothing patterns or a small decorative horse accessory
- Overall mood: serene, poetic, traditional Chinese painting elegance
- Aspect ratio: portrait orientation`

const cutePrompt = `Transform this photo into a cute Chinese New Year illustration style.

Style requirements:
- Adorable chibi/Q-version character design with big expressive eyes
- Traditional Chinese ink wash painting texture as base
- Color palette: warm vermillion red, soft pink, pine green, cream yellow, gentle orange
- Character wearing cute traditional Chinese festive clothing (Tang suit or Hanfu)
- Background: festive Chinese New Year scene with traditional architecture, snow, or blooming trees
- Decorative elements: red lanterns, lucky clouds, auspicious patterns, falling petals or snow
- Include cute Year of the Horse elements: small horse companions, horse-themed accessories, or horse zodiac symbols
- Add a red seal stamp (印章) in the corner
- Maintain the person's recognizable features while making them cute and stylized
- Overall mood: warm, festive, joyful celebration atmosphere
- Aspect ratio: portrait orientation`

// Template is one style id and its prompt.
type Template struct {
	ID     string
	Prompt string
}

// Builtin returns the styles shipped with the service.
func Builtin() []Template {
	return []Template{
		{ID: Elegant, Prompt: elegantPrompt},
		{ID: Cute, Prompt: cutePrompt},
	}
}

// Table maps style ids to prompts. It is built once and read-only afterwards,
// so it is safe for concurrent use.
type Table struct {
	prompts   map[string]string
	defaultID string
}

// NewTable builds a table from the builtin styles plus extra, where extra
// entries replace builtins with the same id. defaultID must name a style in
// the resulting table; an empty defaultID means Elegant.
func NewTable(extra []Template, defaultID string) (*Table, error) {
	prompts := make(map[string]string)
	for _, t := range Builtin() {
		prompts[t.ID] = t.Prompt
	}
	for _, t := range extra {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return nil, fmt.Errorf("style id is required")
		}
		if strings.TrimSpace(t.Prompt) == "" {
			return nil, fmt.Errorf("style %q has an empty prompt", id)
		}
		prompts[id] = t.Prompt
	}

	if defaultID == "" {
		defaultID = DefaultID
	}
	if _, ok := prompts[defaultID]; !ok {
		return nil, fmt.Errorf("default style %q is not defined", defaultID)
	}
	return &Table{prompts: prompts, defaultID: defaultID}, nil
}

// MustDefault returns the builtin table. It panics only if the builtin
// definitions are broken.
func MustDefault() *Table {
	t, err := NewTable(nil, "")
	if err != nil {
		panic(err)
	}
	return t
}

// Prompt returns the prompt for id, or the default prompt when id is unknown
// or empty. The second result reports whether id itself was found.
func (t *Table) Prompt(id string) (string, bool) {
	if p, ok := t.prompts[id]; ok {
		return p, true
	}
	return t.prompts[t.defaultID], false
}

// Resolve returns the id whose prompt Prompt(id) would use.
func (t *Table) Resolve(id string) string {
	if _, ok := t.prompts[id]; ok {
		return id
	}
	return t.defaultID
}

func (t *Table) DefaultID() string { return t.defaultID }

// IDs returns all style ids in sorted order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.prompts))
	for id := range t.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
