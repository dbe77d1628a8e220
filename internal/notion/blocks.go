package notion

import (
	"fmt"
	"sort"
	"strings"
)

const maxRichTextChars = 2000

var textBlockTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"to_do":              true,
	"toggle":             true,
	"code":               true,
	"quote":              true,
	"callout":            true,
}

// RichText returns a single plain text run, split into 2000 character chunks.
func RichText(content string) []any {
	if content == "" {
		return []any{}
	}
	var runs []any
	r := []rune(content)
	for len(r) > 0 {
		n := min(len(r), maxRichTextChars)
		runs = append(runs, map[string]any{
			"type": "text",
			"text": map[string]any{"content": string(r[:n])},
		})
		r = r[n:]
	}
	return runs
}

func textBlock(blockType, content string, extra map[string]any) map[string]any {
	body := map[string]any{"rich_text": RichText(content)}
	for k, v := range extra {
		body[k] = v
	}
	return map[string]any{"object": "block", "type": blockType, blockType: body}
}

func Paragraph(content string) map[string]any { return textBlock("paragraph", content, nil) }

// Heading returns a heading_1..3 block. Levels outside 1..3 are clamped.
func Heading(level int, content string) map[string]any {
	level = max(1, min(level, 3))
	return textBlock(fmt.Sprintf("heading_%d", level), content, nil)
}

func BulletedListItem(content string) map[string]any {
	return textBlock("bulleted_list_item", content, nil)
}

func NumberedListItem(content string) map[string]any {
	return textBlock("numbered_list_item", content, nil)
}

func ToDo(content string, checked bool) map[string]any {
	return textBlock("to_do", content, map[string]any{"checked": checked})
}

func Toggle(content string, children []any) map[string]any {
	extra := map[string]any{}
	if len(children) > 0 {
		extra["children"] = children
	}
	return textBlock("toggle", content, extra)
}

func Code(content, language string) map[string]any {
	if language == "" {
		language = "plain text"
	}
	return textBlock("code", content, map[string]any{"language": language})
}

func Quote(content string) map[string]any { return textBlock("quote", content, nil) }

func Callout(content, emoji string) map[string]any {
	if emoji == "" {
		emoji = "💡"
	}
	return textBlock("callout", content, map[string]any{"icon": map[string]any{"type": "emoji", "emoji": emoji}})
}

func Divider() map[string]any {
	return map[string]any{"object": "block", "type": "divider", "divider": map[string]any{}}
}

// BuildBlock converts a shorthand block such as
// {"type": "to_do", "text": "ship", "checked": true} into Notion's block
// shape. Blocks already carrying their type keyed body pass through unchanged.
func BuildBlock(in map[string]any) (map[string]any, error) {
	blockType, _ := in["type"].(string)
	if blockType == "" {
		return nil, &ParamError{Param: "type", Message: "block type is required"}
	}
	if _, ok := in[blockType].(map[string]any); ok {
		return in, nil
	}
	if blockType == "divider" {
		return Divider(), nil
	}
	if !textBlockTypes[blockType] {
		return nil, &ParamError{Param: "type", Message: fmt.Sprintf("unsupported block type %q (supported: %s)", blockType, supportedTypes())}
	}

	text, _ := in["text"].(string)
	if text == "" {
		text, _ = in["content"].(string)
	}

	switch blockType {
	case "to_do":
		checked, _ := in["checked"].(bool)
		return ToDo(text, checked), nil
	case "code":
		language, _ := in["language"].(string)
		return Code(text, language), nil
	case "callout":
		emoji, _ := in["emoji"].(string)
		return Callout(text, emoji), nil
	case "toggle":
		children, err := BuildBlocks(in["children"])
		if err != nil {
			return nil, err
		}
		return Toggle(text, children), nil
	default:
		return textBlock(blockType, text, nil), nil
	}
}

// BuildBlocks applies BuildBlock to every element of a JSON array.
func BuildBlocks(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &ParamError{Param: "children", Message: "must be an array of blocks"}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &ParamError{Param: fmt.Sprintf("children[%d]", i), Message: "block must be an object"}
		}
		b, err := BuildBlock(m)
		if err != nil {
			if pe, ok := err.(*ParamError); ok {
				pe.Param = fmt.Sprintf("children[%d].%s", i, pe.Param)
			}
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func supportedTypes() string {
	types := []string{"divider"}
	for t := range textBlockTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}
