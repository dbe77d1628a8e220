package notion

// Property value builders for page create and update bodies.

func TitleProperty(text string) map[string]any {
	return map[string]any{"title": RichText(text)}
}

func RichTextProperty(text string) map[string]any {
	return map[string]any{"rich_text": RichText(text)}
}

func SelectProperty(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func StatusProperty(name string) map[string]any {
	return map[string]any{"status": map[string]any{"name": name}}
}

func NumberProperty(n float64) map[string]any {
	return map[string]any{"number": n}
}

// DateProperty takes an ISO 8601 date or datetime.
func DateProperty(start string) map[string]any {
	return map[string]any{"date": map[string]any{"start": start}}
}

func RelationProperty(ids ...string) map[string]any {
	rel := make([]any, 0, len(ids))
	for _, id := range ids {
		rel = append(rel, map[string]any{"id": id})
	}
	return map[string]any{"relation": rel}
}
