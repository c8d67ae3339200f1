package pipeline

// DefaultCatalog returns the model ids the service accepts out of the box.
// defaultModel is added under its own id when it is not already listed, so a
// deployment pointing at a custom model keeps working without code changes.
func DefaultCatalog(defaultModel string) ModelCatalog {
	catalog := ModelCatalog{
		"gpt-4o":       {Provider: "openai", Name: "gpt-4o"},
		"gpt-4o-mini":  {Provider: "openai", Name: "gpt-4o-mini"},
		"gpt-4.1":      {Provider: "openai", Name: "gpt-4.1"},
		"gpt-4.1-mini": {Provider: "openai", Name: "gpt-4.1-mini"},
	}
	if defaultModel != "" {
		if _, ok := catalog[defaultModel]; !ok {
			catalog[defaultModel] = ModelInfo{Provider: "openai", Name: defaultModel}
		}
	}
	return catalog
}
