package omo

// CategoryMigrations maps agents that now delegate to a category.
var CategoryMigrations = map[string]string{
	"explore": "quick",
}

// NeedsCategoryMigration reports whether cfg predates categories.
func NeedsCategoryMigration(cfg *Config) bool {
	return cfg == nil || cfg.Meta == nil || cfg.Meta.MigratedToCategories == ""
}

// MigrateCategories tags every configured, untagged agent listed in
// CategoryMigrations with its category and stamps the migration marker.
// It returns the agents that were tagged.
func (d *Document) MigrateCategories(date string) ([]string, error) {
	cfg, err := d.Config()
	if err != nil {
		return nil, err
	}

	var tagged []string
	for _, agent := range sortedNames(CategoryMigrations) {
		block, ok := cfg.Agent(agent)
		if !ok || block.Category != "" {
			continue
		}
		if err := d.SetAgentCategory(agent, CategoryMigrations[agent]); err != nil {
			return tagged, err
		}
		tagged = append(tagged, agent)
	}

	if err := d.SetMigrationMarker(date); err != nil {
		return tagged, err
	}
	return tagged, nil
}
