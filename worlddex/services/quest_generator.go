package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/worlddex/worlddex/worlddex/catalog"
	"github.com/worlddex/worlddex/worlddex/database/models"
)

const (
	llmCacheSize          = 128
	defaultLLMMaxTokens   = 256
	defaultLLMTemperature = 0.7

	questSystemPrompt = "You are a quest designer for a field-discovery companion. " +
		"Respond with a single JSON object and nothing else."
)

// QuestGenerator produces candidate quests from catalog content, either via
// deterministic templates or an LLM-assisted path with template fallback.
type QuestGenerator struct {
	catalog  catalog.Provider
	llm      LLMClient
	llmCache *lru.Cache
}

func NewQuestGenerator(provider catalog.Provider, llm LLMClient) *QuestGenerator {
	cache, _ := lru.New(llmCacheSize)
	return &QuestGenerator{
		catalog:  provider,
		llm:      llm,
		llmCache: cache,
	}
}

// Generate returns one candidate quest, or nil when the catalog cannot
// supply one for the chosen strategy. Callers skip nil results and retry;
// a nil is never an error.
func (g *QuestGenerator) Generate(ctx context.Context) *models.Quest {
	categories := g.catalog.Categories()
	objects := g.catalog.Objects()
	if len(categories) == 0 || len(objects) == 0 {
		return nil
	}

	questType := models.QuestTypes[rand.Intn(len(models.QuestTypes))]

	if g.llm != nil {
		if quest := g.generateWithLLM(ctx, questType, categories, objects); quest != nil {
			return quest
		}
		// LLM failures never surface; the deterministic discovery template
		// takes over.
		return g.generateDiscovery(categories, objects)
	}

	return g.GenerateType(questType, categories, objects)
}

// GenerateType runs the deterministic template for one quest type.
func (g *QuestGenerator) GenerateType(questType models.QuestType, categories []catalog.Category, objects []catalog.Object) *models.Quest {
	switch questType {
	case models.QuestTypeDiscovery:
		return g.generateDiscovery(categories, objects)
	case models.QuestTypeCollection:
		return g.generateCollection(categories, objects)
	case models.QuestTypeExplorer:
		return g.generateExplorer(categories)
	case models.QuestTypeKnowledge:
		return g.generateKnowledge(objects)
	default:
		return nil
	}
}

func (g *QuestGenerator) generateDiscovery(categories []catalog.Category, objects []catalog.Object) *models.Quest {
	if len(categories) == 0 {
		return nil
	}

	category := categories[rand.Intn(len(categories))]
	catObjects := catalog.ObjectsInCategory(objects, category.ID)
	if len(catObjects) == 0 {
		return nil
	}

	maxTarget := len(catObjects)
	if maxTarget > 5 {
		maxTarget = 5
	}
	targetCount := rand.Intn(maxTarget) + 1

	return &models.Quest{
		QuestID:              questID(models.QuestTypeDiscovery, category.ID),
		Title:                fmt.Sprintf("Explore %s", category.Name),
		Description:          fmt.Sprintf("Discover %d different %s in your area", targetCount, strings.ToLower(category.Name)),
		Type:                 models.QuestTypeDiscovery,
		TargetCategory:       category.ID,
		TargetCount:          targetCount,
		TargetItems:          []string{},
		DiscoveredCategories: []string{},
		RewardPoints:         targetCount * 5,
		CreatedAt:            time.Now(),
	}
}

func (g *QuestGenerator) generateCollection(categories []catalog.Category, objects []catalog.Object) *models.Quest {
	if len(categories) == 0 {
		return nil
	}

	// Small categories make for winnable collection quests.
	var small []catalog.Category
	for _, c := range categories {
		if n := len(catalog.ObjectsInCategory(objects, c.ID)); n > 0 && n <= 3 {
			small = append(small, c)
		}
	}

	var category catalog.Category
	if len(small) > 0 {
		category = small[rand.Intn(len(small))]
	} else {
		category = categories[rand.Intn(len(categories))]
	}

	catObjects := catalog.ObjectsInCategory(objects, category.ID)
	if len(catObjects) == 0 {
		return nil
	}

	items := make([]string, 0, len(catObjects))
	for _, o := range catObjects {
		items = append(items, o.Name)
	}

	return &models.Quest{
		QuestID:              questID(models.QuestTypeCollection, category.ID),
		Title:                fmt.Sprintf("Master of %s", category.Name),
		Description:          fmt.Sprintf("Complete your %s collection by finding all known species", strings.ToLower(category.Name)),
		Type:                 models.QuestTypeCollection,
		TargetCategory:       category.ID,
		TargetCount:          len(catObjects),
		TargetItems:          items,
		DiscoveredCategories: []string{},
		RewardPoints:         len(catObjects) * 10,
		CreatedAt:            time.Now(),
	}
}

func (g *QuestGenerator) generateExplorer(categories []catalog.Category) *models.Quest {
	if len(categories) < 2 {
		return nil
	}

	count := len(categories)
	if count > 3 {
		count = 3
	}

	perm := rand.Perm(len(categories))[:count]
	ids := make([]string, 0, count)
	names := make([]string, 0, count)
	for _, i := range perm {
		ids = append(ids, categories[i].ID)
		names = append(names, categories[i].Name)
	}

	return &models.Quest{
		QuestID:              questID(models.QuestTypeExplorer, "multi"),
		Title:                "World Explorer",
		Description:          fmt.Sprintf("Discover at least one item from each: %s", strings.Join(names, ", ")),
		Type:                 models.QuestTypeExplorer,
		TargetCount:          count,
		TargetItems:          ids,
		DiscoveredCategories: []string{},
		RewardPoints:         count * 15,
		CreatedAt:            time.Now(),
	}
}

func (g *QuestGenerator) generateKnowledge(objects []catalog.Object) *models.Quest {
	if len(objects) == 0 {
		return nil
	}

	// Prefer objects with enough description to be worth studying.
	var detailed []catalog.Object
	for _, o := range objects {
		if len(o.Description) > 50 {
			detailed = append(detailed, o)
		}
	}

	var target catalog.Object
	if len(detailed) > 0 {
		target = detailed[rand.Intn(len(detailed))]
	} else {
		target = objects[rand.Intn(len(objects))]
	}

	slug := strings.ReplaceAll(target.Name, " ", "_")
	return &models.Quest{
		QuestID:              questID(models.QuestTypeKnowledge, slug),
		Title:                fmt.Sprintf("Study the %s", target.Name),
		Description:          fmt.Sprintf("Learn about the %s by viewing its detailed information", target.Name),
		Type:                 models.QuestTypeKnowledge,
		TargetCount:          1,
		TargetItems:          []string{target.Name},
		DiscoveredCategories: []string{},
		RewardPoints:         5,
		CreatedAt:            time.Now(),
	}
}

// questBlueprint is the schema the LLM must fill in.
type questBlueprint struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Type           string   `json:"type"`
	TargetCategory string   `json:"target_category"`
	TargetCount    int      `json:"target_count"`
	TargetItems    []string `json:"target_items"`
	RewardPoints   int      `json:"reward_points"`
}

func (g *QuestGenerator) generateWithLLM(ctx context.Context, questType models.QuestType, categories []catalog.Category, objects []catalog.Object) *models.Quest {
	prompt := buildQuestPrompt(questType, categories, objects)

	blueprint, ok := g.cachedBlueprint(prompt)
	if !ok {
		text, err := g.llm.Generate(ctx, questSystemPrompt, prompt, defaultLLMMaxTokens, defaultLLMTemperature)
		if err != nil {
			slog.Debug("LLM quest generation failed, falling back to template",
				slog.String("quest_type", string(questType)),
				slog.Any("error", err))
			return nil
		}

		parsed, err := parseQuestBlueprint(text)
		if err != nil {
			slog.Debug("LLM returned unusable quest, falling back to template",
				slog.String("quest_type", string(questType)),
				slog.Any("error", err))
			return nil
		}

		blueprint = parsed
		g.llmCache.Add(prompt, blueprint)
	}

	slug := blueprint.TargetCategory
	if slug == "" && models.QuestType(blueprint.Type) == models.QuestTypeExplorer {
		slug = "multi"
	}

	return &models.Quest{
		QuestID:              questID(models.QuestType(blueprint.Type), slug),
		Title:                blueprint.Title,
		Description:          blueprint.Description,
		Type:                 models.QuestType(blueprint.Type),
		TargetCategory:       blueprint.TargetCategory,
		TargetCount:          blueprint.TargetCount,
		TargetItems:          append([]string{}, blueprint.TargetItems...),
		DiscoveredCategories: []string{},
		RewardPoints:         blueprint.RewardPoints,
		CreatedAt:            time.Now(),
	}
}

func (g *QuestGenerator) cachedBlueprint(prompt string) (questBlueprint, bool) {
	value, ok := g.llmCache.Get(prompt)
	if !ok {
		return questBlueprint{}, false
	}
	blueprint, ok := value.(questBlueprint)
	return blueprint, ok
}

// buildQuestPrompt is deterministic for a given catalog so repeated backfill
// rounds hit the blueprint cache instead of the network.
func buildQuestPrompt(questType models.QuestType, categories []catalog.Category, objects []catalog.Object) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		count := len(catalog.ObjectsInCategory(objects, c.ID))
		names = append(names, fmt.Sprintf("%s (id=%s, %d objects)", c.Name, c.ID, count))
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Design one %q quest for a user exploring this catalog:\n", questType)
	for _, n := range names {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	b.WriteString("\nReply with JSON: {\"title\", \"description\", \"type\", " +
		"\"target_category\", \"target_count\", \"target_items\", \"reward_points\"}.")
	return b.String()
}

func parseQuestBlueprint(text string) (questBlueprint, error) {
	// Models wrap JSON in code fences often enough to strip them up front.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var blueprint questBlueprint
	if err := json.Unmarshal([]byte(text), &blueprint); err != nil {
		return questBlueprint{}, fmt.Errorf("malformed quest JSON: %w", err)
	}

	if blueprint.Title == "" || blueprint.Description == "" {
		return questBlueprint{}, fmt.Errorf("quest missing title or description")
	}
	if blueprint.TargetCount <= 0 || blueprint.RewardPoints <= 0 {
		return questBlueprint{}, fmt.Errorf("quest has non-positive target or reward")
	}

	switch models.QuestType(blueprint.Type) {
	case models.QuestTypeDiscovery:
		if blueprint.TargetCategory == "" {
			return questBlueprint{}, fmt.Errorf("discovery quest missing target_category")
		}
	case models.QuestTypeCollection:
		if blueprint.TargetCategory == "" || len(blueprint.TargetItems) == 0 {
			return questBlueprint{}, fmt.Errorf("collection quest missing targets")
		}
	case models.QuestTypeExplorer:
		if len(blueprint.TargetItems) == 0 {
			return questBlueprint{}, fmt.Errorf("explorer quest missing target_items")
		}
		// Progress counts distinct target categories, so a larger target
		// could never be reached.
		if blueprint.TargetCount > len(blueprint.TargetItems) {
			blueprint.TargetCount = len(blueprint.TargetItems)
		}
	case models.QuestTypeKnowledge:
		if len(blueprint.TargetItems) == 0 {
			return questBlueprint{}, fmt.Errorf("knowledge quest missing target_items")
		}
		// Viewing the target completes the quest outright; progress never
		// goes past 1.
		blueprint.TargetCount = 1
	default:
		return questBlueprint{}, fmt.Errorf("unknown quest type %q", blueprint.Type)
	}

	return blueprint, nil
}

// questID builds a unique id from the quest type, its primary target and a
// snowflake suffix. Snowflakes are monotonic, so two quests generated in the
// same second still get distinct ids.
func questID(questType models.QuestType, slug string) string {
	if slug == "" {
		slug = "general"
	}
	return fmt.Sprintf("%s_%s_%s", questType, slug, snowflake.New(time.Now()))
}
