package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/worlddex/worlddex/worlddex/database/models"
)

type scriptedLLM struct {
	response string
	err      error
	calls    int
}

func (l *scriptedLLM) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func TestGenerateDiscovery(t *testing.T) {
	cat := testCatalog()
	gen := NewQuestGenerator(cat, nil)

	for i := 0; i < 20; i++ {
		quest := gen.GenerateType(models.QuestTypeDiscovery, cat.Categories(), cat.Objects())
		if quest == nil {
			t.Fatal("GenerateType(discovery) returned nil with a populated catalog")
		}
		if quest.Type != models.QuestTypeDiscovery {
			t.Fatalf("quest type = %q, want discovery", quest.Type)
		}
		if quest.TargetCategory != "birds" && quest.TargetCategory != "trees" {
			t.Errorf("target category %q not in catalog", quest.TargetCategory)
		}
		// Both catalog categories hold 2 objects.
		if quest.TargetCount < 1 || quest.TargetCount > 2 {
			t.Errorf("target count = %d, want 1..2", quest.TargetCount)
		}
		if quest.RewardPoints != quest.TargetCount*5 {
			t.Errorf("reward = %d, want %d", quest.RewardPoints, quest.TargetCount*5)
		}
	}
}

func TestGenerateCollection(t *testing.T) {
	cat := testCatalog()
	gen := NewQuestGenerator(cat, nil)

	quest := gen.GenerateType(models.QuestTypeCollection, cat.Categories(), cat.Objects())
	if quest == nil {
		t.Fatal("GenerateType(collection) returned nil with a populated catalog")
	}
	if quest.TargetCount != len(quest.TargetItems) {
		t.Errorf("target count = %d, items = %d, want equal", quest.TargetCount, len(quest.TargetItems))
	}
	if quest.RewardPoints != len(quest.TargetItems)*10 {
		t.Errorf("reward = %d, want %d", quest.RewardPoints, len(quest.TargetItems)*10)
	}
	known := map[string]bool{"Robin": true, "Blue Jay": true, "Oak": true, "Maple": true}
	for _, item := range quest.TargetItems {
		if !known[item] {
			t.Errorf("target item %q not in catalog", item)
		}
	}
}

func TestGenerateExplorer(t *testing.T) {
	cat := testCatalog()
	gen := NewQuestGenerator(cat, nil)

	quest := gen.GenerateType(models.QuestTypeExplorer, cat.Categories(), cat.Objects())
	if quest == nil {
		t.Fatal("GenerateType(explorer) returned nil with two categories")
	}
	if quest.TargetCount != 2 || len(quest.TargetItems) != 2 {
		t.Errorf("explorer targets = %d items, count %d, want 2/2", len(quest.TargetItems), quest.TargetCount)
	}
	if quest.RewardPoints != quest.TargetCount*15 {
		t.Errorf("reward = %d, want %d", quest.RewardPoints, quest.TargetCount*15)
	}
	for _, id := range quest.TargetItems {
		if id != "birds" && id != "trees" {
			t.Errorf("explorer target %q is not a category id", id)
		}
	}
}

func TestGenerateExplorerNeedsTwoCategories(t *testing.T) {
	cat := staticCatalog{
		categories: testCatalog().categories[:1],
		objects:    testCatalog().objects,
	}
	gen := NewQuestGenerator(cat, nil)

	if quest := gen.GenerateType(models.QuestTypeExplorer, cat.Categories(), cat.Objects()); quest != nil {
		t.Errorf("explorer quest generated from a single category: %+v", quest)
	}
}

func TestGenerateKnowledge(t *testing.T) {
	cat := testCatalog()
	gen := NewQuestGenerator(cat, nil)

	quest := gen.GenerateType(models.QuestTypeKnowledge, cat.Categories(), cat.Objects())
	if quest == nil {
		t.Fatal("GenerateType(knowledge) returned nil with a populated catalog")
	}
	if quest.TargetCount != 1 || len(quest.TargetItems) != 1 {
		t.Errorf("knowledge targets = %d items, count %d, want 1/1", len(quest.TargetItems), quest.TargetCount)
	}
	if quest.RewardPoints != 5 {
		t.Errorf("reward = %d, want 5", quest.RewardPoints)
	}
	// Only objects with substantial descriptions are worth a study quest here.
	if name := quest.TargetItems[0]; name != "Robin" && name != "Oak" {
		t.Errorf("knowledge target = %q, want a described object", name)
	}
}

func TestGenerateEmptyCatalog(t *testing.T) {
	gen := NewQuestGenerator(staticCatalog{}, nil)
	if quest := gen.Generate(context.Background()); quest != nil {
		t.Errorf("Generate() = %+v from an empty catalog, want nil", quest)
	}
}

func TestGenerateUniqueIDs(t *testing.T) {
	cat := testCatalog()
	gen := NewQuestGenerator(cat, nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		quest := gen.Generate(context.Background())
		if quest == nil {
			continue
		}
		if seen[quest.QuestID] {
			t.Fatalf("duplicate quest id %q", quest.QuestID)
		}
		seen[quest.QuestID] = true
	}
}

func TestGenerateLLMFallback(t *testing.T) {
	cat := testCatalog()
	llm := &scriptedLLM{err: fmt.Errorf("model overloaded")}
	gen := NewQuestGenerator(cat, llm)

	quest := gen.Generate(context.Background())
	if quest == nil {
		t.Fatal("Generate() returned nil instead of falling back to a template")
	}
	if quest.Type != models.QuestTypeDiscovery {
		t.Errorf("fallback quest type = %q, want discovery", quest.Type)
	}
	if llm.calls == 0 {
		t.Error("LLM was never consulted")
	}
}

func TestGenerateLLMMalformedFallsBack(t *testing.T) {
	cat := testCatalog()
	llm := &scriptedLLM{response: "Sure! Here is a fun quest idea for you."}
	gen := NewQuestGenerator(cat, llm)

	quest := gen.Generate(context.Background())
	if quest == nil {
		t.Fatal("Generate() returned nil for malformed LLM output")
	}
	if quest.Type != models.QuestTypeDiscovery {
		t.Errorf("fallback quest type = %q, want discovery", quest.Type)
	}
}

func TestGenerateLLMBlueprintCached(t *testing.T) {
	cat := testCatalog()
	llm := &scriptedLLM{response: `{"title":"Bird Bonanza","description":"Spot two birds","type":"discovery","target_category":"birds","target_count":2,"target_items":[],"reward_points":10}`}
	gen := NewQuestGenerator(cat, llm)

	seen := map[string]bool{}
	for i := 0; i < 12; i++ {
		quest := gen.Generate(context.Background())
		if quest == nil {
			t.Fatal("Generate() returned nil on the LLM path")
		}
		if quest.Title != "Bird Bonanza" {
			t.Fatalf("quest title = %q, want the LLM blueprint", quest.Title)
		}
		if seen[quest.QuestID] {
			t.Fatalf("cached blueprint reused quest id %q", quest.QuestID)
		}
		seen[quest.QuestID] = true
	}

	// One prompt per quest type at most; repeats come from the cache.
	if llm.calls > len(models.QuestTypes) {
		t.Errorf("LLM called %d times for 12 generations, want <= %d", llm.calls, len(models.QuestTypes))
	}
}

func TestParseQuestBlueprint(t *testing.T) {
	valid := `{"title":"T","description":"D","type":"collection","target_category":"birds","target_count":2,"target_items":["Robin","Blue Jay"],"reward_points":20}`

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "valid collection", text: valid},
		{name: "fenced json", text: "```json\n" + valid + "\n```"},
		{name: "plain fence", text: "```\n" + valid + "\n```"},
		{name: "prose", text: "Here is your quest!", wantErr: true},
		{name: "missing title", text: `{"description":"D","type":"discovery","target_category":"c","target_count":1,"reward_points":5}`, wantErr: true},
		{name: "zero target", text: `{"title":"T","description":"D","type":"discovery","target_category":"c","target_count":0,"reward_points":5}`, wantErr: true},
		{name: "zero reward", text: `{"title":"T","description":"D","type":"discovery","target_category":"c","target_count":1,"reward_points":0}`, wantErr: true},
		{name: "discovery without category", text: `{"title":"T","description":"D","type":"discovery","target_count":1,"reward_points":5}`, wantErr: true},
		{name: "collection without items", text: `{"title":"T","description":"D","type":"collection","target_category":"c","target_count":1,"reward_points":5}`, wantErr: true},
		{name: "explorer without items", text: `{"title":"T","description":"D","type":"explorer","target_count":1,"reward_points":5}`, wantErr: true},
		{name: "unknown type", text: `{"title":"T","description":"D","type":"raid","target_count":1,"reward_points":5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseQuestBlueprint(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseQuestBlueprint() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseQuestBlueprintNormalizesTargets(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount int
	}{
		{
			// Progress on a knowledge quest is pinned at 1, so a larger
			// target would leave the quest stuck in the active pool forever.
			name:      "knowledge target forced to one",
			text:      `{"title":"T","description":"D","type":"knowledge","target_count":3,"target_items":["Robin"],"reward_points":5}`,
			wantCount: 1,
		},
		{
			name:      "explorer target clamped to item count",
			text:      `{"title":"T","description":"D","type":"explorer","target_count":5,"target_items":["birds","trees"],"reward_points":30}`,
			wantCount: 2,
		},
		{
			name:      "explorer target below item count kept",
			text:      `{"title":"T","description":"D","type":"explorer","target_count":2,"target_items":["birds","trees","rocks"],"reward_points":30}`,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blueprint, err := parseQuestBlueprint(tt.text)
			if err != nil {
				t.Fatalf("parseQuestBlueprint() error = %v", err)
			}
			if blueprint.TargetCount != tt.wantCount {
				t.Errorf("TargetCount = %d, want %d", blueprint.TargetCount, tt.wantCount)
			}
		})
	}
}

func TestGenerateLLMExplorerIDSlug(t *testing.T) {
	cat := testCatalog()
	llm := &scriptedLLM{response: `{"title":"Roam","description":"Visit both","type":"explorer","target_count":2,"target_items":["birds","trees"],"reward_points":30}`}
	gen := NewQuestGenerator(cat, llm)

	quest := gen.Generate(context.Background())
	if quest == nil {
		t.Fatal("Generate() returned nil on the LLM path")
	}
	if !strings.HasPrefix(quest.QuestID, "explorer_multi_") {
		t.Errorf("quest id = %q, want explorer_multi_ prefix", quest.QuestID)
	}
}

func TestBuildQuestPromptDeterministic(t *testing.T) {
	cat := testCatalog()
	a := buildQuestPrompt(models.QuestTypeDiscovery, cat.Categories(), cat.Objects())
	b := buildQuestPrompt(models.QuestTypeDiscovery, cat.Categories(), cat.Objects())
	if a != b {
		t.Error("identical catalogs produced different prompts")
	}
	if a == buildQuestPrompt(models.QuestTypeExplorer, cat.Categories(), cat.Objects()) {
		t.Error("different quest types share a prompt")
	}
}
