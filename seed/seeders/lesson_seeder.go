package seeders

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/cleo-edu/cleo_api/model"
	"github.com/cleo-edu/cleo_api/shared"
)

// LessonSeeder handles seeding demo lessons
type LessonSeeder struct {
	db *gorm.DB
}

// NewLessonSeeder creates a new lesson seeder
func NewLessonSeeder(db *gorm.DB) *LessonSeeder {
	return &LessonSeeder{db: db}
}

// SeedLessons seeds the database with demo lessons. Existing lessons are
// left untouched so the seeder is safe to re-run.
func (s *LessonSeeder) SeedLessons() error {
	lessons := s.getDemoLessons()

	for _, lesson := range lessons {
		var existing model.Lesson
		if err := s.db.Where("id = ?", lesson.ID).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := s.db.Create(&lesson).Error; err != nil {
					log.Printf("Error creating lesson %s: %v", lesson.Topic, err)
					return err
				}
				log.Printf("Created lesson: %s", lesson.Topic)
			} else {
				log.Printf("Error checking lesson %s: %v", lesson.Topic, err)
				return err
			}
		} else {
			log.Printf("Lesson %s already exists, skipping", lesson.Topic)
		}
	}

	log.Println("Lesson seeding completed successfully")
	return nil
}

func (s *LessonSeeder) getDemoLessons() []model.Lesson {
	now := time.Now()

	return []model.Lesson{
		{
			ID:        "lesson_fractions_1",
			Topic:     "Adding Fractions",
			YearGroup: "Year 7",
			Subject:   "Maths",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
			Steps: []model.LessonStep{
				{ID: "step_fr1_intro", LessonID: "lesson_fractions_1", Order: 1, Title: "What is a fraction?", CreatedAt: now, UpdatedAt: now},
				{ID: "step_fr1_same_denom", LessonID: "lesson_fractions_1", Order: 2, Title: "Same denominators", CreatedAt: now, UpdatedAt: now},
				{ID: "step_fr1_practice", LessonID: "lesson_fractions_1", Order: 3, Title: "Practice", CreatedAt: now, UpdatedAt: now},
			},
			Content: []model.ContentBlock{
				{
					ID:       "block_fr1_text_intro",
					LessonID: "lesson_fractions_1",
					StepID:   "step_fr1_intro",
					Type:     shared.BlockTypeText,
					Title:    "Fractions all around us",
					Data: mustJSON(model.TextBlockData{
						Body: "A fraction describes a part of a whole. The number on top is the numerator and the number underneath is the denominator.",
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
				{
					ID:       "block_fr1_def_numerator",
					LessonID: "lesson_fractions_1",
					StepID:   "step_fr1_intro",
					Type:     shared.BlockTypeDefinition,
					Title:    "Numerator",
					Data: mustJSON(model.DefinitionBlockData{
						Term:       "Numerator",
						Definition: "The top number in a fraction, counting how many parts you have.",
						Example:    "In 3/4 the numerator is 3.",
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
				{
					ID:       "block_fr1_worked",
					LessonID: "lesson_fractions_1",
					StepID:   "step_fr1_same_denom",
					Type:     shared.BlockTypeWorkedExample,
					Title:    "Adding with the same denominator",
					Data: mustJSON(model.WorkedExampleBlockData{
						Problem: "Work out 1/5 + 2/5.",
						Steps: []string{
							"The denominators are the same, so keep the denominator.",
							"Add the numerators: 1 + 2 = 3.",
						},
						Answer: "3/5",
					}),
					TeachingNotes: "Reveal after the learner has read the definition blocks.",
					CreatedAt:     now,
					UpdatedAt:     now,
				},
				{
					ID:       "block_fr1_table",
					LessonID: "lesson_fractions_1",
					StepID:   "step_fr1_same_denom",
					Type:     shared.BlockTypeTable,
					Title:    "Common fraction sums",
					Data: mustJSON(model.TableBlockData{
						Headers: []string{"Sum", "Answer"},
						Rows: [][]string{
							{"1/4 + 2/4", "3/4"},
							{"2/6 + 3/6", "5/6"},
						},
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
				{
					ID:       "block_fr1_question",
					LessonID: "lesson_fractions_1",
					StepID:   "step_fr1_practice",
					Type:     shared.BlockTypeQuestion,
					Title:    "Check your understanding",
					Data: mustJSON(model.QuestionBlockData{
						Question: "What is 2/7 + 3/7?",
						Options:  []string{"5/7", "5/14", "6/7", "1/7"},
						Answer:   "5/7",
						Hint:     "The denominators match, so only the numerators change.",
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
				{
					ID:       "block_fr1_writing",
					LessonID: "lesson_fractions_1",
					StepID:   "step_fr1_practice",
					Type:     shared.BlockTypeWritingBox,
					Title:    "Explain it yourself",
					Data: mustJSON(model.WritingBoxBlockData{
						Prompt:    "Explain in your own words why the denominator stays the same.",
						WordLimit: 80,
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
			},
		},
		{
			ID:        "lesson_loops_1",
			Topic:     "For Loops",
			YearGroup: "Year 9",
			Subject:   "Computing",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
			Steps: []model.LessonStep{
				{ID: "step_lp1_intro", LessonID: "lesson_loops_1", Order: 1, Title: "Why loops?", CreatedAt: now, UpdatedAt: now},
				{ID: "step_lp1_syntax", LessonID: "lesson_loops_1", Order: 2, Title: "Loop syntax", CreatedAt: now, UpdatedAt: now},
			},
			Content: []model.ContentBlock{
				{
					ID:       "block_lp1_quote",
					LessonID: "lesson_loops_1",
					StepID:   "step_lp1_intro",
					Type:     shared.BlockTypeQuoteAnalysis,
					Title:    "A programmer's proverb",
					Data: mustJSON(model.QuoteAnalysisBlockData{
						Quote:    "Never write the same line twice when the computer can repeat it for you.",
						Analysis: "Loops let a program repeat work without repeating code.",
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
				{
					ID:       "block_lp1_diagram",
					LessonID: "lesson_loops_1",
					StepID:   "step_lp1_intro",
					Type:     shared.BlockTypeDiagram,
					Title:    "Loop flow",
					Data: mustJSON(model.DiagramBlockData{
						Description: "Flowchart showing the condition check, body, and increment of a for loop.",
						AltText:     "Arrows cycling between condition, body and increment boxes.",
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
				{
					ID:       "block_lp1_code",
					LessonID: "lesson_loops_1",
					StepID:   "step_lp1_syntax",
					Type:     shared.BlockTypeCodeExample,
					Title:    "Counting to five",
					Data: mustJSON(model.CodeExampleBlockData{
						Language: "python",
						Code:     "for i in range(1, 6):\n    print(i)",
						Output:   "1\n2\n3\n4\n5",
					}),
					CreatedAt: now,
					UpdatedAt: now,
				},
			},
		},
	}
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
