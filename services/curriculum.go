package services

import (
	"fmt"

	"vibedojo-ledger/models"
)

// The curriculum is static: three parts of ten chapters, ids "01".."30".
var curriculumParts = []struct {
	title  string
	reward int64
	titles []string
}{
	{
		title:  "Vibe Coding Foundations",
		reward: 50,
		titles: []string{
			"What Is Vibe Coding", "Setting Up Your Dojo", "Prompting Basics", "Reading Generated Code",
			"Git for Vibe Coders", "Your First Web Page", "Styling With Tailwind", "JavaScript Essentials",
			"Debugging With AI", "Shipping to Vercel",
		},
	},
	{
		title:  "Building Real Apps",
		reward: 70,
		titles: []string{
			"Next.js App Router", "Components and Props", "Forms and Validation", "Databases With Supabase",
			"Auth and Sessions", "Row-Level Security", "APIs and Route Handlers", "Realtime Updates",
			"Testing Your App", "Launch Checklist",
		},
	},
	{
		title:  "Web3",
		reward: 100,
		titles: []string{
			"Blockchain Fundamentals", "Wallets and Keys", "Smart Contract Basics", "Solidity by Example",
			"Testing Contracts", "Connecting a dApp", "Tokens and NFTs", "Onchain Security",
			"Deploying to Mainnet", "Your Web3 Capstone",
		},
	},
}

// Curriculum is the read-only chapter catalog.
type Curriculum struct {
	parts    []models.Part
	chapters map[string]models.Chapter
	order    []string
}

func NewCurriculum() *Curriculum {
	c := &Curriculum{chapters: make(map[string]models.Chapter)}
	n := 0
	for i, p := range curriculumParts {
		part := models.Part{Number: i + 1, Title: p.title}
		for _, title := range p.titles {
			n++
			ch := models.Chapter{
				ID:       fmt.Sprintf("%02d", n),
				Part:     part.Number,
				Title:    title,
				XPReward: p.reward,
			}
			part.Chapters = append(part.Chapters, ch)
			c.chapters[ch.ID] = ch
			c.order = append(c.order, ch.ID)
		}
		c.parts = append(c.parts, part)
	}
	return c
}

func (c *Curriculum) Chapter(id string) (models.Chapter, bool) {
	ch, ok := c.chapters[id]
	return ch, ok
}

func (c *Curriculum) Part(number int) (models.Part, bool) {
	if number < 1 || number > len(c.parts) {
		return models.Part{}, false
	}
	return c.parts[number-1], true
}

func (c *Curriculum) Parts() []models.Part {
	return c.parts
}

// PartSize returns the number of chapters in a part, 0 for unknown parts.
func (c *Curriculum) PartSize(number int) int {
	p, ok := c.Part(number)
	if !ok {
		return 0
	}
	return len(p.Chapters)
}

// PartChapterIDs lists the chapter ids belonging to a part.
func (c *Curriculum) PartChapterIDs(number int) []string {
	p, ok := c.Part(number)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(p.Chapters))
	for _, ch := range p.Chapters {
		ids = append(ids, ch.ID)
	}
	return ids
}

func (c *Curriculum) Size() int {
	return len(c.order)
}

func (c *Curriculum) FinalChapterID() string {
	return c.order[len(c.order)-1]
}
