package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"google.golang.org/api/slides/v1"
	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/slidetx/stream"
)

// Check is one line of a review's quality assessment.
type Check struct {
	Status string `yaml:"status" json:"status" validate:"oneof=pass warning issue"`
	Notes  string `yaml:"notes" json:"notes"`
}

// Label is the short status shown on the impact slide.
func (c Check) Label() string {
	switch c.Status {
	case "pass":
		return "OK"
	case "warning":
		return "WARN"
	}
	return "ISSUE"
}

// Quality groups the four assessed areas of a review.
type Quality struct {
	CodeQuality Check `yaml:"codeQuality" json:"codeQuality"`
	Tests       Check `yaml:"tests" json:"tests"`
	Security    Check `yaml:"security" json:"security"`
	Performance Check `yaml:"performance" json:"performance"`
}

// ReviewData is the input of the code review deck.
type ReviewData struct {
	PRNumber   int    `yaml:"prNumber" json:"prNumber"`
	PRTitle    string `yaml:"prTitle" json:"prTitle" validate:"required"`
	PRAuthor   string `yaml:"prAuthor" json:"prAuthor"`
	PRDate     string `yaml:"prDate" json:"prDate"`
	Repository string `yaml:"repository" json:"repository"`

	Summary string   `yaml:"summary" json:"summary"`
	Changes []string `yaml:"changes" json:"changes"`

	QualityAssessment Quality `yaml:"qualityAssessment" json:"qualityAssessment"`

	IssuesFound []string `yaml:"issuesFound" json:"issuesFound"`
	Suggestions []string `yaml:"suggestions" json:"suggestions"`

	Verdict            string `yaml:"verdict" json:"verdict" validate:"oneof=APPROVE REQUEST_CHANGES COMMENT"`
	VerdictExplanation string `yaml:"verdictExplanation" json:"verdictExplanation"`

	BusinessImpact string   `yaml:"businessImpact,omitempty" json:"businessImpact,omitempty"`
	RiskLevel      string   `yaml:"riskLevel,omitempty" json:"riskLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	RiskFactors    []string `yaml:"riskFactors,omitempty" json:"riskFactors,omitempty"`
	AffectedAreas  []string `yaml:"affectedAreas,omitempty" json:"affectedAreas,omitempty"`
}

// ParseReview decodes and validates review data.
func ParseReview(data []byte) (*ReviewData, error) {
	r := new(ReviewData)
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, &stream.ConfigError{Msg: fmt.Sprintf("unable to decode review: %v", err)}
	}
	if err := validator.New().Struct(r); err != nil {
		return nil, &stream.ConfigError{Msg: err.Error()}
	}
	return r, nil
}

// VerdictColour is the colour of the recommendation title.
func VerdictColour(verdict string) colorful.Color {
	switch verdict {
	case "APPROVE":
		return stream.Palette["success"]
	case "REQUEST_CHANGES":
		return stream.Palette["danger"]
	}
	return stream.Palette["warning"]
}

func formatDate(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("January 2, 2006")
}

func bullets(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, "- "+it)
	}
	return out
}

type reviewSlide struct {
	kind  string
	title func(*ReviewData) string
	body  func(*ReviewData) []string
}

var reviewSlides = []reviewSlide{
	{
		kind:  "title",
		title: func(r *ReviewData) string { return r.PRTitle },
		body: func(r *ReviewData) []string {
			return []string{
				fmt.Sprintf("PR #%d | %s", r.PRNumber, r.Repository),
				fmt.Sprintf("%s | %s", r.PRAuthor, formatDate(r.PRDate)),
			}
		},
	},
	{
		kind:  "summary",
		title: func(*ReviewData) string { return "What Changed" },
		body: func(r *ReviewData) []string {
			return append([]string{r.Summary, ""}, bullets(r.Changes)...)
		},
	},
	{
		kind:  "impact",
		title: func(*ReviewData) string { return "Impact Assessment" },
		body: func(r *ReviewData) []string {
			var lines []string
			if r.BusinessImpact != "" {
				lines = append(lines, "Business Impact:", r.BusinessImpact, "")
			}
			if len(r.AffectedAreas) > 0 {
				lines = append(lines, "Affected Areas:")
				lines = append(lines, bullets(r.AffectedAreas)...)
				lines = append(lines, "")
			}
			qa := r.QualityAssessment
			return append(lines,
				"Quality Summary:",
				"- Code Quality: "+qa.CodeQuality.Label(),
				"- Tests: "+qa.Tests.Label(),
				"- Security: "+qa.Security.Label(),
				"- Performance: "+qa.Performance.Label(),
			)
		},
	},
	{
		kind:  "risks",
		title: func(*ReviewData) string { return "Risk Assessment" },
		body: func(r *ReviewData) []string {
			level := r.RiskLevel
			if level == "" {
				level = "low"
			}
			lines := []string{"Risk Level: " + strings.ToUpper(level), ""}
			if len(r.RiskFactors) > 0 {
				lines = append(lines, "Risk Factors:")
				lines = append(lines, bullets(r.RiskFactors)...)
				lines = append(lines, "")
			}
			if len(r.IssuesFound) == 0 {
				return append(lines, "No blocking issues found.")
			}
			lines = append(lines, "Issues Found:")
			return append(lines, bullets(r.IssuesFound)...)
		},
	},
	{
		kind:  "verdict",
		title: func(r *ReviewData) string { return "Recommendation: " + r.Verdict },
		body: func(r *ReviewData) []string {
			lines := []string{r.VerdictExplanation, ""}
			if len(r.Suggestions) > 0 {
				lines = append(lines, "Suggestions:")
				lines = append(lines, bullets(r.Suggestions)...)
			}
			return lines
		},
	},
}

func placeholders(s *slides.Page) (title, body string) {
	for _, el := range s.PageElements {
		if el.Shape == nil || el.Shape.Placeholder == nil {
			continue
		}
		switch el.Shape.Placeholder.Type {
		case "TITLE", "CENTERED_TITLE":
			if title == "" {
				title = el.ObjectId
			}
		case "BODY", "SUBTITLE":
			if body == "" {
				body = el.ObjectId
			}
		}
	}
	return title, body
}

func colourText(objectID string, c colorful.Color) *slides.Request {
	return &slides.Request{
		UpdateTextStyle: &slides.UpdateTextStyleRequest{
			ObjectId: objectID,
			Style: &slides.TextStyle{
				ForegroundColor: &slides.OptionalColor{OpaqueColor: &slides.OpaqueColor{RgbColor: stream.RgbColor(c)}},
			},
			TextRange: &slides.Range{Type: "ALL"},
			Fields:    "foregroundColor",
		},
	}
}

// GenerateReview builds the five slide code review deck in a new
// presentation using the title and body layout.
func (g *Generator) GenerateReview(ctx context.Context, r *ReviewData) (*Result, error) {
	p, err := g.create(ctx, "PR Review: "+r.PRTitle)
	if err != nil {
		return nil, err
	}
	presentationID := p.PresentationId
	suffix := g.newID()

	var reqs []*slides.Request
	if len(p.Slides) > 0 {
		reqs = append(reqs, stream.DeleteObject(p.Slides[0].ObjectId))
	}
	kinds := make(map[string]reviewSlide, len(reviewSlides))
	for i, rs := range reviewSlides {
		id := rs.kind + "_" + suffix
		kinds[id] = rs
		reqs = append(reqs, stream.CreateSlide(id, i, "TITLE_AND_BODY"))
	}
	if err := g.streamer.Dispatch(ctx, presentationID, reqs); err != nil {
		return nil, err
	}

	p, err = g.get(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	var content []*slides.Request
	for _, s := range p.Slides {
		rs, ok := kinds[s.ObjectId]
		if !ok {
			continue
		}
		title, body := placeholders(s)
		if title != "" {
			content = append(content, stream.InsertText(title, rs.title(r)))
			if rs.kind == "verdict" {
				content = append(content, colourText(title, VerdictColour(r.Verdict)))
			}
		}
		if body != "" {
			content = append(content, stream.InsertText(body, strings.Join(rs.body(r), "\n")))
		}
	}
	if err := g.streamer.Dispatch(ctx, presentationID, content); err != nil {
		return nil, err
	}
	g.log.Info("Review deck generated", zap.String("presentation", presentationID), zap.Int("requests", len(content)))

	res := newResult(presentationID, ModeNew)
	res.Slides = len(reviewSlides)
	return res, nil
}
