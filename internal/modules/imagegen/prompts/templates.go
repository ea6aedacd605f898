package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
)

//go:embed templates.yaml
var templatesFS embed.FS

// TemplateError reports a missing or failing prompt template.
type TemplateError struct {
	PromptType types.PromptType
	Err        error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("prompt template %q: %v", e.PromptType, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

type yamlTemplates struct {
	Version int `yaml:"version"`
	Context struct {
		Type       string `yaml:"type"`
		DateLayout string `yaml:"date_layout"`
		System     string `yaml:"system"`
		User       string `yaml:"user"`
	} `yaml:"context"`
	Categories map[string]string `yaml:"categories"`
}

// Set holds the parsed context and category templates.
type Set struct {
	dateLayout    string
	contextSystem string
	contextUser   *template.Template
	categories    map[types.PromptType]*template.Template
}

// Load reads templates from path, or the embedded defaults when path is
// empty.
func Load(path string) (*Set, error) {
	var (
		data []byte
		err  error
	)
	if path = strings.TrimSpace(path); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = templatesFS.ReadFile("templates.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read prompt templates: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var raw yamlTemplates
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	if types.PromptType(raw.Context.Type) != types.PromptTypeGetHolidays {
		return nil, fmt.Errorf("unexpected context type: %q", raw.Context.Type)
	}
	if strings.TrimSpace(raw.Context.User) == "" {
		return nil, errors.New("context user template is required")
	}

	s := &Set{
		dateLayout:    raw.Context.DateLayout,
		contextSystem: strings.TrimSpace(raw.Context.System),
		categories:    make(map[types.PromptType]*template.Template, len(raw.Categories)),
	}
	if s.dateLayout == "" {
		s.dateLayout = "January 02, 2006"
	}

	ctxTmpl, err := template.New(string(types.PromptTypeGetHolidays)).Option("missingkey=error").Parse(raw.Context.User)
	if err != nil {
		return nil, &TemplateError{PromptType: types.PromptTypeGetHolidays, Err: err}
	}
	s.contextUser = ctxTmpl

	for name, body := range raw.Categories {
		pt := types.PromptType(name)
		if !pt.IsImageCategory() {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		t, err := template.New(name).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, &TemplateError{PromptType: pt, Err: err}
		}
		s.categories[pt] = t
	}
	return s, nil
}

// ContextPrompt returns the system and user messages for the shared
// holiday-list request on date.
func (s *Set) ContextPrompt(date time.Time) (system string, user string, err error) {
	user, err = render(s.contextUser, map[string]any{"Date": date.Format(s.dateLayout)})
	if err != nil {
		return "", "", &TemplateError{PromptType: types.PromptTypeGetHolidays, Err: err}
	}
	return s.contextSystem, user, nil
}

// CategoryPrompt renders the image prompt for pt around the context blob.
func (s *Set) CategoryPrompt(pt types.PromptType, contextText string) (string, error) {
	t, ok := s.categories[pt]
	if !ok {
		return "", &TemplateError{PromptType: pt, Err: errors.New("no template for category")}
	}
	out, err := render(t, map[string]any{"Context": strings.TrimSpace(contextText)})
	if err != nil {
		return "", &TemplateError{PromptType: pt, Err: err}
	}
	return out, nil
}

// Has reports whether a template exists for pt.
func (s *Set) Has(pt types.PromptType) bool {
	_, ok := s.categories[pt]
	return ok
}

func render(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", errors.New("rendered prompt is blank")
	}
	return out, nil
}
