package notify

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type Template string

const (
	CustomerConfirmation Template = "customer_confirmation.html.tmpl"
	OperatorAlert        Template = "operator_alert.html.tmpl"
	CourseAccess         Template = "course_access.html.tmpl"
	WhatsAppCustomer     Template = "whatsapp_customer.txt.tmpl"
	WhatsAppOperator     Template = "whatsapp_operator.txt.tmpl"
)

func (t Template) isHTML() bool {
	return strings.HasSuffix(string(t), ".html.tmpl")
}

type Message struct {
	Subject string
	Body    string
}

// Renderer executes the embedded message templates. Bodies of .html templates are
// escaped as HTML, subjects are always plain text.
type Renderer struct {
	subjects map[Template]*texttemplate.Template
	text     map[Template]*texttemplate.Template
	html     map[Template]*htmltemplate.Template
}

var funcs = map[string]any{
	"price": FormatARS,
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("fs.Glob: %w", err)
	}

	r := &Renderer{
		subjects: make(map[Template]*texttemplate.Template),
		text:     make(map[Template]*texttemplate.Template),
		html:     make(map[Template]*htmltemplate.Template),
	}

	for _, path := range names {
		name := Template(strings.TrimPrefix(path, "templates/"))

		plain, err := texttemplate.New(string(name)).Funcs(funcs).ParseFS(templateFS, path)
		if err != nil {
			return nil, fmt.Errorf("texttemplate.ParseFS[%s]: %w", path, err)
		}

		if !name.isHTML() {
			r.text[name] = plain
			continue
		}

		r.subjects[name] = plain

		escaped, err := htmltemplate.New(string(name)).Funcs(funcs).ParseFS(templateFS, path)
		if err != nil {
			return nil, fmt.Errorf("htmltemplate.ParseFS[%s]: %w", path, err)
		}
		r.html[name] = escaped
	}

	return r, nil
}

func (r *Renderer) Render(name Template, data any) (Message, error) {
	var msg Message

	if name.isHTML() {
		tmpl, ok := r.html[name]
		if !ok {
			return msg, fmt.Errorf("template[%s] not found", name)
		}

		var body strings.Builder
		if err := tmpl.ExecuteTemplate(&body, "body", data); err != nil {
			return msg, fmt.Errorf("tmpl.ExecuteTemplate[%s]: %w", name, err)
		}
		msg.Body = body.String()

		subject, err := executeText(r.subjects[name], "subject", data)
		if err != nil {
			return msg, err
		}
		msg.Subject = subject

		return msg, nil
	}

	tmpl, ok := r.text[name]
	if !ok {
		return msg, fmt.Errorf("template[%s] not found", name)
	}

	body, err := executeText(tmpl, "body", data)
	if err != nil {
		return msg, err
	}
	msg.Body = body

	return msg, nil
}

func executeText(tmpl *texttemplate.Template, block string, data any) (string, error) {
	var output strings.Builder
	if err := tmpl.ExecuteTemplate(&output, block, data); err != nil {
		return "", fmt.Errorf("tmpl.ExecuteTemplate[%s/%s]: %w", tmpl.Name(), block, err)
	}
	return strings.TrimSpace(output.String()), nil
}
