package inquiry

import (
	"strconv"
	"strings"

	"github.com/m3rciful/heatbot/core/telegram/format"
	"github.com/m3rciful/heatbot/internal/routing"
)

// Translator renders catalog keys. *i18n.Catalog implements it.
type Translator interface {
	T(lang, key string, kv ...string) string
}

// Field is one labelled value.
type Field struct {
	Label string
	Value string
}

// Section is a titled group of fields. An empty Title renders no heading.
type Section struct {
	Title  string
	Fields []Field
}

// Message is a composed inquiry ready for any channel.
type Message struct {
	Subject  string
	Sections []Section
}

// Text renders the message as plain text.
func (m Message) Text() string {
	var b strings.Builder
	for i, s := range m.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		if s.Title != "" {
			b.WriteString(s.Title)
			b.WriteString("\n")
		}
		for _, f := range s.Fields {
			b.WriteString(f.Label)
			b.WriteString(": ")
			b.WriteString(f.Value)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// TelegramHTML renders the message for Telegram's HTML parse mode.
func (m Message) TelegramHTML() string {
	return strings.Join(m.htmlLines(), "\n")
}

// EmailHTML renders the message as an HTML email body.
func (m Message) EmailHTML() string {
	return format.Document(m.htmlLines())
}

func (m Message) htmlLines() []string {
	var lines []string
	for i, s := range m.Sections {
		if i > 0 {
			lines = append(lines, "")
		}
		if s.Title != "" {
			lines = append(lines, format.Bold(s.Title))
		}
		for _, f := range s.Fields {
			lines = append(lines, format.Field(f.Label, f.Value))
		}
	}
	return lines
}

type composer struct {
	tr   Translator
	lang string
}

func (c composer) t(key string, kv ...string) string { return c.tr.T(c.lang, key, kv...) }

func (c composer) field(labelKey, value string) Field {
	if strings.TrimSpace(value) == "" {
		value = c.t("na")
	}
	return Field{Label: c.t(labelKey), Value: value}
}

// Compose renders q for the given routing entry in q's language.
// Empty optional fields become the localized N/A. The routed contact always closes the message;
// bundle offers add the partner's contact after it.
func Compose(q *Inquiry, entry routing.Entry, tr Translator) Message {
	c := composer{tr: tr, lang: q.Language}

	country := c.t("country." + string(q.Country))
	service := c.t("service." + string(q.Service))
	option, hasOption := entry.Option(q.SubOption)
	optionLabel := ""
	if hasOption {
		optionLabel = c.t(option.LabelKey)
	}

	msg := Message{
		Subject: c.t("email_subject", "service", service, "country", country),
	}

	msg.Sections = append(msg.Sections,
		Section{
			Title: c.t("operator_intro"),
			Fields: []Field{
				c.field("label_reference", q.Ref()),
				c.field("label_country", country),
				c.field("label_service", service),
				c.field("label_option", optionLabel),
			},
		},
		Section{
			Title: c.t("heading_object"),
			Fields: []Field{
				c.field("label_object_type", q.ObjectType),
				c.field("label_area", c.area(q.Area)),
				c.field("label_floors", positive(q.Floors)),
				c.field("label_sketch", c.yesNo(q.HasSketch())),
			},
		},
		Section{
			Title: c.t("heading_submitter"),
			Fields: []Field{
				c.field("label_phone", q.Phone),
				c.field("label_email", q.Email),
				c.field("label_user_id", positive64(q.Submitter.ID)),
				c.field("label_name", q.Submitter.DisplayName()),
				c.field("label_username", q.Submitter.Handle()),
			},
		},
	)

	msg.Sections = append(msg.Sections, ContactSection(entry.Contact, c.t(entry.Contact.HeadingKey()), tr, q.Language))
	if hasOption && option.Partner != nil {
		msg.Sections = append(msg.Sections, ContactSection(*option.Partner, c.t("partner_heading"), tr, q.Language))
	}
	return msg
}

// ContactSection renders a business contact. Empty optional fields are left out.
func ContactSection(ct routing.Contact, title string, tr Translator, lang string) Section {
	s := Section{Title: title}
	add := func(labelKey, value string) {
		if value != "" {
			s.Fields = append(s.Fields, Field{Label: tr.T(lang, labelKey), Value: value})
		}
	}
	add("label_company", ct.Company)
	add("label_person", ct.Person)
	add("label_phone", ct.Phone)
	add("label_email", ct.Email)
	add("label_website", ct.Website)
	add("label_telegram", ct.Telegram)
	return s
}

func (c composer) area(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + c.t("unit_area")
}

func (c composer) yesNo(v bool) string {
	if v {
		return c.t("value_yes")
	}
	return c.t("value_no")
}

func positive(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func positive64(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
