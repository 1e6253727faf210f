// Package routing maps a (country, service) pair to the business that handles it.
package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Country is a supported market.
type Country string

const (
	Serbia     Country = "serbia"
	Montenegro Country = "montenegro"
)

// Countries lists markets in menu order.
var Countries = []Country{Serbia, Montenegro}

// Service is the kind of installation the user asks about.
type Service string

const (
	Heating  Service = "heating"
	HeatPump Service = "heat_pump"
)

// Services lists services in menu order.
var Services = []Service{Heating, HeatPump}

// ContactKind tells contractors apart from manufacturers.
type ContactKind string

const (
	Contractor   ContactKind = "contractor"
	Manufacturer ContactKind = "manufacturer"
)

// Contact is a recipient record. Optional fields are empty when unknown.
type Contact struct {
	Kind     ContactKind
	Company  string
	Person   string
	Phone    string
	Email    string
	Website  string
	Telegram string
}

// HeadingKey is the catalog key titling this contact's block.
func (c Contact) HeadingKey() string {
	if c.Kind == Manufacturer {
		return "manufacturer_heading"
	}
	return "contractor_heading"
}

// SubOption is one selectable configuration within a service.
type SubOption struct {
	ID string
	// LabelKey is the catalog key of the human-readable label.
	LabelKey string
	// Partner is appended to the inquiry for bundle offers.
	Partner *Contact
}

// Entry is the routing decision for one (country, service) pair.
type Entry struct {
	Country    Country
	Service    Service
	Contact    Contact
	SubOptions []SubOption
}

// Option returns the sub-option with the given id.
func (e Entry) Option(id string) (SubOption, bool) {
	for _, o := range e.SubOptions {
		if o.ID == id {
			return o, true
		}
	}
	return SubOption{}, false
}

// ErrUnrouted means the table has no entry for a pair. It indicates a configuration bug.
var ErrUnrouted = errors.New("routing: no entry for country/service")

type key struct {
	country Country
	service Service
}

// Table is an immutable routing table.
type Table struct {
	entries map[key]Entry
}

// NewTable builds a table from entries. Later duplicates replace earlier ones.
func NewTable(entries ...Entry) *Table {
	t := &Table{entries: make(map[key]Entry, len(entries))}
	for _, e := range entries {
		t.entries[key{e.Country, e.Service}] = e
	}
	return t
}

// Resolve returns the entry for (country, service).
func (t *Table) Resolve(country Country, service Service) (Entry, error) {
	e, ok := t.entries[key{country, service}]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrUnrouted, country, service)
	}
	return e, nil
}

// Validate checks the table is total over Countries × Services and every entry is usable.
func (t *Table) Validate() error {
	var errs []error
	for _, c := range Countries {
		for _, s := range Services {
			e, err := t.Resolve(c, s)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if strings.TrimSpace(e.Contact.Email) == "" {
				errs = append(errs, fmt.Errorf("routing: %s/%s: contact has no email", c, s))
			}
			if strings.TrimSpace(e.Contact.Person) == "" && strings.TrimSpace(e.Contact.Company) == "" {
				errs = append(errs, fmt.Errorf("routing: %s/%s: contact has no name", c, s))
			}
			if len(e.SubOptions) == 0 {
				errs = append(errs, fmt.Errorf("routing: %s/%s: no sub-options", c, s))
			}
			seen := make(map[string]bool, len(e.SubOptions))
			for _, o := range e.SubOptions {
				if o.ID == "" || o.LabelKey == "" {
					errs = append(errs, fmt.Errorf("routing: %s/%s: sub-option without id or label", c, s))
				}
				if seen[o.ID] {
					errs = append(errs, fmt.Errorf("routing: %s/%s: duplicate sub-option %q", c, s, o.ID))
				}
				seen[o.ID] = true
			}
		}
	}
	return errors.Join(errs...)
}

// ParseCountry accepts a country id as sent in callback payloads.
func ParseCountry(s string) (Country, bool) {
	c := Country(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Countries {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ParseService accepts a service id as sent in callback payloads.
func ParseService(s string) (Service, bool) {
	v := Service(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Services {
		if v == known {
			return v, true
		}
	}
	return "", false
}
