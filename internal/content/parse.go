package content

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"folio/internal/notion"
	"folio/internal/portfolio"
)

const (
	defaultYear         = "2024"
	defaultImageWidth   = 1920
	defaultImageHeight  = 1080
	orderProperty       = "Order"
	attachmentsProperty = "Attachments"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".mov":  {},
	".webm": {},
	".ogv":  {},
	".mkv":  {},
	".avi":  {},
}

// Definition binds a CMS database title to the parser for its rows.
type Definition struct {
	Name  string
	Kind  portfolio.Kind
	parse func(notion.Page) portfolio.Item
}

// Parse converts a database row into an item.
func (d Definition) Parse(page notion.Page) portfolio.Item {
	item := d.parse(page)
	item.ID = page.ID
	item.Type = d.Kind
	item.Order = number(page.Properties, orderProperty)
	if item.Attachments == nil {
		item.Attachments = []portfolio.Attachment{}
	}
	return item
}

// Definitions returns the collection catalogue in presentation order.
func Definitions() []Definition {
	return []Definition{
		{Name: portfolio.NameWorkExperience, Kind: portfolio.KindWorkExperience, parse: parseWorkExperience},
		{Name: portfolio.NameProjects, Kind: portfolio.KindProject, parse: parseProject},
		{Name: portfolio.NameWriting, Kind: portfolio.KindWriting, parse: parseSection},
		{Name: portfolio.NameSpeaking, Kind: portfolio.KindSpeaking, parse: parseSection},
		{Name: portfolio.NameEducation, Kind: portfolio.KindEducation, parse: parseSection},
		{Name: portfolio.NameContact, Kind: portfolio.KindContact, parse: parseContact},
	}
}

// DefinitionFor looks up a catalogue entry by collection name.
func DefinitionFor(name string) (Definition, bool) {
	for _, def := range Definitions() {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	return Definition{}, false
}

func parseProject(page notion.Page) portfolio.Item {
	props := page.Properties
	title := textOr(props, "Title", "Untitled Project")
	return portfolio.Item{
		Heading:     title,
		Title:       title,
		Year:        year(props),
		URL:         link(props, "URL"),
		Description: text(props, "Description"),
		Company:     text(props, "Company"),
		Attachments: attachments(props),
	}
}

func parseWorkExperience(page notion.Page) portfolio.Item {
	props := page.Properties
	title := textOr(props, "Title", "Position")
	company := textOr(props, "Company", "Company")
	return portfolio.Item{
		Heading:     title + " at " + company,
		Title:       title,
		Company:     company,
		Year:        year(props),
		Location:    optionalText(props, "Location"),
		Description: text(props, "Description"),
	}
}

func parseSection(page notion.Page) portfolio.Item {
	props := page.Properties
	return portfolio.Item{
		Heading:     textOr(props, "Title", "Untitled"),
		Year:        year(props),
		URL:         link(props, "URL"),
		Description: text(props, "Description"),
		Location:    optionalText(props, "Location"),
		Attachments: attachments(props),
	}
}

func parseContact(page notion.Page) portfolio.Item {
	props := page.Properties
	platform := text(props, "Platform")
	return portfolio.Item{
		Heading:  platform,
		Platform: platform,
		Handle:   text(props, "Handle"),
		URL:      link(props, "URL"),
	}
}

func parseGeneral(page notion.Page) portfolio.General {
	props := page.Properties
	general := portfolio.DefaultGeneral()
	if photo := firstFileURL(props, "ProfilePhoto"); photo != "" {
		general.ProfilePhoto = photo
	}
	general.DisplayName = textOr(props, "DisplayName", general.DisplayName)
	general.Byline = text(props, "Byline")
	if website := link(props, "Website"); website != nil {
		general.Website = *website
	}
	general.About = text(props, "About")
	return general
}

// text returns the first run of a title or rich_text property.
func text(props map[string]notion.PropertyValue, name string) string {
	prop, ok := props[name]
	if !ok {
		return ""
	}
	if s := notion.PlainText(prop.Title); s != "" {
		return s
	}
	return notion.PlainText(prop.RichText)
}

func textOr(props map[string]notion.PropertyValue, name, fallback string) string {
	if s := text(props, name); s != "" {
		return s
	}
	return fallback
}

func optionalText(props map[string]notion.PropertyValue, name string) *string {
	if s := text(props, name); s != "" {
		return &s
	}
	return nil
}

func number(props map[string]notion.PropertyValue, name string) *float64 {
	prop, ok := props[name]
	if !ok || prop.Number == nil {
		return nil
	}
	v := *prop.Number
	return &v
}

// year accepts either a number or a rich_text Year column.
func year(props map[string]notion.PropertyValue) string {
	if n := number(props, "Year"); n != nil {
		return strconv.FormatFloat(*n, 'f', -1, 64)
	}
	return textOr(props, "Year", defaultYear)
}

func link(props map[string]notion.PropertyValue, name string) *string {
	prop, ok := props[name]
	if !ok || prop.URL == nil || strings.TrimSpace(*prop.URL) == "" {
		return nil
	}
	u := strings.TrimSpace(*prop.URL)
	return &u
}

func firstFileURL(props map[string]notion.PropertyValue, name string) string {
	prop, ok := props[name]
	if !ok {
		return ""
	}
	for _, f := range prop.Files {
		if u := f.URL(); u != "" {
			return u
		}
	}
	return ""
}

func attachments(props map[string]notion.PropertyValue) []portfolio.Attachment {
	prop, ok := props[attachmentsProperty]
	if !ok {
		return nil
	}
	out := make([]portfolio.Attachment, 0, len(prop.Files))
	for _, f := range prop.Files {
		u := strings.TrimSpace(f.URL())
		if u == "" {
			continue
		}
		if isVideo(u) {
			out = append(out, portfolio.Attachment{URL: u, Type: portfolio.AttachmentVideo})
			continue
		}
		out = append(out, portfolio.Attachment{
			URL:    u,
			Type:   portfolio.AttachmentImage,
			Width:  defaultImageWidth,
			Height: defaultImageHeight,
		})
	}
	return out
}

func isVideo(rawURL string) bool {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}
	_, ok := videoExtensions[strings.ToLower(path.Ext(p))]
	return ok
}
