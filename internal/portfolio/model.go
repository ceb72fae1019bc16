package portfolio

import (
	"strings"
	"time"
)

// Kind tags an item with the collection it came from.
type Kind string

const (
	KindProject        Kind = "project"
	KindWorkExperience Kind = "workExperience"
	KindWriting        Kind = "writing"
	KindSpeaking       Kind = "speaking"
	KindEducation      Kind = "education"
	KindContact        Kind = "contact"
)

// Collection display names, which double as CMS database titles.
const (
	NameGeneral        = "General"
	NameProjects       = "Projects"
	NameWorkExperience = "Work Experience"
	NameWriting        = "Writing"
	NameSpeaking       = "Speaking"
	NameEducation      = "Education"
	NameContact        = "Contact"
)

// SectionOrder is the fixed presentation order of collections.
var SectionOrder = []string{
	NameWorkExperience,
	NameProjects,
	NameWriting,
	NameSpeaking,
	NameEducation,
	NameContact,
}

// AttachmentType distinguishes images, which are mirrored locally, from videos, which are not.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
)

// Attachment is a media file referenced by an item.
type Attachment struct {
	URL    string         `json:"url"`
	Type   AttachmentType `json:"type"`
	Width  int            `json:"width,omitempty"`
	Height int            `json:"height,omitempty"`
	// OriginalURL is the CMS URL when URL has been rewritten to a local path.
	OriginalURL string `json:"originalUrl,omitempty"`
}

// IsLocal reports whether the attachment points at the local media directory.
func (a Attachment) IsLocal() bool {
	return strings.HasPrefix(a.URL, MediaURLPrefix)
}

// MediaURLPrefix is the public path under which synchronized media is served.
const MediaURLPrefix = "/content/media/"

// Item is the uniform shape of an entry in any collection.
type Item struct {
	ID          string       `json:"id"`
	Heading     string       `json:"heading"`
	Year        string       `json:"year"`
	URL         *string      `json:"url"`
	Location    *string      `json:"location,omitempty"`
	Description string       `json:"description,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Type        Kind         `json:"type"`

	Title    string   `json:"title,omitempty"`
	Company  string   `json:"company,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Handle   string   `json:"handle,omitempty"`
	Order    *float64 `json:"order,omitempty"`
}

// General is the singleton site-wide record.
type General struct {
	ProfilePhoto string   `json:"profilePhoto"`
	DisplayName  string   `json:"displayName"`
	Byline       string   `json:"byline"`
	Website      string   `json:"website,omitempty"`
	About        string   `json:"about,omitempty"`
	SectionOrder []string `json:"sectionOrder"`
}

// DefaultProfilePhoto is used when the CMS has no profile photo.
const DefaultProfilePhoto = MediaURLPrefix + "profilePhoto.jpg"

// DefaultGeneral returns the General record used when the CMS has none.
func DefaultGeneral() General {
	return General{
		ProfilePhoto: DefaultProfilePhoto,
		DisplayName:  "Portfolio",
		SectionOrder: append([]string(nil), SectionOrder...),
	}
}

// Collection is a named, ordered list of items.
type Collection struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Content is everything fetched from the CMS in one pass.
type Content struct {
	General        General
	Projects       []Item
	WorkExperience []Item
	Writing        []Item
	Speaking       []Item
	Education      []Item
	Contact        []Item
}

// Collections returns the collections in SectionOrder, including empty ones.
func (c Content) Collections() []Collection {
	return []Collection{
		{Name: NameWorkExperience, Items: c.WorkExperience},
		{Name: NameProjects, Items: c.Projects},
		{Name: NameWriting, Items: c.Writing},
		{Name: NameSpeaking, Items: c.Speaking},
		{Name: NameEducation, Items: c.Education},
		{Name: NameContact, Items: c.Contact},
	}
}

// SetCollection replaces the items of the named collection.
func (c *Content) SetCollection(name string, items []Item) {
	switch name {
	case NameWorkExperience:
		c.WorkExperience = items
	case NameProjects:
		c.Projects = items
	case NameWriting:
		c.Writing = items
	case NameSpeaking:
		c.Speaking = items
	case NameEducation:
		c.Education = items
	case NameContact:
		c.Contact = items
	}
}

// Snapshot is the document served to the browser as profileData.json.
type Snapshot struct {
	General        General      `json:"general"`
	Projects       []Item       `json:"projects"`
	WorkExperience []Item       `json:"workExperience"`
	Writing        []Item       `json:"writing"`
	Speaking       []Item       `json:"speaking"`
	Education      []Item       `json:"education"`
	Contact        []Item       `json:"contact"`
	AllCollections []Collection `json:"allCollections"`
}

// NewSnapshot assembles a snapshot from fetched content. Nil collections are
// emitted as empty arrays and empty collections are left out of AllCollections.
func NewSnapshot(c Content) Snapshot {
	general := c.General
	general.SectionOrder = append([]string(nil), SectionOrder...)

	snap := Snapshot{
		General:        general,
		Projects:       nonNil(c.Projects),
		WorkExperience: nonNil(c.WorkExperience),
		Writing:        nonNil(c.Writing),
		Speaking:       nonNil(c.Speaking),
		Education:      nonNil(c.Education),
		Contact:        nonNil(c.Contact),
		AllCollections: []Collection{},
	}
	for _, col := range c.Collections() {
		if len(col.Items) == 0 {
			continue
		}
		snap.AllCollections = append(snap.AllCollections, col)
	}
	return snap
}

func nonNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

// SyncStats summarizes the media work of a pass.
type SyncStats struct {
	TotalImages int `json:"totalImages"`
	Downloaded  int `json:"downloaded"`
	Reused      int `json:"reused"`
	Failed      int `json:"failed"`
	Cleaned     int `json:"cleaned"`
}

// Add accumulates other into s.
func (s *SyncStats) Add(other SyncStats) {
	s.TotalImages += other.TotalImages
	s.Downloaded += other.Downloaded
	s.Reused += other.Reused
	s.Failed += other.Failed
	s.Cleaned += other.Cleaned
}

// UpdateMetadata is the document persisted as lastUpdate.json.
type UpdateMetadata struct {
	Timestamp time.Time  `json:"timestamp"`
	RunID     string     `json:"runId,omitempty"`
	Stats     *SyncStats `json:"stats,omitempty"`
}
