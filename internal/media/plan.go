package media

import (
	"net/url"
	"path"
	"strings"

	"folio/internal/portfolio"
)

// profilePhotoStem is the base name the General profile photo is stored under.
const profilePhotoStem = "profilePhoto"

// Ref addresses one attachment within fetched content.
type Ref struct {
	Collection string
	Item       int
	Attachment int
}

var profileRef = Ref{Collection: portfolio.NameGeneral}

// Plan maps every remote image attachment to its local filename. It is built
// before any download starts so concurrent collection passes never race for a name.
type Plan struct {
	names  map[Ref]string
	claims map[string]string
}

// NewPlan assigns filenames for content. Collections are walked in section order
// and the first source to derive a name keeps it. A different source deriving the
// same name receives a hash suffix.
func NewPlan(content portfolio.Content) *Plan {
	p := &Plan{names: map[Ref]string{}, claims: map[string]string{}}
	if IsRemote(content.General.ProfilePhoto) {
		name := profilePhotoStem + Extension(content.General.ProfilePhoto)
		p.names[profileRef] = p.claim(name, content.General.ProfilePhoto)
	}
	for _, col := range content.Collections() {
		for i, item := range col.Items {
			title := itemTitle(item)
			for j, att := range item.Attachments {
				if att.Type != portfolio.AttachmentImage || !IsRemote(att.URL) {
					continue
				}
				p.names[Ref{Collection: col.Name, Item: i, Attachment: j}] = p.claim(Filename(title, j, att.URL), att.URL)
			}
		}
	}
	return p
}

func (p *Plan) claim(name, rawURL string) string {
	key := sourceKey(rawURL)
	if owner, taken := p.claims[name]; !taken || owner == key {
		p.claims[name] = key
		return name
	}
	suffixed := withHashSuffix(name, key)
	p.claims[suffixed] = key
	return suffixed
}

// Name returns the filename planned for ref.
func (p *Plan) Name(ref Ref) (string, bool) {
	name, ok := p.names[ref]
	return name, ok
}

// ProfilePhoto returns the filename planned for the profile photo.
func (p *Plan) ProfilePhoto() (string, bool) {
	return p.Name(profileRef)
}

// Len reports the number of planned files.
func (p *Plan) Len() int {
	return len(p.names)
}

// IsRemote reports whether rawURL is an http or https URL.
func IsRemote(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LocalName returns the media filename of a URL under the public media prefix.
func LocalName(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, portfolio.MediaURLPrefix) {
		return "", false
	}
	name := path.Base(rawURL)
	if name == "." || name == "/" || name == "" {
		return "", false
	}
	return name, true
}

func itemTitle(item portfolio.Item) string {
	switch {
	case strings.TrimSpace(item.Heading) != "":
		return item.Heading
	case strings.TrimSpace(item.Title) != "":
		return item.Title
	default:
		return defaultTitle
	}
}
