package media_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"folio/internal/media"
	"folio/internal/portfolio"
	"folio/internal/testsupport"
)

func image(url string) portfolio.Attachment {
	return portfolio.Attachment{URL: url, Type: portfolio.AttachmentImage, Width: 1920, Height: 1080}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		title string
		index int
		url   string
		want  string
	}{
		{"Foo", 0, "https://cdn.example.com/a/b.png?sig=1", "Foo-1.png"},
		{"Hello, World!", 1, "https://cdn.example.com/x.jpeg", "Hello-World-2.jpeg"},
		{"Café  Überblick", 0, "https://cdn.example.com/x", "Cafe-Uberblick-1.png"},
		{"???", 2, "https://cdn.example.com/x.webp", "image-3.webp"},
		{"A Very Long Title That Keeps Going Well Past The Fifty Character Limit", 0, "https://cdn.example.com/x.gif", "A-Very-Long-Title-That-Keeps-Going-Well-Past-The-F-1.gif"},
		{"Odd ext", 0, "https://cdn.example.com/x.tar%20gz", "Odd-ext-1.png"},
	}
	for _, tc := range cases {
		if got := media.Filename(tc.title, tc.index, tc.url); got != tc.want {
			t.Errorf("Filename(%q, %d, %q) = %q, want %q", tc.title, tc.index, tc.url, got, tc.want)
		}
	}
}

func TestPlanResolvesCollisionsDeterministically(t *testing.T) {
	content := portfolio.Content{
		General: portfolio.DefaultGeneral(),
		WorkExperience: []portfolio.Item{
			{ID: "w1", Heading: "Foo", Attachments: []portfolio.Attachment{image("https://cdn.example.com/first.png?sig=a")}},
		},
		Projects: []portfolio.Item{
			{ID: "p1", Heading: "Foo", Attachments: []portfolio.Attachment{image("https://cdn.example.com/second.png?sig=b")}},
			{ID: "p2", Heading: "Foo", Attachments: []portfolio.Attachment{image("https://cdn.example.com/first.png?sig=c")}},
		},
	}

	plan := media.NewPlan(content)
	first, _ := plan.Name(media.Ref{Collection: portfolio.NameWorkExperience, Item: 0, Attachment: 0})
	second, _ := plan.Name(media.Ref{Collection: portfolio.NameProjects, Item: 0, Attachment: 0})
	same, _ := plan.Name(media.Ref{Collection: portfolio.NameProjects, Item: 1, Attachment: 0})

	if first != "Foo-1.png" {
		t.Fatalf("first claimant should keep plain name, got %q", first)
	}
	if second == first || filepath.Ext(second) != ".png" || len(second) != len("Foo-1-12345678.png") {
		t.Fatalf("expected hash-suffixed name, got %q", second)
	}
	if same != first {
		t.Fatalf("same source with a re-signed URL should share the name, got %q", same)
	}
	again, _ := media.NewPlan(content).Name(media.Ref{Collection: portfolio.NameProjects, Item: 0, Attachment: 0})
	if again != second {
		t.Fatalf("plan not deterministic: %q vs %q", again, second)
	}
}

func TestSyncDownloadsRewritesAndIsIdempotent(t *testing.T) {
	host := testsupport.NewMediaHost(t)
	dir := t.TempDir()
	sync := media.NewSynchronizer(dir)
	content := portfolio.Content{
		General: portfolio.DefaultGeneral(),
		Projects: []portfolio.Item{{
			ID:      "p1",
			Heading: "Foo",
			Attachments: []portfolio.Attachment{
				image(host.URL("foo.png")),
				{URL: host.URL("clip.mp4"), Type: portfolio.AttachmentVideo},
			},
		}},
	}

	out, report, err := sync.Sync(context.Background(), content)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	att := out.Projects[0].Attachments[0]
	if att.URL != "/content/media/Foo-1.png" || att.OriginalURL != host.URL("foo.png") {
		t.Fatalf("unexpected rewritten attachment %+v", att)
	}
	if video := out.Projects[0].Attachments[1]; video.URL != host.URL("clip.mp4") || video.OriginalURL != "" {
		t.Fatalf("video should pass through untouched, got %+v", video)
	}
	if content.Projects[0].Attachments[0].URL != host.URL("foo.png") {
		t.Fatal("input content must not be mutated")
	}
	want := portfolio.SyncStats{TotalImages: 1, Downloaded: 1}
	if report.Stats != want {
		t.Fatalf("unexpected stats %+v", report.Stats)
	}
	if _, ok := report.Active["Foo-1.png"]; !ok {
		t.Fatalf("expected Foo-1.png active, got %v", report.Active)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Foo-1.png"))
	if err != nil || string(data) != "image:foo.png" {
		t.Fatalf("unexpected file content %q err=%v", data, err)
	}
	if host.Hits("clip.mp4") != 0 {
		t.Fatal("videos must not be downloaded")
	}

	out2, report2, err := sync.Sync(context.Background(), content)
	if err != nil {
		t.Fatalf("second Sync returned error: %v", err)
	}
	if host.Hits("foo.png") != 1 {
		t.Fatalf("expected no re-download, got %d hits", host.Hits("foo.png"))
	}
	if report2.Stats.Reused != 1 || report2.Stats.Downloaded != 0 {
		t.Fatalf("unexpected second-pass stats %+v", report2.Stats)
	}
	if out2.Projects[0].Attachments[0].URL != att.URL {
		t.Fatal("second pass should produce the same local URL")
	}
}

func TestSyncKeepsRemoteURLOnFailure(t *testing.T) {
	host := testsupport.NewMediaHost(t)
	host.Fail("broken.png")
	dir := t.TempDir()
	content := portfolio.Content{
		General: portfolio.DefaultGeneral(),
		Writing: []portfolio.Item{{
			ID:          "w1",
			Heading:     "Essay",
			Attachments: []portfolio.Attachment{image(host.URL("broken.png")), image(host.URL("ok.png"))},
		}},
	}

	out, report, err := media.NewSynchronizer(dir).Sync(context.Background(), content)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := out.Writing[0].Attachments[0].URL; got != host.URL("broken.png") {
		t.Fatalf("failed download should keep remote URL, got %q", got)
	}
	if got := out.Writing[0].Attachments[1].URL; got != "/content/media/Essay-2.png" {
		t.Fatalf("unexpected URL for successful download %q", got)
	}
	if report.Stats.Failed != 1 || report.Stats.Downloaded != 1 || report.Stats.TotalImages != 2 {
		t.Fatalf("unexpected stats %+v", report.Stats)
	}
	if _, err := os.Stat(filepath.Join(dir, "Essay-1.png")); !os.IsNotExist(err) {
		t.Fatalf("failed download must not leave a file, stat err=%v", err)
	}
}

func TestSyncProfilePhoto(t *testing.T) {
	host := testsupport.NewMediaHost(t)
	dir := t.TempDir()
	general := portfolio.DefaultGeneral()
	general.ProfilePhoto = host.URL("me.jpg")

	out, report, err := media.NewSynchronizer(dir).Sync(context.Background(), portfolio.Content{General: general})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if out.General.ProfilePhoto != "/content/media/profilePhoto.jpg" {
		t.Fatalf("unexpected profile photo %q", out.General.ProfilePhoto)
	}
	if _, ok := report.Active["profilePhoto.jpg"]; !ok {
		t.Fatalf("profile photo must stay active, got %v", report.Active)
	}
}

func TestSweepRemovesOnlyUnreferencedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Foo-1.png", "Old-1.png", ".Foo-2.png.123.tmp", ".DS_Store"} {
		testsupport.WriteFile(t, filepath.Join(dir, name), 4)
	}
	if err := os.Mkdir(filepath.Join(dir, "keep-dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := media.NewSynchronizer(dir).Sweep(context.Background(), map[string]struct{}{"Foo-1.png": {}})
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	sort.Strings(result.Removed)
	if len(result.Removed) != 3 || result.Removed[0] != ".DS_Store" || result.Removed[1] != ".Foo-2.png.123.tmp" || result.Removed[2] != "Old-1.png" {
		t.Fatalf("unexpected removed set %v", result.Removed)
	}
	entries, _ := os.ReadDir(dir)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "Foo-1.png" || names[1] != "keep-dir" {
		t.Fatalf("unexpected directory contents %v", names)
	}
}

func TestSyncThenSweepMatchesReferencedFiles(t *testing.T) {
	host := testsupport.NewMediaHost(t)
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "Stale-1.png"), 1)
	s := media.NewSynchronizer(dir)
	content := portfolio.Content{
		General: portfolio.DefaultGeneral(),
		Projects: []portfolio.Item{
			{ID: "p1", Heading: "Foo", Attachments: []portfolio.Attachment{image(host.URL("a.png")), image(host.URL("b.jpg"))}},
		},
		Speaking: []portfolio.Item{
			{ID: "s1", Heading: "Talk", Attachments: []portfolio.Attachment{image(host.URL("c.png"))}},
		},
	}

	out, report, err := s.Sync(context.Background(), content)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if _, err := s.Sweep(context.Background(), report.Active); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	referenced := map[string]bool{}
	for _, col := range out.Collections() {
		for _, item := range col.Items {
			for _, att := range item.Attachments {
				if name, ok := media.LocalName(att.URL); ok {
					referenced[name] = true
					if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
						t.Fatalf("referenced file %s missing: %v", name, err)
					}
				}
			}
		}
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !referenced[e.Name()] {
			t.Fatalf("unreferenced file %s survived the sweep", e.Name())
		}
	}
	if len(referenced) != 3 {
		t.Fatalf("expected 3 referenced files, got %v", referenced)
	}
}
