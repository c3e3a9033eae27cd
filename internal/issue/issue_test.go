// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	t.Parallel()

	all := Values()
	if len(all) != int(WatchFailedId) {
		t.Fatalf("len(Values()) = %d, want %d", len(all), WatchFailedId)
	}
	for i, is := range all {
		if is.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), i+1)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", is.Id())
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	if got := Get(FormatErrorId); got == nil || !strings.Contains(string(got.MarkdownMsg()), "{{") {
		t.Errorf("Get(FormatErrorId) = %v, want the escaping hint", got)
	}
	if got := Get(Id(999)); got != nil {
		t.Errorf("Get(999) = %v, want nil", got)
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	is := Get(ProjectNotFoundId)
	links := is.DocLinks()
	if len(links) == 0 {
		t.Fatal("ProjectNotFound has no doc links")
	}
	links[0] = "changed"
	if is.DocLinks()[0] == "changed" {
		t.Error("DocLinks() returned the shared slice")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	for _, is := range Values() {
		out, err := is.Render("notty")
		if err != nil {
			t.Errorf("Render(%d) error = %v", is.Id(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("Render(%d) is empty", is.Id())
		}
	}

	out, err := Get(WatchFailedId).Render("notty")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "See also") || !strings.Contains(out, "inotify.7.html") {
		t.Errorf("Render() missing links:\n%s", out)
	}
}
