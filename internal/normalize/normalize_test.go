package normalize

import (
	"strings"
	"testing"

	"github.com/local/packext/internal/extract"
)

func page(num int, text string) extract.PageText {
	return extract.PageText{PageNumber: num, Text: text, CharCount: len([]rune(text))}
}

func TestDocumentStripsRecurringHeader(t *testing.T) {
	header := "Lehrbuch Deutsch A2"
	pages := []extract.PageText{
		page(1, header+"\nErster Satz auf Seite eins steht hier."),
		page(2, header+"\nZweiter Satz auf Seite zwei steht hier."),
		page(3, header+"\nDritter Satz auf Seite drei steht hier."),
	}
	res := Document(pages)
	for _, p := range res.Pages {
		if strings.Contains(p.Text, header) {
			t.Fatalf("header survived on page %d: %q", p.PageNumber, p.Text)
		}
	}
	if len(res.Actions) == 0 || !strings.Contains(res.Actions[0], "recurring header/footer") {
		t.Fatalf("actions = %v, want recurring-header entry first", res.Actions)
	}
}

func TestDocumentKeepsNonRecurringLine(t *testing.T) {
	// recurs on 1 of 3 pages, under the 60% threshold
	pages := []extract.PageText{
		page(1, "Sonderzeile\nNormaler Text auf der ersten Seite."),
		page(2, "Normaler Text auf der zweiten Seite."),
		page(3, "Normaler Text auf der dritten Seite."),
	}
	res := Document(pages)
	if !strings.Contains(res.Pages[0].Text, "Sonderzeile") {
		t.Fatal("non-recurring line was removed")
	}
}

func TestRecurringThresholdRoundsUp(t *testing.T) {
	// 60% of 7 pages is 4.2; a line on exactly 4 pages must stay
	pages := make([]extract.PageText, 7)
	for i := range pages {
		text := "Inhaltstext der Seite, lang genug fuer alles."
		if i < 4 {
			text = "Kopfzeile\n" + text
		}
		pages[i] = page(i+1, text)
	}
	res := Document(pages)
	if !strings.Contains(res.Pages[0].Text, "Kopfzeile") {
		t.Fatal("line under the recurrence threshold was removed")
	}

	// on 5 of 7 pages it crosses the threshold
	pages[4] = page(5, "Kopfzeile\nInhaltstext der Seite, lang genug fuer alles.")
	res = Document(pages)
	if strings.Contains(res.Pages[0].Text, "Kopfzeile") {
		t.Fatal("recurring line above the threshold survived")
	}
}

func TestNormalizeTextDeHyphenation(t *testing.T) {
	got, actions := normalizeText("Das ist eine Woh-\nnung in Berlin.")
	if !strings.Contains(got, "Wohnung") {
		t.Fatalf("de-hyphenation failed: %q", got)
	}
	if len(actions) == 0 || !strings.Contains(actions[0], "de-hyphenated 1") {
		t.Fatalf("actions = %v", actions)
	}
}

func TestNormalizeTextKeepsRealHyphens(t *testing.T) {
	got, _ := normalizeText("Das U-Bahn-Netz ist gut ausgebaut.")
	if !strings.Contains(got, "U-Bahn-Netz") {
		t.Fatalf("in-line hyphen was removed: %q", got)
	}
}

func TestNormalizeTextPageNumberLines(t *testing.T) {
	in := "Erster Absatz endet hier.\n42\nSeite 43\nZweiter Absatz endet hier."
	got, _ := normalizeText(in)
	if strings.Contains(got, "42") || strings.Contains(got, "Seite 43") {
		t.Fatalf("page-number lines survived: %q", got)
	}
	if !strings.Contains(got, "Erster Absatz") || !strings.Contains(got, "Zweiter Absatz") {
		t.Fatalf("content lost: %q", got)
	}
}

func TestNormalizeTextWhitespace(t *testing.T) {
	got, _ := normalizeText("Wort   mit\t\tvielen Lücken.\n\n\n\n\nNächster Absatz.")
	if strings.Contains(got, "  ") {
		t.Fatalf("space runs survived: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("newline runs survived: %q", got)
	}
}

func TestNormalizeTextRecordsWhitespaceCollapse(t *testing.T) {
	_, actions := normalizeText("Wort   mit\t\tvielen Lücken endet hier.")
	if len(actions) != 1 || actions[0] != "collapsed whitespace runs" {
		t.Fatalf("actions = %v, want the whitespace step recorded", actions)
	}

	// single spaces are not a run; nothing to record
	_, actions = normalizeText("Ganz normaler Satz ohne Lücken.")
	if len(actions) != 0 {
		t.Fatalf("actions = %v, want none", actions)
	}
}

func TestNormalizeActionOrder(t *testing.T) {
	in := "Woh-\nnung\n17\n\n\n\n\nEnde."
	_, actions := normalizeText(in)
	if len(actions) != 3 {
		t.Fatalf("actions = %v, want 3 entries", actions)
	}
	wantOrder := []string{"de-hyphenated", "page-number", "blank-line"}
	for i, want := range wantOrder {
		if !strings.Contains(actions[i], want) {
			t.Fatalf("action %d = %q, want %s step", i, actions[i], want)
		}
	}
}

func TestPagePreservesNumbering(t *testing.T) {
	p, actions := Page(page(7, "  Text mit   Rändern.  "))
	if p.PageNumber != 7 {
		t.Fatalf("page number = %d", p.PageNumber)
	}
	if p.Text != "Text mit Rändern." {
		t.Fatalf("text = %q", p.Text)
	}
	for _, a := range actions {
		if !strings.HasPrefix(a, "page 7:") {
			t.Fatalf("action %q lacks page prefix", a)
		}
	}
}
