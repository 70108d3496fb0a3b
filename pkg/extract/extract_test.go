package extract

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"scrapejob/pkg/domain"
)

const headlinePage = `<html><body>
<h3 class="story-package-module__story__headline">
  <a class="story-package-module__story__headline-link" href="/a">  X
  </a>
</h3>
<h3 class="other">ignored</h3>
<h3 class="story-package-module__story__headline">
  <a class="story-package-module__story__headline-link" href="/b">Y</a>
</h3>
</body></html>`

func farePage(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "\n") + "</body></html>"
}

func fareCard(price, provider string) string {
	card := `<div class="multibook-dropdown"><span class="price-text">` + price + `</span>`
	if provider != "" {
		card += `<span class="providerName option-text">` + provider + `</span>`
	}
	return card + `</div>`
}

var fareStatic = map[string]string{
	"departure":      "Sydney",
	"destination":    "Auckland",
	"departure_date": "2021-08-02",
	"arrival_date":   "2021-08-08",
	"currency":       "AUD",
}

func TestExtract_Headlines(t *testing.T) {
	recs, err := Extract(headlinePage, HeadlineRule("bloomberg.com/markets"))
	require.NoError(t, err)

	got, err := Collect(recs)
	require.NoError(t, err)

	want := []domain.Record{
		{"content": "X", "source": "bloomberg.com/markets"},
		{"content": "Y", "source": "bloomberg.com/markets"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_FaresCleanPrices(t *testing.T) {
	page := farePage(
		fareCard("\n$1,234\n", "Kayak"),
		fareCard("A$ 987", "  Jetstar\n"),
	)
	recs, err := Extract(page, FareRule(fareStatic))
	require.NoError(t, err)

	got, err := Collect(recs)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "1234", got[0]["price"])
	require.Equal(t, "Kayak", got[0]["provider"])
	require.Equal(t, "A 987", got[1]["price"])
	require.Equal(t, "Jetstar", got[1]["provider"])
	for _, r := range got {
		require.Equal(t, "Sydney", r["departure"])
		require.Equal(t, "AUD", r["currency"])
	}
}

// N well-formed containers yield N records with every field populated and cleaned.
func TestExtract_CountsAndCleanliness(t *testing.T) {
	for _, n := range []int{0, 1, 5, 20} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			cards := make([]string, n)
			for i := range cards {
				cards[i] = fareCard(fmt.Sprintf(" $%d,%03d\n", i+1, i), fmt.Sprintf("\nprovider %d ", i))
			}
			recs, err := Extract(farePage(cards...), FareRule(fareStatic))
			require.NoError(t, err)

			got, err := Collect(recs)
			require.NoError(t, err)
			require.Len(t, got, n)
			for _, r := range got {
				for name, v := range r {
					require.NotEmpty(t, v, name)
					require.Equal(t, strings.TrimSpace(v), v)
					require.NotContains(t, v, "\n")
				}
				require.NotContains(t, r["price"], "$")
				require.NotContains(t, r["price"], ",")
			}
		})
	}
}

func TestExtract_MissingFieldIsFatal(t *testing.T) {
	page := farePage(fareCard("$10", "A"), fareCard("$20", ""), fareCard("$30", "C"))
	recs, err := Extract(page, FareRule(fareStatic))
	require.NoError(t, err)

	require.True(t, recs.Next())
	require.Equal(t, "A", recs.Record()["provider"])
	require.False(t, recs.Next())
	require.True(t, errors.Is(recs.Err(), ErrMissingField))
	require.Contains(t, recs.Err().Error(), "provider")

	// the cursor stays exhausted
	require.False(t, recs.Next())

	recs, err = Extract(page, FareRule(fareStatic))
	require.NoError(t, err)
	got, err := Collect(recs)
	require.ErrorIs(t, err, ErrMissingField)
	require.Nil(t, got)
}

func TestExtract_OptionalField(t *testing.T) {
	rule := FareRule(nil)
	rule.Fields[1].Optional = true

	recs, err := Extract(farePage(fareCard("$20", "")), rule)
	require.NoError(t, err)
	got, err := Collect(recs)
	require.NoError(t, err)
	require.Equal(t, []domain.Record{{"price": "20", "provider": ""}}, got)
}

func TestExtract_NotRestartable(t *testing.T) {
	recs, err := Extract(headlinePage, HeadlineRule("s"))
	require.NoError(t, err)

	first, err := Collect(recs)
	require.NoError(t, err)
	require.Len(t, first, 2)

	again, err := Collect(recs)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want error
	}{
		{"no container", Rule{Fields: []Field{{Name: "a", Selector: "b"}}}, ErrNoContainer},
		{"no fields", Rule{Container: "div"}, ErrNoFields},
		{"empty field", Rule{Container: "div", Fields: []Field{{Name: "a"}}}, ErrEmptyFieldSpecs},
		{"reserved", Rule{Container: "div", Fields: []Field{{Name: "id", Selector: "b"}}}, ErrReservedField},
		{"duplicate", Rule{Container: "div", Fields: []Field{{Name: "a", Selector: "b"}, {Name: "a", Selector: "c"}}}, ErrDuplicateField},
		{"cleaner", Rule{Container: "div", Fields: []Field{{Name: "a", Selector: "b", Clean: []string{"nope"}}}}, ErrUnknownCleaner},
		{"static reserved", Rule{Container: "div", Fields: []Field{{Name: "a", Selector: "b"}}, Static: map[string]string{"searched_on": "x"}}, ErrReservedField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.rule.Validate(), tt.want)
		})
	}

	require.NoError(t, HeadlineRule("s").Validate())
	require.NoError(t, FareRule(fareStatic).Validate())
}

func TestCleaners(t *testing.T) {
	require.Equal(t, "1234", stripThousands("1,234"))
	require.Equal(t, "12", stripCurrency("€1£2"))
	require.Equal(t, "a b c", collapseSpaces("  a \t b\n c "))
	require.Equal(t, "a b ", stripNewlines("a\r\nb\n"))
}

// A headline wrapped across lines keeps its words apart.
func TestExtract_MultiLineHeadline(t *testing.T) {
	page := `<html><body><h3 class="story-package-module__story__headline">
<a class="story-package-module__story__headline-link" href="/c">Stocks rally as
Fed holds</a></h3>
<h3 class="story-package-module__story__headline">
<a class="story-package-module__story__headline-link" href="/d">Oil

  slips   again</a></h3>
</body></html>`

	recs, err := Extract(page, HeadlineRule("bloomberg.com/markets"))
	require.NoError(t, err)

	got, err := Collect(recs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Stocks rally as Fed holds", got[0]["content"])
	require.Equal(t, "Oil slips again", got[1]["content"])
}

func TestValidate_UnknownCleanerListsKnown(t *testing.T) {
	r := Rule{Container: "div", Fields: []Field{{Name: "a", Selector: "b", Clean: []string{"nope"}}}}
	err := r.Validate()
	require.ErrorIs(t, err, ErrUnknownCleaner)
	for _, name := range CleanerNames() {
		require.ErrorContains(t, err, name)
	}
}
