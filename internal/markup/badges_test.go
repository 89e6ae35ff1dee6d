package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseViolation(t *testing.T) {
	v, ok := ParseViolation("UNANCHORED_METRIC: '25%' found without a source")
	assert.True(t, ok)
	assert.Equal(t, "UNANCHORED_METRIC", v.Type)
	assert.Equal(t, "25%", v.Quote)

	_, ok = ParseViolation("Response used hedging language")
	assert.False(t, ok)
}

func TestInjectViolationBadges(t *testing.T) {
	frag := Render("Revenue grew 25% last year and 25% again.")
	out := InjectViolationBadges(frag, []string{"UNANCHORED_METRIC: '25%' found without a source"})

	assert.Equal(t, 1, strings.Count(out, `class="flagged-content"`))
	assert.Contains(t, out, `<span class="flagged-content">25%</span><span class="violation-badge" data-violation="UNANCHORED_METRIC"`)
	assert.True(t, strings.HasSuffix(out, "and 25% again."), "only the first occurrence is flagged")
}

func TestInjectViolationBadgesSkipsDuplicatesAndMisses(t *testing.T) {
	frag := Render("Costs are low.")
	v := "HEDGING: 'low' is vague"
	once := InjectViolationBadges(frag, []string{v})
	twice := InjectViolationBadges(once, []string{v})
	assert.Equal(t, once, twice)

	assert.Equal(t, frag, InjectViolationBadges(frag, []string{"MISSING: 'absent' not here", "free form"}))
}

func TestInjectViolationBadgesIgnoresMarkup(t *testing.T) {
	frag := `<a href="https://x/tech">tech</a> stack`
	out := InjectViolationBadges(frag, []string{"VAGUE: 'tech' unclear"})
	assert.Contains(t, out, `href="https://x/tech"`)
	assert.Contains(t, out, `<a href="https://x/tech"><span class="flagged-content">tech</span>`)
}

func TestInjectViolationBadgesEscapedQuote(t *testing.T) {
	frag := Render("use a<b carefully")
	out := InjectViolationBadges(frag, []string{"RISK: 'a<b' unsafe"})
	assert.Contains(t, out, `<span class="flagged-content">a&lt;b</span>`)
}
